// Package mediaws is a client for the media host: the process that owns the
// audio element and actually plays sound. It speaks a small JSON websocket
// protocol of op-coded envelopes with request/response correlation and
// pushed playback events.
package mediaws

import (
	"encoding/json"
	"fmt"
)

// Op codes of the envelope.
const (
	OpHello           = 0
	OpIdentify        = 1
	OpIdentified      = 2
	OpEvent           = 5
	OpRequest         = 6
	OpRequestResponse = 7
)

// RPCVersion is the protocol revision this client speaks.
const RPCVersion = 1

// SubscribePlayback is the event subscription bit sent in Identify.
const SubscribePlayback = 1 << 0

// Request types.
const (
	ReqLoad            = "Load"
	ReqUnload          = "Unload"
	ReqPlay            = "Play"
	ReqPause           = "Pause"
	ReqSetCurrentTime  = "SetCurrentTime"
	ReqSetVolume       = "SetVolume"
	ReqSetPlaybackRate = "SetPlaybackRate"
	ReqGetMediaStatus  = "GetMediaStatus"
)

// Event types pushed by the host.
const (
	EvTimeUpdate     = "TimeUpdate"
	EvLoadedMetadata = "LoadedMetadata"
	EvEnded          = "Ended"
)

// Request status codes. CodeInvalidValue is also used for arguments the
// client refuses before sending.
const (
	CodeSuccess        = 100
	CodeInvalidValue   = 400
	CodeUnknownRequest = 204
	CodeNoMedia        = 600
)

// Message is the envelope every frame is wrapped in.
type Message struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
}

type Hello struct {
	HostVersion    string `json:"hostVersion"`
	RPCVersion     int    `json:"rpcVersion"`
	Authentication *struct {
		Challenge string `json:"challenge"`
		Salt      string `json:"salt"`
	} `json:"authentication,omitempty"`
}

type Identify struct {
	RPCVersion         int    `json:"rpcVersion"`
	Authentication     string `json:"authentication,omitempty"`
	EventSubscriptions uint32 `json:"eventSubscriptions"`
}

type Request struct {
	RequestType string      `json:"requestType"`
	RequestID   string      `json:"requestId"`
	RequestData interface{} `json:"requestData,omitempty"`
}

type RequestStatus struct {
	Result  bool   `json:"result"`
	Code    int    `json:"code"`
	Comment string `json:"comment,omitempty"`
}

type Response struct {
	RequestType   string          `json:"requestType"`
	RequestID     string          `json:"requestId"`
	RequestStatus RequestStatus   `json:"requestStatus"`
	ResponseData  json.RawMessage `json:"responseData,omitempty"`
}

type Event struct {
	EventType string          `json:"eventType"`
	EventData json.RawMessage `json:"eventData,omitempty"`
}

// RequestError is returned when the host answers a request with a failure
// status.
type RequestError struct {
	RequestType string
	Code        int
	Comment     string
}

func (e *RequestError) Error() string {
	if e.Code == CodeUnknownRequest {
		return fmt.Sprintf("media host does not support %s (code %d); check the host version", e.RequestType, e.Code)
	}
	if e.Comment != "" {
		return fmt.Sprintf("%s failed: %s (code %d)", e.RequestType, e.Comment, e.Code)
	}
	return fmt.Sprintf("%s failed (code %d)", e.RequestType, e.Code)
}

// envelope wraps d in a Message with op.
func envelope(op int, d interface{}) (Message, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return Message{}, err
	}
	return Message{Op: op, D: raw}, nil
}
