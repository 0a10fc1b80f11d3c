package mediaws

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/tiroq/voiceplay/internal/upload"
)

// Resolver maps a handle URL to the file behind it. *upload.Registry
// satisfies it.
type Resolver interface {
	Resolve(h upload.Handle) (upload.Audio, error)
}

// MediaStatus is the host's answer to GetMediaStatus.
type MediaStatus struct {
	URL          string  `json:"url"`
	CurrentTime  float64 `json:"currentTime"`
	Duration     float64 `json:"duration"`
	Paused       bool    `json:"paused"`
	Volume       float64 `json:"volume"`
	PlaybackRate float64 `json:"playbackRate"`
}

// Load points the host's audio element at url. With a resolver set, the
// file path and media type travel with the request and a revoked handle
// is refused before anything is sent.
func (c *Client) Load(url string) error {
	data := map[string]interface{}{"url": url}
	c.handlersMu.RLock()
	r := c.resolver
	c.handlersMu.RUnlock()
	if r != nil {
		a, err := r.Resolve(upload.Handle(url))
		if err != nil {
			return err
		}
		data["path"] = a.Path
		data["mimeType"] = a.MIMEType
	}
	_, err := c.call(ReqLoad, data)
	return err
}

// SetResolver sets how Load finds the file behind a handle URL.
func (c *Client) SetResolver(r Resolver) {
	c.handlersMu.Lock()
	c.resolver = r
	c.handlersMu.Unlock()
}

// Unload detaches the current source.
func (c *Client) Unload() error {
	_, err := c.call(ReqUnload, nil)
	return err
}

func (c *Client) Play() error {
	_, err := c.call(ReqPlay, nil)
	return err
}

func (c *Client) Pause() error {
	_, err := c.call(ReqPause, nil)
	return err
}

// SetCurrentTime seeks to seconds.
func (c *Client) SetCurrentTime(seconds float64) error {
	_, err := c.call(ReqSetCurrentTime, map[string]interface{}{"seconds": seconds})
	return err
}

// SetVolume sets the element volume in [0, 1].
func (c *Client) SetVolume(volume float64) error {
	if !(volume >= 0 && volume <= 1) {
		return invalidValue(ReqSetVolume, fmt.Sprintf("volume %v outside [0, 1]", volume))
	}
	_, err := c.call(ReqSetVolume, map[string]interface{}{"volume": volume})
	return err
}

// SetPlaybackRate passes rate through; the host refuses non-positive rates,
// so they are not sent.
func (c *Client) SetPlaybackRate(rate float64) error {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return invalidValue(ReqSetPlaybackRate, fmt.Sprintf("rate %v is not a positive number", rate))
	}
	_, err := c.call(ReqSetPlaybackRate, map[string]interface{}{"rate": rate})
	return err
}

// GetMediaStatus asks the host for the element's current state.
func (c *Client) GetMediaStatus() (*MediaStatus, error) {
	resp, err := c.call(ReqGetMediaStatus, nil)
	if err != nil {
		return nil, err
	}
	var st MediaStatus
	if err := json.Unmarshal(resp.ResponseData, &st); err != nil {
		return nil, fmt.Errorf("decoding media status: %w", err)
	}
	return &st, nil
}

func invalidValue(requestType, comment string) error {
	return &RequestError{RequestType: requestType, Code: CodeInvalidValue, Comment: comment}
}
