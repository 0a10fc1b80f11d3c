package testutil

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Failure modes for MockMediaHost.
const (
	ModeNormal     = "normal"
	ModeCode204    = "code204"
	ModeNoMedia    = "no_media"
	ModeTimeout    = "timeout"
	ModeDisconnect = "disconnect"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MockMediaHost is an in-process media host speaking the voiceplay
// websocket protocol. It keeps a tiny model of an audio element so tests
// can check what the client asked for.
type MockMediaHost struct {
	server *httptest.Server

	mu       sync.Mutex
	writeMu  sync.Mutex
	conn     *websocket.Conn
	mode     string
	password string
	version  string
	rpc      int
	duration float64
	requests []string
	element  MediaElement
}

// MediaElement is the host's view of its audio element.
type MediaElement struct {
	URL          string  `json:"url"`
	Path         string  `json:"path,omitempty"`
	MIMEType     string  `json:"mimeType,omitempty"`
	CurrentTime  float64 `json:"currentTime"`
	Duration     float64 `json:"duration"`
	Paused       bool    `json:"paused"`
	Volume       float64 `json:"volume"`
	PlaybackRate float64 `json:"playbackRate"`
}

// NewMockMediaHost starts a host that reports duration seconds for every
// loaded source. password may be empty to disable authentication.
func NewMockMediaHost(duration float64, password string) *MockMediaHost {
	m := &MockMediaHost{
		mode:     ModeNormal,
		password: password,
		version:  "1.2.0",
		rpc:      1,
		duration: duration,
		element:  MediaElement{Paused: true, Volume: 1, PlaybackRate: 1},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL is the ws:// address of the host.
func (m *MockMediaHost) URL() string {
	return "ws" + strings.TrimPrefix(m.server.URL, "http")
}

// Close stops the server and drops any client.
func (m *MockMediaHost) Close() {
	m.DropConnection()
	m.server.Close()
}

// SetFailureMode changes how subsequent requests are answered.
func (m *MockMediaHost) SetFailureMode(mode string) {
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()
}

// SetVersion changes what the next Hello advertises.
func (m *MockMediaHost) SetVersion(version string, rpc int) {
	m.mu.Lock()
	m.version, m.rpc = version, rpc
	m.mu.Unlock()
}

// Requests returns the request types received so far, in order.
func (m *MockMediaHost) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}

// Element returns a copy of the modelled audio element.
func (m *MockMediaHost) Element() MediaElement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.element
}

// Connected reports whether a client is attached.
func (m *MockMediaHost) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// DropConnection closes the client's connection from the host side.
func (m *MockMediaHost) DropConnection() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Emit pushes an event to the connected client.
func (m *MockMediaHost) Emit(eventType string, data interface{}) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	return m.write(conn, 5, map[string]interface{}{"eventType": eventType, "eventData": data})
}

func (m *MockMediaHost) write(conn *websocket.Conn, op int, d interface{}) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(map[string]interface{}{"op": op, "d": d})
}

func (m *MockMediaHost) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() {
		m.mu.Lock()
		if m.conn == conn {
			m.conn = nil
		}
		m.mu.Unlock()
		_ = conn.Close()
	}()

	m.mu.Lock()
	hello := map[string]interface{}{"hostVersion": m.version, "rpcVersion": m.rpc}
	password := m.password
	m.mu.Unlock()
	const salt, challenge = "mocksalt", "mockchallenge"
	if password != "" {
		hello["authentication"] = map[string]string{"salt": salt, "challenge": challenge}
	}
	if err := m.write(conn, 0, hello); err != nil {
		return
	}

	var identify struct {
		Op int `json:"op"`
		D  struct {
			Authentication string `json:"authentication"`
		} `json:"d"`
	}
	if err := conn.ReadJSON(&identify); err != nil || identify.Op != 1 {
		return
	}
	if password != "" && identify.D.Authentication != expectedAuth(password, salt, challenge) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(4009, "authentication failed"))
		return
	}
	if err := m.write(conn, 2, map[string]interface{}{"negotiatedRpcVersion": 1}); err != nil {
		return
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	for {
		var msg struct {
			Op int `json:"op"`
			D  struct {
				RequestType string                 `json:"requestType"`
				RequestID   string                 `json:"requestId"`
				RequestData map[string]interface{} `json:"requestData"`
			} `json:"d"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Op != 6 {
			continue
		}
		if !m.respond(conn, msg.D.RequestType, msg.D.RequestID, msg.D.RequestData) {
			return
		}
	}
}

// respond answers one request; false means the connection should close.
func (m *MockMediaHost) respond(conn *websocket.Conn, reqType, reqID string, data map[string]interface{}) bool {
	m.mu.Lock()
	m.requests = append(m.requests, reqType)
	mode := m.mode
	m.mu.Unlock()

	status := map[string]interface{}{"result": true, "code": 100}
	var respData interface{}
	var followUp func()

	switch mode {
	case ModeDisconnect:
		return false
	case ModeTimeout:
		time.Sleep(200 * time.Millisecond)
		return true
	case ModeCode204:
		status = map[string]interface{}{"result": false, "code": 204, "comment": "unknown request type"}
	default:
		respData, followUp, status = m.apply(reqType, data, status)
	}

	resp := map[string]interface{}{"requestType": reqType, "requestId": reqID, "requestStatus": status}
	if respData != nil {
		resp["responseData"] = respData
	}
	if err := m.write(conn, 7, resp); err != nil {
		return false
	}
	if followUp != nil {
		followUp()
	}
	return true
}

func (m *MockMediaHost) apply(reqType string, data map[string]interface{}, ok map[string]interface{}) (interface{}, func(), map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	noMedia := map[string]interface{}{"result": false, "code": 600, "comment": "no media loaded"}
	needsMedia := reqType != "Load" && reqType != "SetVolume" && reqType != "SetPlaybackRate" && reqType != "GetMediaStatus"
	if needsMedia && (m.element.URL == "" || m.mode == ModeNoMedia) {
		return nil, nil, noMedia
	}

	num := func(key string) float64 {
		f, _ := data[key].(float64)
		return f
	}

	switch reqType {
	case "Load":
		url, _ := data["url"].(string)
		m.element.URL = url
		m.element.Path, _ = data["path"].(string)
		m.element.MIMEType, _ = data["mimeType"].(string)
		m.element.CurrentTime = 0
		m.element.Duration = m.duration
		m.element.Paused = true
		m.element.PlaybackRate = 1
		d := m.duration
		return nil, func() { _ = m.Emit("LoadedMetadata", map[string]interface{}{"duration": d}) }, ok
	case "Unload":
		m.element = MediaElement{Paused: true, Volume: m.element.Volume, PlaybackRate: 1}
	case "Play":
		m.element.Paused = false
	case "Pause":
		m.element.Paused = true
	case "SetCurrentTime":
		m.element.CurrentTime = num("seconds")
	case "SetVolume":
		m.element.Volume = num("volume")
	case "SetPlaybackRate":
		m.element.PlaybackRate = num("rate")
	case "GetMediaStatus":
		return m.element, nil, ok
	default:
		return nil, nil, map[string]interface{}{"result": false, "code": 204, "comment": "unknown request type"}
	}
	return nil, nil, ok
}

func expectedAuth(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	auth := sha256.Sum256([]byte(base64.StdEncoding.EncodeToString(secret[:]) + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}

