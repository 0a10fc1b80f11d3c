package mediaws

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tiroq/voiceplay/internal/player"
	"github.com/tiroq/voiceplay/internal/upload"
	"github.com/tiroq/voiceplay/testutil"
)

func connect(t *testing.T, host *testutil.MockMediaHost, password string) *Client {
	t.Helper()
	c := NewClient(host.URL(), password)
	c.SetReconnect(false, 0)
	c.SetRequestTimeout(2 * time.Second)
	testutil.AssertNoError(t, c.Connect(context.Background()), "Connect")
	t.Cleanup(c.Disconnect)
	return c
}

func newHost(t *testing.T, password string) *testutil.MockMediaHost {
	t.Helper()
	h := testutil.NewMockMediaHost(90, password)
	t.Cleanup(h.Close)
	return h
}

func TestConnectAndIdentify(t *testing.T) {
	host := newHost(t, "")
	c := connect(t, host, "")

	testutil.AssertTrue(t, c.IsConnected(), "client should be connected")
	st := c.Status()
	testutil.AssertEqual(t, "1.2.0", st.HostVersion, "host version")
	testutil.AssertEqual(t, 1, st.RPCVersion, "rpc version")
	testutil.WaitForCondition(t, host.Connected, time.Second, "host should see the client")

	err := c.Connect(context.Background())
	testutil.AssertErrorContains(t, err, "already connected", "second Connect")
}

func TestConnectWithPassword(t *testing.T) {
	host := newHost(t, "hunter2")
	c := connect(t, host, "hunter2")
	testutil.AssertTrue(t, c.IsConnected(), "authenticated client should be connected")
}

func TestConnectRejectsBadPassword(t *testing.T) {
	host := newHost(t, "hunter2")

	c := NewClient(host.URL(), "wrong")
	c.SetReconnect(false, 0)
	testutil.AssertError(t, c.Connect(context.Background()), "wrong password should fail")
	testutil.AssertFalse(t, c.IsConnected(), "client must not be connected")

	c = NewClient(host.URL(), "")
	testutil.AssertErrorContains(t, c.Connect(context.Background()), "requires a password", "missing password")
}

func TestConnectUnreachable(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/", "")
	c.SetRequestTimeout(500 * time.Millisecond)
	testutil.AssertError(t, c.Connect(context.Background()), "dialing a closed port should fail")
}

func TestTransportRequests(t *testing.T) {
	host := newHost(t, "")
	c := connect(t, host, "")

	testutil.AssertNoError(t, c.Load(upload.HandlePrefix+"abc"), "Load")
	testutil.AssertNoError(t, c.Play(), "Play")
	testutil.AssertNoError(t, c.SetCurrentTime(12.5), "SetCurrentTime")
	testutil.AssertNoError(t, c.SetVolume(0.4), "SetVolume")
	testutil.AssertNoError(t, c.SetPlaybackRate(2), "SetPlaybackRate")

	el := host.Element()
	testutil.AssertEqual(t, upload.HandlePrefix+"abc", el.URL, "url")
	testutil.AssertFalse(t, el.Paused, "element should be playing")
	testutil.AssertApprox(t, 12.5, el.CurrentTime, 1e-9, "current time")
	testutil.AssertApprox(t, 0.4, el.Volume, 1e-9, "volume")
	testutil.AssertApprox(t, 2, el.PlaybackRate, 1e-9, "rate")

	st, err := c.GetMediaStatus()
	testutil.AssertNoError(t, err, "GetMediaStatus")
	testutil.AssertApprox(t, 90, st.Duration, 1e-9, "duration")
	testutil.AssertEqual(t, el.URL, st.URL, "status url")

	testutil.AssertNoError(t, c.Pause(), "Pause")
	testutil.AssertNoError(t, c.Unload(), "Unload")
	testutil.AssertEqual(t, "", host.Element().URL, "unloaded url")
}

func TestLoadResolvesHandle(t *testing.T) {
	host := newHost(t, "")
	c := connect(t, host, "")
	reg := upload.NewRegistry()
	c.SetResolver(reg)

	h := reg.Create(upload.Audio{Name: "talk.mp3", MIMEType: "audio/mpeg", Path: "/music/talk.mp3"})
	testutil.AssertNoError(t, c.Load(string(h)), "Load")
	el := host.Element()
	testutil.AssertEqual(t, "/music/talk.mp3", el.Path, "path sent with load")
	testutil.AssertEqual(t, "audio/mpeg", el.MIMEType, "mime type sent with load")

	testutil.AssertNoError(t, reg.Revoke(h), "Revoke")
	err := c.Load(string(h))
	testutil.AssertTrue(t, errors.Is(err, upload.ErrRevoked), "revoked handle must not load")
	testutil.AssertEqual(t, 1, countOf(host.Requests(), ReqLoad), "only the live handle reached the host")
}

func countOf(reqs []string, name string) int {
	n := 0
	for _, r := range reqs {
		if r == name {
			n++
		}
	}
	return n
}

func TestRefusesOutOfRangeValues(t *testing.T) {
	host := newHost(t, "")
	c := connect(t, host, "")

	var reqErr *RequestError
	for _, err := range []error{c.SetVolume(1.5), c.SetVolume(-0.1), c.SetPlaybackRate(0), c.SetPlaybackRate(-2)} {
		testutil.AssertTrue(t, errors.As(err, &reqErr), "refused value should be a RequestError")
		testutil.AssertEqual(t, CodeInvalidValue, reqErr.Code, "invalid value code")
	}
	testutil.AssertEqual(t, 0, len(host.Requests()), "no request should be sent")
}

func TestRequestFailures(t *testing.T) {
	host := newHost(t, "")
	c := connect(t, host, "")

	err := c.Play()
	var reqErr *RequestError
	testutil.AssertTrue(t, errors.As(err, &reqErr), "Play without media should be a RequestError")
	testutil.AssertEqual(t, CodeNoMedia, reqErr.Code, "no media code")

	host.SetFailureMode(testutil.ModeCode204)
	err = c.Load("x")
	testutil.AssertTrue(t, errors.As(err, &reqErr), "204 should be a RequestError")
	testutil.AssertEqual(t, CodeUnknownRequest, reqErr.Code, "code")
	testutil.AssertErrorContains(t, err, "does not support Load", "message")
	testutil.AssertTrue(t, c.IsConnected(), "client should stay connected after a failed request")
}

func TestRequestTimeout(t *testing.T) {
	host := newHost(t, "")
	c := connect(t, host, "")
	c.SetRequestTimeout(50 * time.Millisecond)

	host.SetFailureMode(testutil.ModeTimeout)
	testutil.AssertErrorContains(t, c.Load("x"), "timeout", "unanswered request")
}

func TestNotConnected(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/", "")
	err := c.Play()
	testutil.AssertTrue(t, errors.Is(err, ErrNotConnected), "request before Connect")
}

func TestEventsReachHandlers(t *testing.T) {
	host := newHost(t, "")
	c := connect(t, host, "")

	var mu sync.Mutex
	var duration, position float64
	ended := make(chan struct{}, 1)
	c.OnMetadataLoaded(func(d float64) { mu.Lock(); duration = d; mu.Unlock() })
	c.OnTimeUpdate(func(s float64) { mu.Lock(); position = s; mu.Unlock() })
	c.OnEnded(func() { ended <- struct{}{} })

	testutil.AssertNoError(t, c.Load("blob:voiceplay/1"), "Load")
	testutil.AssertNoError(t, host.Emit(EvTimeUpdate, map[string]interface{}{"currentTime": 33.25}), "Emit")
	testutil.AssertNoError(t, host.Emit(EvEnded, map[string]interface{}{}), "Emit ended")

	testutil.WaitForCondition(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return duration == 90 && position == 33.25
	}, 2*time.Second, "metadata and time update")

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("ended handler not called")
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	logs := testutil.CaptureLog()
	defer logs.Stop()

	host := newHost(t, "")
	c := NewClient(host.URL(), "")
	c.SetReconnect(true, 20*time.Millisecond)
	testutil.AssertNoError(t, c.Connect(context.Background()), "Connect")
	defer c.Disconnect()

	dropped := make(chan struct{}, 1)
	back := make(chan struct{}, 1)
	c.OnDisconnected(func() {
		select {
		case dropped <- struct{}{}:
		default:
		}
	})
	c.OnReconnected(func() { back <- struct{}{} })

	testutil.WaitForCondition(t, host.Connected, time.Second, "host should see the client")
	host.DropConnection()

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not noticed")
	}
	select {
	case <-back:
	case <-time.After(3 * time.Second):
		t.Fatal("client did not reconnect")
	}
	testutil.AssertTrue(t, c.IsConnected(), "connected after reconnect")
	testutil.AssertTrue(t, logs.Contains("reconnected on attempt 1"), "reconnect should be logged")
}

func TestDisconnectIsIdempotent(t *testing.T) {
	host := newHost(t, "")
	c := NewClient(host.URL(), "")
	testutil.AssertNoError(t, c.Connect(context.Background()), "Connect")

	c.Disconnect()
	c.Disconnect()
	testutil.AssertFalse(t, c.IsConnected(), "should be disconnected")
	testutil.AssertFalse(t, c.Status().Connected, "status should say disconnected")
}

func TestNextDelay(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := nextDelay(5 * time.Second)
		testutil.AssertTrue(t, d >= 9*time.Second && d <= 11*time.Second, "5s should double with jitter")

		d = nextDelay(50 * time.Second)
		testutil.AssertTrue(t, d >= 54*time.Second && d <= 66*time.Second, "capped at a minute with jitter")

		d = nextDelay(100 * time.Millisecond)
		testutil.AssertEqual(t, time.Second, d, "floor of one second")
	}
}

func TestDrivesPlayerController(t *testing.T) {
	host := newHost(t, "")
	c := connect(t, host, "")

	ctrl := player.NewController(c, upload.NewRegistry(), nil)
	defer ctrl.Close()
	c.OnMetadataLoaded(func(d float64) { _ = ctrl.HandleMetadataLoaded(d) })
	c.OnTimeUpdate(ctrl.HandleTimeUpdate)
	c.OnEnded(ctrl.HandleEnded)

	testutil.AssertNoError(t, ctrl.SetPlaybackRate(3), "rate before audio")
	testutil.AssertNoError(t, ctrl.LoadAudio(upload.Audio{Name: "clip.mp3", MIMEType: "audio/mpeg"}), "LoadAudio")

	testutil.WaitForCondition(t, func() bool {
		return ctrl.Snapshot().Duration == 90 && host.Element().PlaybackRate == 3
	}, 2*time.Second, "metadata should re-apply the stored rate")

	testutil.AssertNoError(t, ctrl.SetVolume(40), "SetVolume")
	testutil.AssertApprox(t, 0.4, host.Element().Volume, 1e-9, "host volume is /100")

	testutil.AssertNoError(t, ctrl.SeekTo(500), "SeekTo")
	testutil.AssertApprox(t, 90, host.Element().CurrentTime, 1e-9, "seek clamps to duration")

	testutil.AssertNoError(t, ctrl.TogglePlay(), "TogglePlay")
	testutil.AssertFalse(t, host.Element().Paused, "host should be playing")

	testutil.AssertNoError(t, host.Emit(EvTimeUpdate, map[string]interface{}{"currentTime": 7}), "Emit")
	testutil.WaitForCondition(t, func() bool {
		_, idx, ok := ctrl.Active()
		return ok && idx == 1
	}, 2*time.Second, "time update should move the active entry")
}
