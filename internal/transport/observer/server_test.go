package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"immortal.idle/internal/protocol"
	"immortal.idle/internal/sim/catalogs"
	"immortal.idle/internal/sim/character"
	"immortal.idle/internal/sim/collab"
	"immortal.idle/internal/sim/progression"
	"immortal.idle/internal/sim/runtime"
)

func startServer(t *testing.T) (*httptest.Server, *catalogs.Catalogs) {
	t.Helper()
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	c := character.New()
	set := collab.NewSet()
	eng, err := progression.New(progression.Config{}, cats, set.Env(c))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	rt := runtime.New(runtime.Config{TickRateHz: 100, LongTickEvery: 2}, eng, c, set, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rt.Run(ctx)
		close(done)
	}()

	ts := httptest.NewServer(NewServer(rt, cats.Activities.Digest, nil).Mux())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return ts, cats
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/observe"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBootstrap(t *testing.T) {
	ts, cats := startServer(t)

	resp, err := http.Get(ts.URL + "/v1/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code: got %d want 200", resp.StatusCode)
	}
	var boot protocol.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if boot.ProtocolVersion != protocol.Version || boot.CatalogDigest != cats.Activities.Digest {
		t.Fatalf("bootstrap: %+v", boot)
	}
	if boot.TickRateHz != 100 || boot.LongTickEvery != 2 {
		t.Fatalf("params: hz=%d every=%d", boot.TickRateHz, boot.LongTickEvery)
	}
	if boot.Status.Mode != "NORMAL" || len(boot.Status.Activities) != 19 {
		t.Fatalf("status: mode=%s activities=%d", boot.Status.Mode, len(boot.Status.Activities))
	}

	post, err := http.Post(ts.URL+"/v1/status", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("post: got %d want 405", post.StatusCode)
	}
}

func TestObserve_StreamsStatus(t *testing.T) {
	ts, _ := startServer(t)
	conn := dial(t, ts)

	if err := conn.WriteJSON(protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var last protocol.StatusMsg
	deadline := time.Now().Add(5 * time.Second)
	for last.LongTick < 2 {
		_ = conn.SetReadDeadline(deadline)
		var st protocol.StatusMsg
		if err := conn.ReadJSON(&st); err != nil {
			t.Fatalf("read: %v", err)
		}
		if st.Type != protocol.TypeStatus {
			t.Fatalf("type: got %s want STATUS", st.Type)
		}
		if st.LongTick < last.LongTick {
			t.Fatalf("long tick went backwards: %d after %d", st.LongTick, last.LongTick)
		}
		last = st
	}
	for _, a := range last.Activities {
		if !a.Unlocked {
			t.Fatalf("locked activity %s streamed without include_locked", a.Type)
		}
	}
}

func TestObserve_RejectsBadHandshake(t *testing.T) {
	ts, _ := startServer(t)
	cases := []struct {
		msg  any
		code string
	}{
		{map[string]string{"type": "HELLO"}, protocol.ErrProtoBadRequest},
		{protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: "0.1"}, protocol.ErrProtoVersion},
	}
	for _, tc := range cases {
		conn := dial(t, ts)
		if err := conn.WriteJSON(tc.msg); err != nil {
			t.Fatalf("write: %v", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var e protocol.ErrorMsg
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read: %v", err)
		}
		if e.Type != protocol.TypeError || e.Code != tc.code {
			t.Fatalf("error: got %+v want code %s", e, tc.code)
		}
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:5555": true,
		"[::1]:80":       true,
		"10.0.0.2:80":    false,
		"garbage":        false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q): got %v want %v", in, got, want)
		}
	}
}
