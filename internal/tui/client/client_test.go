package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flagpole/c2/internal/contest"
	"github.com/flagpole/c2/internal/session"
	"github.com/flagpole/c2/internal/ws"
)

func frame(t *testing.T, msgType ws.MessageType, payload interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(ws.WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestDecode(t *testing.T) {
	snap := Decode(frame(t, ws.MsgSnapshot, ws.SnapshotPayload{State: session.Running}))
	if m, ok := snap.(SnapshotMsg); !ok || m.Payload.State != session.Running {
		t.Errorf("snapshot decoded as %#v", snap)
	}

	prog := Decode(frame(t, ws.MsgProgress, ws.ProgressPayload{Elapsed: 3 * time.Second}))
	if m, ok := prog.(ProgressMsg); !ok || m.Payload.Elapsed != 3*time.Second {
		t.Errorf("progress decoded as %#v", prog)
	}

	res := Decode(frame(t, ws.MsgResult, ws.ResultPayload{Result: contest.Result{Winner: contest.SideB}}))
	if m, ok := res.(ResultMsg); !ok || m.Payload.Result.Winner != contest.SideB {
		t.Errorf("result decoded as %#v", res)
	}

	if m, ok := Decode(frame(t, ws.MsgError, ws.ErrorPayload{Message: "x"})).(ServerErrorMsg); !ok || m.Message != "x" {
		t.Error("error frame should decode to ServerErrorMsg")
	}
	if got := Decode([]byte(`{"type":"mystery","payload":{}}`)); got != nil {
		t.Errorf("unknown type decoded as %#v", got)
	}
	if got := Decode([]byte(`not json`)); got != nil {
		t.Errorf("garbage decoded as %#v", got)
	}
}

func TestHTTPClientPress(t *testing.T) {
	var gotPath, gotSide, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSide = r.URL.Query().Get("side")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok")
	if err := c.Press("10.0.0.1", contest.SideB); err != nil {
		t.Fatalf("Press() error: %v", err)
	}
	if gotPath != "/api/nodes/10.0.0.1/press" || gotSide != "b" || gotAuth != "Bearer tok" {
		t.Errorf("request = %s side=%s auth=%q", gotPath, gotSide, gotAuth)
	}
}

func TestHTTPClientPressConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ownership is not in hardware mode", http.StatusConflict)
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, "").Press("n", contest.SideA)
	if err == nil || !strings.Contains(err.Error(), "409") {
		t.Errorf("Press() error = %v, want the 409 surfaced", err)
	}
}

func TestHTTPClientGetSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/session" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(ws.SnapshotPayload{State: session.Completed})
	}))
	defer srv.Close()

	p, err := NewHTTPClient(srv.URL, "").GetSession()
	if err != nil {
		t.Fatalf("GetSession() error: %v", err)
	}
	if p.State != session.Completed {
		t.Errorf("State = %v, want Completed", p.State)
	}
}
