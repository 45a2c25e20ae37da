package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/snipkit/snipkit/pkg/registry"
	"github.com/snipkit/snipkit/pkg/snippet/node"
	"github.com/snipkit/snipkit/pkg/trigger"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	opts := trigger.NewOpts("greet")
	reg.Add("go", &registry.Definition{
		Opts: opts,
		Template: node.MustCompile(
			node.Text("hello "),
			node.Insert(1, "world"),
		),
	})
	return reg
}

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWebSocket))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req Request) Response {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return resp
}

func TestServer_ExpandEditJumpCycle(t *testing.T) {
	srv := NewServer(testRegistry())
	conn := dial(t, srv)

	resp := roundTrip(t, conn, Request{Op: OpExpand, Filetype: "go", Line: "  greet"})
	if resp.Event != EventExpanded {
		t.Fatalf("Expected an expanded event, got %+v", resp)
	}
	if resp.Text != "hello world" {
		t.Errorf("Expected %q, got %q", "hello world", resp.Text)
	}
	if resp.ActivePath != "$.1" {
		t.Errorf("Expected active path $.1, got %q", resp.ActivePath)
	}
	session := resp.Session

	resp = roundTrip(t, conn, Request{Op: OpEdit, Session: session, Text: "bridge"})
	if resp.Event != EventRender || resp.Text != "hello bridge" {
		t.Errorf("Expected a render of the edit, got %+v", resp)
	}

	// Continuation lines inherit the expansion-site indentation.
	resp = roundTrip(t, conn, Request{Op: OpEdit, Session: session, Text: "a\nb"})
	if resp.Text != "hello a\n  b" {
		t.Errorf("Expected the line prefix on continuation lines, got %q", resp.Text)
	}

	resp = roundTrip(t, conn, Request{Op: OpJump, Session: session, Dir: 1})
	if resp.Event != EventRender || resp.ActivePath != "$.0" {
		t.Errorf("Expected the terminal stop, got %+v", resp)
	}

	resp = roundTrip(t, conn, Request{Op: OpJump, Session: session, Dir: 1})
	if resp.Event != EventExited {
		t.Errorf("Expected an exited event past the last stop, got %+v", resp)
	}

	// The session is gone afterwards.
	resp = roundTrip(t, conn, Request{Op: OpEdit, Session: session, Text: "x"})
	if resp.Event != EventError {
		t.Errorf("Expected an error for the dead session, got %+v", resp)
	}
}

func TestServer_Completions(t *testing.T) {
	srv := NewServer(testRegistry())
	conn := dial(t, srv)

	resp := roundTrip(t, conn, Request{Op: OpCompletions, Filetype: "go"})
	if resp.Event != EventCompletions {
		t.Fatalf("Expected a completions event, got %+v", resp)
	}
	if len(resp.Completions) != 1 || resp.Completions[0].Trigger != "greet" {
		t.Errorf("Expected the greet trigger, got %v", resp.Completions)
	}
}

func TestServer_Errors(t *testing.T) {
	srv := NewServer(testRegistry())
	conn := dial(t, srv)

	resp := roundTrip(t, conn, Request{Op: OpExpand, Filetype: "go", Line: "nomatch"})
	if resp.Event != EventError {
		t.Errorf("Expected an error for an unmatched line, got %+v", resp)
	}

	resp = roundTrip(t, conn, Request{Op: "bogus"})
	if resp.Event != EventError {
		t.Errorf("Expected an error for an unknown op, got %+v", resp)
	}

	resp = roundTrip(t, conn, Request{Op: OpJump, Session: 9999})
	if resp.Event != EventError {
		t.Errorf("Expected an error for an unknown session, got %+v", resp)
	}
}

func TestServer_AbortClosesSession(t *testing.T) {
	srv := NewServer(testRegistry())
	conn := dial(t, srv)

	resp := roundTrip(t, conn, Request{Op: OpExpand, Filetype: "go", Line: "greet"})
	if resp.Event != EventExpanded {
		t.Fatalf("Expected an expanded event, got %+v", resp)
	}

	resp = roundTrip(t, conn, Request{Op: OpAbort, Session: resp.Session})
	if resp.Event != EventExited {
		t.Errorf("Expected an exited event on abort, got %+v", resp)
	}
	if srv.Engine().SessionCount() != 0 {
		t.Errorf("Expected no live sessions, got %d", srv.Engine().SessionCount())
	}
}
