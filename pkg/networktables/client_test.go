package networktables

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	typ  int
	data []byte
}

// fakeServer accepts one NT4 client and forwards every message it sends.
func fakeServer(t *testing.T, onConnect func(*websocket.Conn)) (*httptest.Server, <-chan wsMessage) {
	t.Helper()

	msgs := make(chan wsMessage, 64)
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/nt/") {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if onConnect != nil {
			onConnect(conn)
		}
		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msgs <- wsMessage{typ: typ, data: data}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, msgs
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := New(Config{
		Server:     strings.TrimPrefix(srv.URL, "http://"),
		ClientName: "test",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClient_PublishesStoredValueOnConnect(t *testing.T) {
	srv, msgs := fakeServer(t, nil)
	c := newTestClient(t, srv)

	if err := c.Set("/ML/fps", Double(30)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	var published, valued bool
	timeout := time.After(3 * time.Second)
	for !published || !valued {
		select {
		case m := <-msgs:
			switch m.typ {
			case websocket.TextMessage:
				ctrl, err := DecodeControl(m.data)
				if err != nil {
					t.Fatalf("DecodeControl: %v", err)
				}
				for _, msg := range ctrl {
					var p PublishParams
					json.Unmarshal(msg.Params, &p)
					if msg.Method == "publish" && p.Name == "/ML/fps" && p.Type == "double" && p.PubUID == 0 {
						published = true
					}
				}
			case websocket.BinaryMessage:
				frames, err := DecodeFrames(m.data)
				if err != nil {
					t.Fatalf("DecodeFrames: %v", err)
				}
				for _, f := range frames {
					if f.ID == 0 && f.Value.Data == 30.0 {
						valued = true
					}
				}
			}
		case <-timeout:
			t.Fatalf("timed out: published=%v valued=%v", published, valued)
		}
	}

	if !published {
		t.Error("topic was not published")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClient_ReceivesAnnouncedValues(t *testing.T) {
	srv, _ := fakeServer(t, func(conn *websocket.Conn) {
		ann, _ := EncodeControl("announce", AnnounceParams{Name: "/robot/mode", ID: 7, Type: "string"})
		conn.WriteMessage(websocket.TextMessage, ann)

		var buf bytes.Buffer
		EncodeFrame(&buf, Frame{ID: 7, Timestamp: 1, Value: String("auto")})
		conn.WriteMessage(websocket.BinaryMessage, buf.Bytes())
	})
	c := newTestClient(t, srv)

	if _, err := c.Subscribe("/robot/"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := c.Values("/robot/"); len(got) > 0 {
			if v := got["/robot/mode"]; v.Data != "auto" {
				t.Errorf("Values: got %v, want auto", got)
			}
			if other := c.Values(FMSInfoPrefix); len(other) != 0 {
				t.Errorf("Values(%q): got %v, want none", FMSInfoPrefix, other)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("announced value never arrived")
}

// nextControl waits for the next text frame carrying method.
func nextControl(t *testing.T, msgs <-chan wsMessage, method string) json.RawMessage {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case m := <-msgs:
			if m.typ != websocket.TextMessage {
				continue
			}
			ctrl, err := DecodeControl(m.data)
			if err != nil {
				t.Fatalf("DecodeControl: %v", err)
			}
			for _, msg := range ctrl {
				if msg.Method == method {
					return msg.Params
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", method)
		}
	}
}

func TestClient_SetProperties(t *testing.T) {
	srv, msgs := fakeServer(t, nil)
	c := newTestClient(t, srv)

	if err := c.SetProperties("/ML/labels", map[string]interface{}{"retained": true}); err == nil {
		t.Error("expected error for unknown topic")
	}

	if err := c.Set("/ML/labels", StringArray([]string{"cone"})); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.SetProperties("/ML/labels", map[string]interface{}{"retained": true}); err != nil {
		t.Fatalf("SetProperties: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	var pub PublishParams
	if err := json.Unmarshal(nextControl(t, msgs, "publish"), &pub); err != nil {
		t.Fatalf("publish params: %v", err)
	}
	if pub.Properties["retained"] != true {
		t.Errorf("replayed publish properties: got %v, want retained", pub.Properties)
	}

	if err := c.SetProperties("/ML/labels", map[string]interface{}{"persistent": true}); err != nil {
		t.Fatalf("SetProperties: %v", err)
	}
	var sp SetPropertiesParams
	if err := json.Unmarshal(nextControl(t, msgs, "setproperties"), &sp); err != nil {
		t.Fatalf("setproperties params: %v", err)
	}
	if sp.Name != "/ML/labels" || sp.Update["persistent"] != true {
		t.Errorf("setproperties: got %+v", sp)
	}
}

func TestClient_UnpublishesOnShutdown(t *testing.T) {
	srv, msgs := fakeServer(t, nil)
	c := newTestClient(t, srv)

	for _, name := range []string{"/ML/fps", "/ML/nb_objects"} {
		if err := c.Set(name, Double(1)); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	nextControl(t, msgs, "publish")
	cancel()

	timeout := time.After(3 * time.Second)
	var uids []int
	for len(uids) < 2 {
		select {
		case m := <-msgs:
			if m.typ != websocket.TextMessage {
				continue
			}
			ctrl, err := DecodeControl(m.data)
			if err != nil {
				t.Fatalf("DecodeControl: %v", err)
			}
			for _, msg := range ctrl {
				if msg.Method != "unpublish" {
					continue
				}
				var p UnpublishParams
				json.Unmarshal(msg.Params, &p)
				uids = append(uids, p.PubUID)
			}
		case <-timeout:
			t.Fatalf("timed out: unpublished %v", uids)
		}
	}
	if uids[0] != 0 || uids[1] != 1 {
		t.Errorf("unpublished uids: got %v, want [0 1]", uids)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestClient_TypeMismatch(t *testing.T) {
	c, err := New(Config{Server: "localhost", ClientName: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := c.Set("/ML/fps", Double(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set("/ML/fps", Int(1)); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	if got := c.Stats().Topics; got != 1 {
		t.Errorf("Topics: got %d, want 1", got)
	}
}

func TestClient_Closed(t *testing.T) {
	c, err := New(Config{Server: "localhost", ClientName: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Close()

	if err := c.Set("/ML/fps", Double(1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Set after Close: got %v, want ErrClosed", err)
	}
	if err := c.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run after Close: got %v, want ErrClosed", err)
	}
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	c, err := New(Config{
		Server:            "127.0.0.1:1",
		ClientName:        "test",
		MaxAttempts:       2,
		ReconnectInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Run(ctx); err == nil {
		t.Error("expected error after exhausting attempts")
	}
	if c.Connected() {
		t.Error("client should not be connected")
	}
}
