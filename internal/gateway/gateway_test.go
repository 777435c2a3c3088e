package gateway

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vantagics/vizstream/internal/config"
)

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(config.Default().Engine)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHealthz(t *testing.T) {
	_, ts := testServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestConfigEndpoint(t *testing.T) {
	s, ts := testServer(t)
	s.ApplyConfig(config.EngineConfig{DedupCap: 25, MaxSpansPerChunk: 8})

	resp, err := http.Get(ts.URL + "/v1/config")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var cfg config.EngineConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.DedupCap != 25 || cfg.MaxSpansPerChunk != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestTeardownUnknownSession(t *testing.T) {
	_, ts := testServer(t)
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/sessions/ghost", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["dropped"] {
		t.Error("unknown session reported as dropped")
	}
}

// sseEvents reads SSE frames from r and forwards each event name as it
// arrives.
func sseEvents(r *bufio.Reader, out chan<- string) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			close(out)
			return
		}
		line = strings.TrimSpace(line)
		if name, ok := strings.CutPrefix(line, "event:"); ok {
			out <- strings.TrimSpace(name)
		}
	}
}

func TestIngestToStreamRoundtrip(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/v1/stream/demo")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	events := make(chan string, 16)
	go sseEvents(bufio.NewReader(resp.Body), events)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ingest/demo"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	send := func(frame map[string]any) {
		t.Helper()
		if err := conn.WriteJSON(frame); err != nil {
			t.Fatal(err)
		}
	}
	expect := func(name string) {
		t.Helper()
		select {
		case got, ok := <-events:
			if !ok {
				t.Fatal("stream closed early")
			}
			if got != name {
				t.Fatalf("event = %q, want %q", got, name)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q event", name)
		}
	}

	send(map[string]any{
		"message_id": "m1",
		"agent_key":  "analyst",
		"content":    `Look: {"visualizationType":"metrics","metrics":[{"label":"ROAS","value":"3.5"}]} done`,
	})
	expect("delta")
	expect("visualization")

	send(map[string]any{"message_id": "m1", "done": true})
	expect("done")
}
