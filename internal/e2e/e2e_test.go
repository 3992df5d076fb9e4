package e2e

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"benchd/internal/events"
	"benchd/pkg/types"
)

func intPtr(v int) *int { return &v }

// TestE2E_BroadcastWaitAndSessionView runs a blocking broadcast through the
// full stack and reads the stored results back.
func TestE2E_BroadcastWaitAndSessionView(t *testing.T) {
	dir := createTempModelsDir(t, "alpha.gguf", "beta.gguf")
	s := newStack(t, dir, newUpstream(t, echoReply), types.GenerationConfig{})

	resp, body := httpPostJSON(t, s.srv.URL+"/broadcast?wait=1", types.BroadcastRequest{Prompt: "hello"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var br types.BroadcastResponse
	mustDecode(t, body, &br)
	if len(br.Outcomes) != 2 {
		t.Fatalf("outcomes=%+v", br.Outcomes)
	}
	for _, o := range br.Outcomes {
		if o.Error != "" || o.Metrics.TokenCount == 0 {
			t.Fatalf("unexpected outcome: %+v", o)
		}
	}

	resp, body = httpGet(t, s.srv.URL+"/sessions/"+br.SessionID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("session status=%d", resp.StatusCode)
	}
	var cs types.ChatSession
	mustDecode(t, body, &cs)
	if cs.Title != "hello" || len(cs.Results) != 2 {
		t.Fatalf("session=%+v", cs)
	}
	got := map[string]string{}
	for _, r := range cs.Results {
		got[r.ModelID] = r.Response
	}
	if got["alpha.gguf"] != "alpha.gguf: hello" || got["beta.gguf"] != "beta.gguf: hello" {
		t.Fatalf("responses=%v", got)
	}
}

// TestE2E_MentionTargetsOneModel checks @mention routing over HTTP.
func TestE2E_MentionTargetsOneModel(t *testing.T) {
	dir := createTempModelsDir(t, "alpha.gguf", "beta.gguf")
	s := newStack(t, dir, newUpstream(t, echoReply), types.GenerationConfig{})

	_, body := httpPostJSON(t, s.srv.URL+"/broadcast?wait=1", types.BroadcastRequest{Prompt: "@beta what is 2+2?"})
	var br types.BroadcastResponse
	mustDecode(t, body, &br)
	if len(br.Outcomes) != 1 || br.Outcomes[0].ModelID != "beta.gguf" || br.Prompt != "what is 2+2?" {
		t.Fatalf("response=%+v", br)
	}
}

// TestE2E_AsyncBroadcastStreamsEvents starts a non-blocking broadcast and
// follows it on the websocket feed.
func TestE2E_AsyncBroadcastStreamsEvents(t *testing.T) {
	dir := createTempModelsDir(t, "alpha.gguf", "beta.gguf")
	s := newStack(t, dir, newUpstream(t, echoReply), types.GenerationConfig{})

	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	eventually(t, "ws subscription", func() bool { return s.hub.Len() == 1 })

	resp, body := httpPostJSON(t, s.srv.URL+"/broadcast", types.BroadcastRequest{Prompt: "stream me"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var br types.BroadcastResponse
	mustDecode(t, body, &br)
	if len(br.ResultIDs) != 2 {
		t.Fatalf("result ids=%v", br.ResultIDs)
	}

	done := 0
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev events.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if ev.Name == "session_done" {
			done++
		}
		if ev.Name == "broadcast_done" {
			break
		}
	}
	if done != 2 {
		t.Fatalf("session_done events=%d", done)
	}
	for _, id := range br.ResultIDs {
		r, ok := s.store.Result(id)
		if !ok || !strings.HasSuffix(r.Response, "stream me") {
			t.Fatalf("result %s=%+v", id, r)
		}
	}
}

// TestE2E_ReadTimeoutIsReported exercises a stalled upstream.
func TestE2E_ReadTimeoutIsReported(t *testing.T) {
	dir := createTempModelsDir(t, "alpha.gguf")
	stall := make(chan struct{})
	defer close(stall)
	up := newUpstream(t, func(w http.ResponseWriter, model, prompt string) {
		chunk(w, "partial")
		select {
		case <-stall:
		case <-time.After(5 * time.Second):
		}
	})
	s := newStack(t, dir, up, types.GenerationConfig{ReadTimeoutMs: intPtr(100)})

	_, body := httpPostJSON(t, s.srv.URL+"/broadcast?wait=1", types.BroadcastRequest{Prompt: "slow"})
	var br types.BroadcastResponse
	mustDecode(t, body, &br)
	if len(br.Outcomes) != 1 || br.Outcomes[0].ErrorKind != "read_timeout" {
		t.Fatalf("outcomes=%+v", br.Outcomes)
	}
	r, _ := s.store.Result(br.Outcomes[0].ResultID)
	if !strings.Contains(r.Error, "100ms") {
		t.Fatalf("result=%+v", r)
	}
}

// TestE2E_KeepAlivesExtendReadTimeout streams SSE comments slower than the
// data but faster than the read timeout; the generation must finish.
func TestE2E_KeepAlivesExtendReadTimeout(t *testing.T) {
	dir := createTempModelsDir(t, "alpha.gguf")
	up := newUpstream(t, func(w http.ResponseWriter, model, prompt string) {
		chunk(w, "thinking")
		for i := 0; i < 8; i++ {
			time.Sleep(25 * time.Millisecond)
			fmt.Fprint(w, ": keep-alive\n\n")
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		chunk(w, " done")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	s := newStack(t, dir, up, types.GenerationConfig{ReadTimeoutMs: intPtr(60)})

	_, body := httpPostJSON(t, s.srv.URL+"/broadcast?wait=1", types.BroadcastRequest{Prompt: "slow"})
	var br types.BroadcastResponse
	mustDecode(t, body, &br)
	if len(br.Outcomes) != 1 || br.Outcomes[0].Error != "" {
		t.Fatalf("outcomes=%+v", br.Outcomes)
	}
	r, _ := s.store.Result(br.Outcomes[0].ResultID)
	if r.Response != "thinking done" {
		t.Fatalf("result=%+v", r)
	}
}

// TestE2E_QueueDrainsInOrder runs queued prompts one broadcast at a time.
func TestE2E_QueueDrainsInOrder(t *testing.T) {
	dir := createTempModelsDir(t, "alpha.gguf")
	s := newStack(t, dir, newUpstream(t, echoReply), types.GenerationConfig{})

	for i := 1; i <= 3; i++ {
		resp, body := httpPostJSON(t, s.srv.URL+"/queue", types.EnqueueRequest{Prompt: fmt.Sprintf("q%d", i)})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("enqueue status=%d body=%s", resp.StatusCode, body)
		}
	}
	ctx, cancel := contextWithCancel()
	defer cancel()
	go s.engine.Run(ctx)

	eventually(t, "queue drained", func() bool {
		_, body := httpGet(t, s.srv.URL+"/queue")
		var q types.QueueResponse
		mustDecode(t, body, &q)
		return len(q.Items) == 0 && !q.Processing
	})
	sid := s.store.ActiveSessionID()
	cs, ok := s.store.Session(sid)
	if !ok || len(cs.Results) != 3 {
		t.Fatalf("session=%+v", cs)
	}
	for i, r := range cs.Results {
		if want := fmt.Sprintf("q%d", i+1); r.Prompt != want {
			t.Fatalf("result %d prompt=%q want %q", i, r.Prompt, want)
		}
	}
}

// TestE2E_RetryRegeneratesInPlace retries a failed result and keeps its id.
func TestE2E_RetryRegeneratesInPlace(t *testing.T) {
	dir := createTempModelsDir(t, "alpha.gguf")
	var calls atomic.Int32
	up := newUpstream(t, func(w http.ResponseWriter, model, prompt string) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		echoReply(w, model, prompt)
	})
	s := newStack(t, dir, up, types.GenerationConfig{})

	_, body := httpPostJSON(t, s.srv.URL+"/broadcast?wait=1", types.BroadcastRequest{Prompt: "again"})
	var br types.BroadcastResponse
	mustDecode(t, body, &br)
	if br.Outcomes[0].ErrorKind != "provider_error" {
		t.Fatalf("first outcome=%+v", br.Outcomes[0])
	}
	rid := br.Outcomes[0].ResultID

	resp, body := httpPostJSON(t, s.srv.URL+"/sessions/"+br.SessionID+"/results/"+rid+"/retry?wait=1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("retry status=%d body=%s", resp.StatusCode, body)
	}
	var out types.OutcomeStatus
	mustDecode(t, body, &out)
	if out.ResultID != rid || out.Error != "" {
		t.Fatalf("retry outcome=%+v", out)
	}
	r, _ := s.store.Result(rid)
	if r.Response != "alpha.gguf: again" || r.Error != "" {
		t.Fatalf("result=%+v", r)
	}
}
