package bench

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"benchd/internal/provider"
	"benchd/pkg/types"
)

func TestBroadcast_EndToEndOneSuccessOneError(t *testing.T) {
	e, fp := newTestEngine(t, testModel("a", "A"), testModel("b", "B"))
	fp.set("a", func(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
		emit(provider.Event{Kind: provider.EventStart})
		for _, d := range []string{"Hello", " big", " world"} {
			emit(provider.Event{Kind: provider.EventDelta, Text: d})
			time.Sleep(3 * time.Millisecond)
		}
		emit(provider.Event{Kind: provider.EventFinish, Usage: &provider.Usage{CompletionTokens: 2}})
		return nil
	})
	fp.set("b", func(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
		return errors.New("upstream exploded")
	})

	rep, err := e.Broadcast(testCtx(t), "Explain X", "")
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(rep.Outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(rep.Outcomes))
	}

	oa := outcomeFor(t, rep, "a")
	if !oa.OK() {
		t.Fatalf("model a failed: %v", oa.Err)
	}
	ra := mustResult(t, e, oa.ResultID)
	if ra.Response != "Hello big world" {
		t.Fatalf("response: %q", ra.Response)
	}
	// 15 runes * 0.25 = 3.75 -> 4, larger than the reported 2.
	if ra.Metrics.TokenCount != 4 {
		t.Fatalf("token count: %d", ra.Metrics.TokenCount)
	}
	if ra.Metrics.TTFT <= 0 || ra.Metrics.TotalDuration < ra.Metrics.TTFT || ra.Metrics.TPS <= 0 {
		t.Fatalf("unexpected metrics: %+v", ra.Metrics)
	}
	if ra.Error != "" {
		t.Fatalf("unexpected error on a: %q", ra.Error)
	}

	ob := outcomeFor(t, rep, "b")
	if !IsProviderError(ob.Err) {
		t.Fatalf("expected provider error, got %v", ob.Err)
	}
	rb := mustResult(t, e, ob.ResultID)
	if rb.Error == "" || !strings.Contains(rb.Error, "upstream exploded") {
		t.Fatalf("error on b: %q", rb.Error)
	}
	if rb.Response != "" {
		t.Fatalf("failed result response should stay empty, got %q", rb.Response)
	}
	assertQuiescent(t, e)
}

func TestSession_ProviderUsageWinsWhenLarger(t *testing.T) {
	e, fp := newTestEngine(t, testModel("a", "A"))
	fp.set("a", func(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
		emit(provider.Event{Kind: provider.EventDelta, Text: "hi"})
		emit(provider.Event{Kind: provider.EventFinish, Usage: &provider.Usage{CompletionTokens: 9}})
		return nil
	})
	rep, err := e.Broadcast(testCtx(t), "q", "")
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if got := rep.Outcomes[0].Metrics.TokenCount; got != 9 {
		t.Fatalf("token count: %d", got)
	}
}

func TestSession_NilReturnWithoutFinishSucceeds(t *testing.T) {
	e, fp := newTestEngine(t, testModel("a", "A"))
	fp.set("a", func(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
		emit(provider.Event{Kind: provider.EventDelta, Text: "done"})
		return nil
	})
	rep, _ := e.Broadcast(testCtx(t), "q", "")
	o := rep.Outcomes[0]
	if !o.OK() {
		t.Fatalf("expected success, got %v", o.Err)
	}
	if r := mustResult(t, e, o.ResultID); r.Response != "done" {
		t.Fatalf("response: %q", r.Response)
	}
}

func TestSession_ReasoningAccumulates(t *testing.T) {
	e, fp := newTestEngine(t, testModel("a", "A"))
	fp.set("a", func(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
		emit(provider.Event{Kind: provider.EventDelta, Reasoning: "think "})
		emit(provider.Event{Kind: provider.EventDelta, Reasoning: "more"})
		emit(provider.Event{Kind: provider.EventDelta, Text: "answer"})
		return nil
	})
	rep, _ := e.Broadcast(testCtx(t), "q", "")
	r := mustResult(t, e, rep.Outcomes[0].ResultID)
	if r.Reasoning != "think more" || r.Response != "answer" {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestSession_ConnectTimeoutDoesNotBlockSiblings(t *testing.T) {
	slow := testModel("slow", "Slow")
	slow.Config = &types.GenerationConfig{ConnectTimeoutMs: types.Ptr(30)}
	e, fp := newTestEngine(t, slow, testModel("fast", "Fast"))
	fp.set("slow", func(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	rep, err := e.Broadcast(testCtx(t), "q", "")
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("broadcast took too long")
	}
	so := outcomeFor(t, rep, "slow")
	if !IsConnectTimeout(so.Err) {
		t.Fatalf("expected connect timeout, got %v", so.Err)
	}
	if r := mustResult(t, e, so.ResultID); !strings.Contains(r.Error, "connect timeout") {
		t.Fatalf("stored error: %q", r.Error)
	}
	if of := outcomeFor(t, rep, "fast"); !of.OK() {
		t.Fatalf("fast model failed: %v", of.Err)
	}
	assertQuiescent(t, e)
}

func TestSession_ReadTimeoutAfterSilence(t *testing.T) {
	m := testModel("a", "A")
	m.Config = &types.GenerationConfig{ReadTimeoutMs: types.Ptr(40)}
	e, fp := newTestEngine(t, m)
	fp.set("a", hang)

	rep, _ := e.Broadcast(testCtx(t), "q", "")
	o := rep.Outcomes[0]
	if !IsReadTimeout(o.Err) {
		t.Fatalf("expected read timeout, got %v", o.Err)
	}
	r := mustResult(t, e, o.ResultID)
	if r.Response != "" {
		t.Fatalf("partial response must not become authoritative, got %q", r.Response)
	}
	assertQuiescent(t, e)
}

func TestSession_SteadyTrickleNeverTimesOut(t *testing.T) {
	m := testModel("a", "A")
	m.Config = &types.GenerationConfig{ReadTimeoutMs: types.Ptr(60)}
	e, fp := newTestEngine(t, m)
	fp.set("a", func(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
		emit(provider.Event{Kind: provider.EventStart})
		for i := 0; i < 10; i++ {
			select {
			case <-time.After(30 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			emit(provider.Event{Kind: provider.EventDelta, Text: "."})
		}
		emit(provider.Event{Kind: provider.EventFinish})
		return nil
	})
	rep, _ := e.Broadcast(testCtx(t), "q", "")
	o := rep.Outcomes[0]
	if !o.OK() {
		t.Fatalf("trickling stream timed out: %v", o.Err)
	}
	if r := mustResult(t, e, o.ResultID); r.Response != ".........." {
		t.Fatalf("response: %q", r.Response)
	}
}

func TestSession_HeartbeatsKeepStreamAlive(t *testing.T) {
	m := testModel("a", "A")
	m.Config = &types.GenerationConfig{ReadTimeoutMs: types.Ptr(60)}
	e, fp := newTestEngine(t, m)
	fp.set("a", func(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
		emit(provider.Event{Kind: provider.EventStart})
		emit(provider.Event{Kind: provider.EventDelta, Text: "slow"})
		// About four read-timeout periods of keep-alives only.
		for i := 0; i < 10; i++ {
			select {
			case <-time.After(25 * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
			emit(provider.Event{Kind: provider.EventActivity})
		}
		emit(provider.Event{Kind: provider.EventDelta, Text: " answer"})
		emit(provider.Event{Kind: provider.EventFinish})
		return nil
	})
	rep, _ := e.Broadcast(testCtx(t), "q", "")
	o := rep.Outcomes[0]
	if !o.OK() {
		t.Fatalf("stream with keep-alives timed out: %v", o.Err)
	}
	if r := mustResult(t, e, o.ResultID); r.Response != "slow answer" {
		t.Fatalf("heartbeats must not change the response, got %q", r.Response)
	}
}

func TestSession_ParseErrorKind(t *testing.T) {
	e, fp := newTestEngine(t, testModel("a", "A"))
	fp.set("a", func(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
		emit(provider.Event{Kind: provider.EventStart})
		return &provider.ParseError{Payload: "{", Err: errors.New("eof")}
	})
	rep, _ := e.Broadcast(testCtx(t), "q", "")
	if !IsParseError(rep.Outcomes[0].Err) {
		t.Fatalf("expected parse error, got %v", rep.Outcomes[0].Err)
	}
}

func TestSession_UnknownProviderIsRecorded(t *testing.T) {
	m := testModel("a", "A")
	m.Provider = "nowhere"
	e, _ := newTestEngine(t, m)
	rep, _ := e.Broadcast(testCtx(t), "q", "")
	o := rep.Outcomes[0]
	if !IsProviderError(o.Err) {
		t.Fatalf("expected provider error, got %v", o.Err)
	}
	if r := mustResult(t, e, o.ResultID); r.Error == "" {
		t.Fatalf("error not recorded")
	}
}

func TestSession_InterimPatchesReachStore(t *testing.T) {
	e, fp := newTestEngine(t, testModel("a", "A"))
	seen := make(chan string, 1)
	fp.set("a", func(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
		emit(provider.Event{Kind: provider.EventDelta, Text: "first"})
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Millisecond):
			}
			for _, id := range e.LiveSessions() {
				if v, ok := e.Store().View(id); ok && v.Response == "first" {
					seen <- v.Response
					emit(provider.Event{Kind: provider.EventFinish})
					return nil
				}
			}
		}
	})
	rep, _ := e.Broadcast(testCtx(t), "q", "")
	if !rep.Outcomes[0].OK() {
		t.Fatalf("unexpected failure: %v", rep.Outcomes[0].Err)
	}
	select {
	case <-seen:
	default:
		t.Fatalf("interim patch never published")
	}
	if e.Store().Batches() == 0 {
		t.Fatalf("expected at least one batch")
	}
}

func TestSession_ImageMode(t *testing.T) {
	m := testModel("img", "Img")
	m.Image = true
	st, fp := newTestEngine(t, m)
	ip := &fakeImages{fakeProvider: fp, images: []provider.Image{
		{URL: "https://img.example/1.png"},
		{B64JSON: "AAAA"},
	}}
	st.Providers().Register("fake", ip)

	rep, _ := st.Broadcast(testCtx(t), "a cat", "")
	o := rep.Outcomes[0]
	if !o.OK() {
		t.Fatalf("image session failed: %v", o.Err)
	}
	r := mustResult(t, st, o.ResultID)
	want := "![image 1](https://img.example/1.png)\n\n![image 2](data:image/png;base64,AAAA)"
	if r.Response != want {
		t.Fatalf("response:\n got %q\nwant %q", r.Response, want)
	}
	if r.Metrics.TPS != 0 || r.Metrics.TTFT != r.Metrics.TotalDuration {
		t.Fatalf("unexpected image metrics: %+v", r.Metrics)
	}
}

func TestSession_ImageModeOnTextProvider(t *testing.T) {
	m := testModel("img", "Img")
	m.Image = true
	e, _ := newTestEngine(t, m)
	rep, _ := e.Broadcast(testCtx(t), "a cat", "")
	o := rep.Outcomes[0]
	if !IsProviderError(o.Err) || !errors.Is(o.Err, provider.ErrUnsupported) {
		t.Fatalf("expected unsupported provider error, got %v", o.Err)
	}
}

func TestCapError(t *testing.T) {
	long := strings.Repeat("é", 400)
	got := capError(long)
	if len(got) > maxErrorBytes {
		t.Fatalf("capped length %d", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("missing ellipsis")
	}
	if !strings.HasPrefix(got, "éé") || strings.ContainsRune(got, '�') {
		t.Fatalf("cut inside a rune: %q", got[len(got)-8:])
	}
	if capError("short") != "short" {
		t.Fatalf("short messages pass through")
	}
}
