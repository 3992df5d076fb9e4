package events

import "testing"

func TestHub_FanOut(t *testing.T) {
	h := NewHub(4)
	a := h.Subscribe()
	b := h.Subscribe()
	defer a.Close()
	defer b.Close()
	h.Publish(Event{Name: "x", ResultID: "r1"})
	for _, s := range []*Subscription{a, b} {
		e := <-s.C
		if e.Name != "x" || e.ResultID != "r1" {
			t.Fatalf("unexpected event: %+v", e)
		}
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	h := NewHub(1)
	s := h.Subscribe()
	defer s.Close()
	h.Publish(Event{Name: "a"})
	h.Publish(Event{Name: "b"})
	h.Publish(Event{Name: "c"})
	if s.Dropped() != 2 {
		t.Fatalf("expected 2 dropped, got %d", s.Dropped())
	}
	if e := <-s.C; e.Name != "a" {
		t.Fatalf("expected first event kept, got %q", e.Name)
	}
}

func TestHub_CloseUnregisters(t *testing.T) {
	h := NewHub(1)
	s := h.Subscribe()
	s.Close()
	s.Close()
	if h.Len() != 0 {
		t.Fatalf("expected no subscribers, got %d", h.Len())
	}
	h.Publish(Event{Name: "after-close"})
	if _, ok := <-s.C; ok {
		t.Fatalf("expected closed channel")
	}
}

func TestMulti_PublishesToAll(t *testing.T) {
	a, b := NewMemoryPublisher(), NewMemoryPublisher()
	Multi{a, nil, b}.Publish(Event{Name: "e"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("expected one event each, got %d and %d", len(a.Events()), len(b.Events()))
	}
}
