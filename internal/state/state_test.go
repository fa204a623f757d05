package state

import (
	"testing"
	"time"
)

func TestCorrelationStore_UpsertAndReverseIndex(t *testing.T) {
	s := NewCorrelationStore()

	s.Upsert("u1", "hello", "conv-1")

	rec, ok := s.Get("u1")
	if !ok || rec.LastOutboundText != "hello" || rec.ChannelURL != "conv-1" {
		t.Fatalf("Get(u1): got %+v, ok=%v", rec, ok)
	}
	if user, ok := s.UserForChannel("conv-1"); !ok || user != "u1" {
		t.Fatalf("UserForChannel(conv-1): got %q, ok=%v", user, ok)
	}
}

func TestCorrelationStore_ChannelMoveDropsStaleReverseEntry(t *testing.T) {
	s := NewCorrelationStore()
	s.Upsert("u1", "hello", "conv-1")
	s.Upsert("u1", "again", "conv-2")

	if _, ok := s.UserForChannel("conv-1"); ok {
		t.Error("stale reverse entry for conv-1 should be gone")
	}
	if user, ok := s.UserForChannel("conv-2"); !ok || user != "u1" {
		t.Errorf("UserForChannel(conv-2): got %q, ok=%v", user, ok)
	}
	if s.Len() != 1 {
		t.Errorf("Len: got %d, want 1", s.Len())
	}
}

func TestCorrelationStore_UnknownChannel(t *testing.T) {
	s := NewCorrelationStore()
	if _, ok := s.UserForChannel("conv-unknown"); ok {
		t.Error("unknown channel should not resolve")
	}
}

func TestDedupFilter_MarkAndSeen(t *testing.T) {
	f := NewDedupFilter(time.Minute)
	key := Fingerprint("u1", "hello")

	if f.Seen(key) {
		t.Error("fresh filter should not have seen the key")
	}
	f.Mark(key)
	if !f.Seen(key) {
		t.Error("marked key should be seen")
	}
	// A different text from the same user is a different fingerprint.
	if f.Seen(Fingerprint("u1", "hello2")) {
		t.Error("distinct text should not collide")
	}
}

func TestDedupFilter_ExpiryAndSweep(t *testing.T) {
	f := NewDedupFilter(time.Minute)
	current := time.Now()
	f.now = func() time.Time { return current }

	f.Mark(Fingerprint("u1", "hello"))
	f.Mark(Fingerprint("u2", "hi"))

	current = current.Add(30 * time.Second)
	f.Mark(Fingerprint("u3", "late"))
	if !f.Seen(Fingerprint("u1", "hello")) {
		t.Error("key should still be within the window")
	}

	current = current.Add(45 * time.Second)
	if f.Seen(Fingerprint("u1", "hello")) {
		t.Error("expired key should no longer be seen")
	}
	if remaining := f.Sweep(); remaining != 1 {
		t.Errorf("Sweep: %d entries remain, want 1", remaining)
	}
	if !f.Seen(Fingerprint("u3", "late")) {
		t.Error("unexpired key should survive the sweep")
	}
}

func TestUserCache(t *testing.T) {
	c := NewUserCache()
	if c.Known("u1") {
		t.Error("empty cache should not know u1")
	}
	c.Add("u1")
	if !c.Known("u1") {
		t.Error("u1 should be known after Add")
	}
	c.Add("u1")
	if c.Len() != 1 {
		t.Errorf("Len: got %d, want 1", c.Len())
	}
}
