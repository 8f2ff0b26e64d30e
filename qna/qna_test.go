package qna

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/onnwee/qna-tender/snapshot"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store := snapshot.NewStore(filepath.Join(t.TempDir(), "scoreboard.json"))
	s := New(store, nil, nil, []string{"example.org"})
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func seed(id, text, sender string) MessageSeed {
	return MessageSeed{EventID: id, Text: text, SenderID: sender}
}

func TestScoreAfterMixedVotes(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// u1, u2 up and d1 down on the same message
	if err := s.RecordReaction(ctx, "room", seed("m1", "how does it scale?", "alice"), "u1", true); err != nil {
		t.Fatalf("record u1: %v", err)
	}
	if err := s.RecordReaction(ctx, "room", seed("m1", "how does it scale?", "alice"), "u2", true); err != nil {
		t.Fatalf("record u2: %v", err)
	}
	if err := s.RecordReaction(ctx, "room", seed("m1", "how does it scale?", "alice"), "d1", false); err != nil {
		t.Fatalf("record d1: %v", err)
	}

	view, ok := s.GetRanking("room")
	if !ok {
		t.Fatal("room should be known")
	}
	if len(view.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(view.Entries))
	}
	if view.Entries[0].Score != 1 {
		t.Fatalf("expected score 1, got %d", view.Entries[0].Score)
	}
}

func TestRedactionOfReactionRecomputesScore(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "u1", true)
	_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "u2", true)
	_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "d1", false)

	if err := s.RemoveReaction(ctx, "room", "u2"); err != nil {
		t.Fatalf("remove u2: %v", err)
	}
	view, _ := s.GetRanking("room")
	if view.Entries[0].Score != 0 {
		t.Fatalf("expected score 0 after removing u2, got %d", view.Entries[0].Score)
	}
}

func TestRedactionOfMessageRemovesEntry(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "u1", true)
	if err := s.RemoveMessage(ctx, "room", "m1"); err != nil {
		t.Fatalf("remove message: %v", err)
	}
	view, _ := s.GetRanking("room")
	if len(view.Entries) != 0 {
		t.Fatalf("expected empty ranking, got %d entries", len(view.Entries))
	}
}

func TestTieBreakKeepsTrackingOrder(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// m1 tracked before m2, both end at score 3
	for i, m := range []string{"m1", "m2"} {
		for j := 0; j < 3; j++ {
			id := string(rune('a'+i)) + string(rune('0'+j))
			_ = s.RecordReaction(ctx, "room", seed(m, "q "+m, "alice"), id, true)
		}
	}
	view, _ := s.GetRanking("room")
	if len(view.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(view.Entries))
	}
	if view.Entries[0].Text != "q m1" || view.Entries[1].Text != "q m2" {
		t.Fatalf("tie not broken by tracking order: %q then %q", view.Entries[0].Text, view.Entries[1].Text)
	}
}

func TestResetClearsCountdownAndMessages(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if err := s.SetCountdown(ctx, "room", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("set countdown: %v", err)
	}
	_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "u1", true)

	if err := s.ResetRoom(ctx, "room"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	view, ok := s.GetRanking("room")
	if !ok {
		t.Fatal("room should still be known after reset")
	}
	if view.QAStart != nil {
		t.Fatal("countdown should be absent after reset")
	}
	if len(view.Entries) != 0 {
		t.Fatalf("expected empty room after reset, got %d entries", len(view.Entries))
	}
}

func TestReactionIdempotentPerID(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "u1", true)
	}
	view, _ := s.GetRanking("room")
	if view.Entries[0].Score != 1 {
		t.Fatalf("duplicate reaction id must not double-count, got score %d", view.Entries[0].Score)
	}
}

func TestRemoveAbsentReactionIsNoop(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "u1", true)
	if err := s.RemoveReaction(ctx, "room", "nope"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if err := s.RemoveReaction(ctx, "room", "u1"); err != nil {
		t.Fatalf("remove u1: %v", err)
	}
	if err := s.RemoveReaction(ctx, "room", "u1"); err != nil {
		t.Fatalf("second remove u1: %v", err)
	}
	view, _ := s.GetRanking("room")
	if view.Entries[0].Score != 0 {
		t.Fatalf("expected score 0, got %d", view.Entries[0].Score)
	}
}

func TestRemovalTargetsWhicheverSetHoldsID(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// d1 is a downvote; removing it must find it regardless of what kind of
	// event the removal nominally targeted.
	_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "u1", true)
	_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "d1", false)
	if err := s.RemoveReaction(ctx, "room", "d1"); err != nil {
		t.Fatalf("remove d1: %v", err)
	}
	view, _ := s.GetRanking("room")
	if view.Entries[0].Score != 1 {
		t.Fatalf("expected score 1, got %d", view.Entries[0].Score)
	}
}

func TestUnknownRoomYieldsEmptyRanking(t *testing.T) {
	s := newTestService(t)
	view, ok := s.GetRanking("never-seen")
	if ok {
		t.Fatal("unknown room must report ok=false")
	}
	if view.Entries == nil || len(view.Entries) != 0 {
		t.Fatalf("unknown room must yield empty entries, got %#v", view.Entries)
	}
}

func TestUnresolvedSeedDropsReaction(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// Seed without text means upstream resolution failed: drop, no error.
	if err := s.RecordReaction(ctx, "room", MessageSeed{EventID: "m1"}, "u1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, _ := s.GetRanking("room")
	if len(view.Entries) != 0 {
		t.Fatalf("unresolved target must not be tracked, got %d entries", len(view.Entries))
	}
}

func TestDeterministicReplay(t *testing.T) {
	type op struct {
		kind   string
		target string
		rid    string
		up     bool
	}
	ops := []op{
		{"react", "m1", "a", true},
		{"react", "m2", "b", true},
		{"react", "m2", "c", true},
		{"react", "m1", "d", false},
		{"removeReaction", "", "c", false},
		{"react", "m3", "e", true},
		{"removeMessage", "m2", "", false},
		{"react", "m3", "f", true},
	}
	run := func() RoomView {
		s := newTestService(t)
		ctx := context.Background()
		for _, o := range ops {
			switch o.kind {
			case "react":
				_ = s.RecordReaction(ctx, "room", seed(o.target, "q "+o.target, "alice"), o.rid, o.up)
			case "removeReaction":
				_ = s.RemoveReaction(ctx, "room", o.rid)
			case "removeMessage":
				_ = s.RemoveMessage(ctx, "room", o.target)
			}
		}
		v, _ := s.GetRanking("room")
		return v
	}
	first := run()
	for i := 0; i < 5; i++ {
		again := run()
		if len(again.Entries) != len(first.Entries) {
			t.Fatalf("replay %d: entry count differs", i)
		}
		for j := range first.Entries {
			if again.Entries[j] != first.Entries[j] {
				t.Fatalf("replay %d: entry %d differs: %#v vs %#v", i, j, again.Entries[j], first.Entries[j])
			}
		}
	}
}

func TestVoteSetsStayDisjoint(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// The same reaction id recorded with both directions must stay in the
	// set it landed in first.
	_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "r1", true)
	_ = s.RecordReaction(ctx, "room", seed("m1", "q", "alice"), "r1", false)

	s.mu.Lock()
	m := s.rooms["room"].find("m1")
	up, down := len(m.Upvotes), len(m.Downvotes)
	score := m.Score()
	s.mu.Unlock()

	if up != 1 || down != 0 {
		t.Fatalf("expected 1 upvote, 0 downvotes; got %d/%d", up, down)
	}
	if score != up-down {
		t.Fatalf("score %d does not match |up|-|down| = %d", score, up-down)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoreboard.json")
	ctx := context.Background()

	s := New(snapshot.NewStore(path), nil, nil, []string{"example.org"})
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load empty: %v", err)
	}
	_ = s.RecordReaction(ctx, "room", seed("m1", "first", "alice"), "u1", true)
	_ = s.RecordReaction(ctx, "room", seed("m2", "second", "bob"), "u2", true)
	_ = s.RecordReaction(ctx, "room", seed("m2", "second", "bob"), "u3", true)
	if err := s.SetCountdown(ctx, "room", time.UnixMilli(1700000000000)); err != nil {
		t.Fatalf("set countdown: %v", err)
	}

	reloaded := New(snapshot.NewStore(path), nil, nil, []string{"example.org"})
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	want, _ := s.GetRanking("room")
	got, ok := reloaded.GetRanking("room")
	if !ok {
		t.Fatal("room lost across reload")
	}
	if len(got.Entries) != len(want.Entries) {
		t.Fatalf("entry count differs after reload: %d vs %d", len(got.Entries), len(want.Entries))
	}
	for i := range want.Entries {
		if got.Entries[i] != want.Entries[i] {
			t.Fatalf("entry %d differs after reload: %#v vs %#v", i, got.Entries[i], want.Entries[i])
		}
	}
	if got.QAStart == nil || !got.QAStart.Equal(*want.QAStart) {
		t.Fatalf("countdown differs after reload: %v vs %v", got.QAStart, want.QAStart)
	}

	// Tie the two messages and confirm tracking order survived the reload.
	_ = reloaded.RecordReaction(ctx, "room", seed("m1", "first", "alice"), "u4", true)
	view, _ := reloaded.GetRanking("room")
	if view.Entries[0].Text != "first" {
		t.Fatalf("tracking order lost across reload: %q ranked first", view.Entries[0].Text)
	}
}
