package checkin_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/onnwee/qna-tender/checkin"
	"github.com/onnwee/qna-tender/testutil"
)

// testChannel returns a channel name unique to this test run so parallel
// runs against a shared database do not collide.
func testChannel(t *testing.T) string {
	return fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestRecordAndCount(t *testing.T) {
	store := checkin.NewStore(testutil.SetupTestDB(t))
	ctx := context.Background()
	channel := testChannel(t)

	created, err := store.Record(ctx, channel, "alice", "talk-1")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !created {
		t.Fatal("first check-in must report created")
	}

	created, err = store.Record(ctx, channel, "alice", "talk-1")
	if err != nil {
		t.Fatalf("repeat record: %v", err)
	}
	if created {
		t.Fatal("repeat check-in must be a no-op")
	}

	if _, err := store.Record(ctx, channel, "bob", "talk-1"); err != nil {
		t.Fatalf("record bob: %v", err)
	}

	n, err := store.Count(ctx, channel)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
}

func TestRecordSameUserDifferentTalks(t *testing.T) {
	store := checkin.NewStore(testutil.SetupTestDB(t))
	ctx := context.Background()
	channel := testChannel(t)

	for _, talk := range []string{"talk-1", "talk-2"} {
		created, err := store.Record(ctx, channel, "alice", talk)
		if err != nil {
			t.Fatalf("record %s: %v", talk, err)
		}
		if !created {
			t.Fatalf("check-in for %s should be new", talk)
		}
	}
	n, err := store.Count(ctx, channel)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
}

func TestRecent(t *testing.T) {
	store := checkin.NewStore(testutil.SetupTestDB(t))
	ctx := context.Background()
	channel := testChannel(t)

	for i := 0; i < 5; i++ {
		if _, err := store.Record(ctx, channel, fmt.Sprintf("user-%d", i), ""); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	recent, err := store.Recent(ctx, channel, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent = %d entries, want 3", len(recent))
	}
	for _, c := range recent {
		if c.Channel != channel || c.CreatedAt.IsZero() {
			t.Fatalf("unexpected checkin: %#v", c)
		}
	}

	// Out-of-range limits fall back to the default.
	if _, err := store.Recent(ctx, channel, -1); err != nil {
		t.Fatalf("recent with bad limit: %v", err)
	}
}
