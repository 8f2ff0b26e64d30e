package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func testSnapshot() *Snapshot {
	start := int64(1700000000000)
	return &Snapshot{
		Version: FormatVersion,
		Rooms: map[string]Room{
			"hall-a": {
				QAStartTime: &start,
				Messages: []Message{
					{
						EventID:           "m1",
						Text:              "why go?",
						SenderID:          "alice",
						SenderName:        "Alice",
						SenderHTTPURL:     "https://cdn/a.png",
						ActiveUpvoteIDs:   []string{"r1", "r2"},
						ActiveDownvoteIDs: []string{"r3"},
					},
					{
						EventID:           "m2",
						Text:              "what about generics?",
						SenderID:          "bob",
						ActiveUpvoteIDs:   []string{},
						ActiveDownvoteIDs: []string{},
					},
				},
			},
			"hall-b": {Messages: []Message{}},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "scoreboard.json"))
	want := testSnapshot()
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, want)
	}
	// Message order within a room is part of the contract.
	if got.Rooms["hall-a"].Messages[0].EventID != "m1" || got.Rooms["hall-a"].Messages[1].EventID != "m2" {
		t.Fatal("message order not preserved")
	}
}

func TestLoadMissingFileYieldsEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "scoreboard.json"))
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Version != FormatVersion || len(snap.Rooms) != 0 {
		t.Fatalf("expected empty snapshot, got %#v", snap)
	}
}

func TestLoadCorruptFileYieldsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoreboard.json")
	if err := os.WriteFile(path, []byte(`{"version":1,"rooms":{`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Rooms) != 0 {
		t.Fatalf("corrupt file must yield empty snapshot, got %#v", snap)
	}
}

func TestLoadVersionMismatchYieldsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoreboard.json")
	if err := os.WriteFile(path, []byte(`{"version":2,"rooms":{"hall-a":{"messages":[]}}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := NewStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Rooms) != 0 {
		t.Fatalf("version mismatch must yield empty snapshot, got %#v", snap)
	}
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoreboard.json")
	store := NewStore(path)

	if err := store.Save(testSnapshot()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	second := Empty()
	second.Rooms["hall-c"] = Room{Messages: []Message{}}
	if err := store.Save(second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
	snap, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := snap.Rooms["hall-c"]; !ok || len(snap.Rooms) != 1 {
		t.Fatalf("canonical file does not hold latest snapshot: %#v", snap)
	}
}

func TestSaveStampsFormatVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoreboard.json")
	snap := Empty()
	snap.Version = 99
	if err := NewStore(path).Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var on struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &on); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if on.Version != FormatVersion {
		t.Fatalf("wrote version %d, want %d", on.Version, FormatVersion)
	}
}
