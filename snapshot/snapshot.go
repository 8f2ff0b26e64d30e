// Package snapshot persists the scoreboard state as a single versioned JSON
// document. Writes go to a temporary file first and are renamed onto the
// canonical path, so the file on disk always holds a complete snapshot:
// either the previous one or the new one, never a torn write.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

// FormatVersion is the only snapshot version this build reads or writes.
// Loaders ignore any other version instead of attempting migration.
const FormatVersion = 1

// Message is the persisted form of one tracked question.
type Message struct {
	EventID           string   `json:"eventId"`
	Text              string   `json:"text"`
	SenderID          string   `json:"senderId"`
	SenderName        string   `json:"senderName,omitempty"`
	SenderHTTPURL     string   `json:"senderHttpUrl,omitempty"`
	ActiveUpvoteIDs   []string `json:"activeUpvoteIds"`
	ActiveDownvoteIDs []string `json:"activeDownvoteIds"`
}

// Room is the persisted state of one auditorium. QAStartTime is epoch
// milliseconds; messages keep first-tracked order.
type Room struct {
	QAStartTime *int64    `json:"qaStartTime,omitempty"`
	Messages    []Message `json:"messages"`
}

// Snapshot is the full persisted document covering every tracked room.
type Snapshot struct {
	Version int             `json:"version"`
	Rooms   map[string]Room `json:"rooms"`
}

// Empty returns a snapshot with no rooms at the current format version.
func Empty() *Snapshot {
	return &Snapshot{Version: FormatVersion, Rooms: map[string]Room{}}
}

// Store reads and writes snapshots at a fixed canonical path.
type Store struct {
	Path string
}

// NewStore returns a store bound to path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Save writes snap atomically: marshal, write <path>.tmp, fsync, rename.
// On any error the canonical path is left untouched.
func (st *Store) Save(snap *Snapshot) error {
	snap.Version = FormatVersion
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	tmp := st.Path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp snapshot: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, st.Path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the canonical path. A missing file means no prior state.
// Unparseable content or an unknown version is logged and likewise treated
// as no prior state so startup never aborts on a corrupt file.
func (st *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(st.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("snapshot unparseable, starting empty", slog.String("path", st.Path), slog.Any("err", err))
		return Empty(), nil
	}
	if snap.Version != FormatVersion {
		slog.Warn("snapshot version mismatch, starting empty", slog.String("path", st.Path), slog.Int("version", snap.Version))
		return Empty(), nil
	}
	if snap.Rooms == nil {
		snap.Rooms = map[string]Room{}
	}
	return &snap, nil
}
