// Package qna implements the auditorium question scoreboard. It tracks emoji
// votes on chat messages per room, keeps a score-ranked view for display, and
// persists the full state crash-safely after every accepted mutation.
//
// Concurrency model: one mutex serializes every mutation across all rooms,
// including the snapshot save, which gives a strict total order over
// mutations. Ranking reads go through a separately locked cache and never
// wait on an in-flight mutation.
package qna

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/qna-tender/snapshot"
	"github.com/onnwee/qna-tender/telemetry"
)

// Message is one tracked question: a chat message plus the ids of the
// reaction events currently voting on it. A reaction id lives in at most one
// of the two sets.
type Message struct {
	EventID       string
	Text          string
	SenderID      string
	SenderName    string
	SenderHTTPURL string
	Upvotes       []string
	Downvotes     []string
}

// Score is the signed vote tally.
func (m *Message) Score() int { return len(m.Upvotes) - len(m.Downvotes) }

// RoomState holds everything tracked for one auditorium. Messages keep the
// order in which they were first tracked, not chat post order.
type RoomState struct {
	QAStart  *time.Time
	Messages []*Message
}

func (st *RoomState) find(eventID string) *Message {
	for _, m := range st.Messages {
		if m.EventID == eventID {
			return m
		}
	}
	return nil
}

// MessageSeed carries the resolved content of a not-yet-tracked message.
// Callers resolve it via the transport before taking the engine lock; when
// the target is already tracked only EventID is consulted.
type MessageSeed struct {
	EventID       string
	Text          string
	SenderID      string
	SenderName    string
	SenderHTTPURL string
}

// Profile is the optional display data resolved for a message sender.
type Profile struct {
	DisplayName string
	AvatarURL   string
}

// Transport is the chat-side collaborator the engine pulls from: original
// message content for lazily tracked targets and sender display profiles.
type Transport interface {
	FetchEvent(ctx context.Context, roomID, eventID string) (*Event, error)
	ResolveProfile(ctx context.Context, userID string) (Profile, error)
}

// Registry answers whether a room is a tracked auditorium. Events for other
// rooms are dropped before any lock is taken.
type Registry interface {
	IsAuditorium(roomID string) bool
}

// Service is the vote ledger plus its derived ranking cache.
type Service struct {
	store       *snapshot.Store
	transport   Transport
	registry    Registry
	homeDomains []string

	mu    sync.Mutex // serializes all mutations and their snapshot saves
	rooms map[string]*RoomState

	viewMu sync.RWMutex
	views  map[string]RoomView
	loaded bool
}

// New returns an engine persisting to store. Call Load before delivering
// live events; delivering earlier risks a load overwriting live mutations.
func New(store *snapshot.Store, transport Transport, registry Registry, homeDomains []string) *Service {
	return &Service{
		store:       store,
		transport:   transport,
		registry:    registry,
		homeDomains: homeDomains,
		rooms:       map[string]*RoomState{},
		views:       map[string]RoomView{},
	}
}

// Load restores state from the snapshot store and rebuilds every room's
// ranking view. Corrupt or missing snapshots yield an empty engine.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.store.Load()
	if err != nil {
		return err
	}
	s.rooms = roomsFromSnapshot(snap)
	views := make(map[string]RoomView, len(s.rooms))
	for id, st := range s.rooms {
		views[id] = buildView(id, st, s.homeDomains)
	}
	s.viewMu.Lock()
	s.views = views
	s.loaded = true
	s.viewMu.Unlock()
	telemetry.SetTrackedRooms(len(s.rooms))
	telemetry.SetTrackedMessages(s.messageCountLocked())
	slog.InfoContext(ctx, "scoreboard loaded", slog.Int("rooms", len(s.rooms)))
	return nil
}

// Ready reports whether Load has completed.
func (s *Service) Ready() bool {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	return s.loaded
}

// ResetRoom replaces the room with an empty state, clearing the countdown
// and every tracked message.
func (s *Service) ResetRoom(ctx context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = &RoomState{}
	return s.commitLocked(ctx, roomID)
}

// SetCountdown sets the Q&A start time for a room, creating it if absent.
func (s *Service) SetCountdown(ctx context.Context, roomID string, start time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.roomLocked(roomID)
	t := start.UTC()
	st.QAStart = &t
	return s.commitLocked(ctx, roomID)
}

// RecordReaction applies one vote. The target is tracked lazily: if it is
// unknown, seed must carry the resolved message content, and a seed without
// content means the resolution failed upstream, so the vote is dropped.
// The call is idempotent per reactionID.
func (s *Service) RecordReaction(ctx context.Context, roomID string, seed MessageSeed, reactionID string, upvote bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.roomLocked(roomID)
	m := st.find(seed.EventID)
	if m == nil {
		if seed.Text == "" {
			telemetry.EventsDropped.Inc()
			return nil
		}
		m = &Message{
			EventID:       seed.EventID,
			Text:          seed.Text,
			SenderID:      seed.SenderID,
			SenderName:    seed.SenderName,
			SenderHTTPURL: seed.SenderHTTPURL,
		}
		st.Messages = append(st.Messages, m)
		telemetry.MessagesTracked.Inc()
	}
	if containsID(m.Upvotes, reactionID) || containsID(m.Downvotes, reactionID) {
		return nil
	}
	if upvote {
		m.Upvotes = append(m.Upvotes, reactionID)
	} else {
		m.Downvotes = append(m.Downvotes, reactionID)
	}
	telemetry.ReactionsRecorded.Inc()
	return s.commitLocked(ctx, roomID)
}

// RemoveReaction deletes reactionID from whichever vote set holds it,
// regardless of vote direction. No-op when the id is not present.
func (s *Service) RemoveReaction(ctx context.Context, roomID, reactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.removeReactionLocked(roomID, reactionID) {
		return nil
	}
	return s.commitLocked(ctx, roomID)
}

// RemoveMessage drops a tracked message entirely. No-op when untracked.
func (s *Service) RemoveMessage(ctx context.Context, roomID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.removeMessageLocked(roomID, messageID) {
		return nil
	}
	return s.commitLocked(ctx, roomID)
}

func (s *Service) removeReactionLocked(roomID, reactionID string) bool {
	st, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	for _, m := range st.Messages {
		if removed := removeID(&m.Upvotes, reactionID); removed {
			telemetry.ReactionsRemoved.Inc()
			return true
		}
		if removed := removeID(&m.Downvotes, reactionID); removed {
			telemetry.ReactionsRemoved.Inc()
			return true
		}
	}
	return false
}

func (s *Service) removeMessageLocked(roomID, messageID string) bool {
	st, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	for i, m := range st.Messages {
		if m.EventID == messageID {
			st.Messages = append(st.Messages[:i], st.Messages[i+1:]...)
			telemetry.MessagesRemoved.Inc()
			return true
		}
	}
	return false
}

func (s *Service) roomLocked(roomID string) *RoomState {
	st, ok := s.rooms[roomID]
	if !ok {
		st = &RoomState{}
		s.rooms[roomID] = st
	}
	return st
}

// commitLocked publishes the room's recomputed view, then saves the entire
// snapshot. Must run under s.mu; a failed save is returned to the caller
// after the in-memory state and view have already advanced.
func (s *Service) commitLocked(ctx context.Context, roomID string) error {
	view := buildView(roomID, s.rooms[roomID], s.homeDomains)
	s.viewMu.Lock()
	s.views[roomID] = view
	s.viewMu.Unlock()

	telemetry.SetTrackedRooms(len(s.rooms))
	telemetry.SetTrackedMessages(s.messageCountLocked())

	start := time.Now()
	err := s.store.Save(snapshotFromRooms(s.rooms))
	telemetry.SnapshotSaveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.SnapshotSaveFailures.Inc()
		telemetry.LoggerWithCorr(ctx).Error("snapshot save failed", slog.Any("err", err))
		return fmt.Errorf("save snapshot: %w", err)
	}
	telemetry.SnapshotSaves.Inc()
	return nil
}

func (s *Service) messageCountLocked() int {
	n := 0
	for _, st := range s.rooms {
		n += len(st.Messages)
	}
	return n
}

// Stats returns the tracked room and message counts from the read cache.
func (s *Service) Stats() (rooms, messages int) {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	for _, v := range s.views {
		messages += len(v.Entries)
	}
	return len(s.views), messages
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids *[]string, id string) bool {
	for i, v := range *ids {
		if v == id {
			*ids = append((*ids)[:i], (*ids)[i+1:]...)
			return true
		}
	}
	return false
}

func roomsFromSnapshot(snap *snapshot.Snapshot) map[string]*RoomState {
	rooms := make(map[string]*RoomState, len(snap.Rooms))
	for id, r := range snap.Rooms {
		st := &RoomState{}
		if r.QAStartTime != nil {
			t := time.UnixMilli(*r.QAStartTime).UTC()
			st.QAStart = &t
		}
		for _, m := range r.Messages {
			st.Messages = append(st.Messages, &Message{
				EventID:       m.EventID,
				Text:          m.Text,
				SenderID:      m.SenderID,
				SenderName:    m.SenderName,
				SenderHTTPURL: m.SenderHTTPURL,
				Upvotes:       append([]string{}, m.ActiveUpvoteIDs...),
				Downvotes:     append([]string{}, m.ActiveDownvoteIDs...),
			})
		}
		rooms[id] = st
	}
	return rooms
}

func snapshotFromRooms(rooms map[string]*RoomState) *snapshot.Snapshot {
	snap := snapshot.Empty()
	for id, st := range rooms {
		r := snapshot.Room{Messages: make([]snapshot.Message, 0, len(st.Messages))}
		if st.QAStart != nil {
			ms := st.QAStart.UnixMilli()
			r.QAStartTime = &ms
		}
		for _, m := range st.Messages {
			r.Messages = append(r.Messages, snapshot.Message{
				EventID:           m.EventID,
				Text:              m.Text,
				SenderID:          m.SenderID,
				SenderName:        m.SenderName,
				SenderHTTPURL:     m.SenderHTTPURL,
				ActiveUpvoteIDs:   append([]string{}, m.Upvotes...),
				ActiveDownvoteIDs: append([]string{}, m.Downvotes...),
			})
		}
		snap.Rooms[id] = r
	}
	return snap
}
