package qna

import (
	"context"
	"log/slog"

	"github.com/onnwee/qna-tender/telemetry"
)

// Event kinds delivered by the transport.
const (
	EventTypeMessage   = "message"
	EventTypeReaction  = "reaction"
	EventTypeRedaction = "redaction"
)

// RelAnnotation is the relation type a reaction uses to point at its target.
const RelAnnotation = "annotation"

// MsgTypeText marks a plain text message; only these become questions.
const MsgTypeText = "text"

// Relation links a reaction event to the message it annotates. Key carries
// the reaction symbol.
type Relation struct {
	Type    string
	EventID string
	Key     string
}

// Event is one room event as delivered by the chat transport.
type Event struct {
	RoomID   string
	Type     string
	EventID  string
	Sender   string
	Body     string
	MsgType  string
	Relation *Relation
	Redacts  string
}

// HandleEvent is the transport's entry point into the engine. It classifies
// the event, resolves any auxiliary data outside the engine lock, and then
// drives the matching ledger mutation. Events that do not concern the
// scoreboard are dropped here without ever taking the lock.
func (s *Service) HandleEvent(ctx context.Context, ev Event) {
	if s.registry != nil && !s.registry.IsAuditorium(ev.RoomID) {
		return
	}
	switch ev.Type {
	case EventTypeReaction:
		s.handleReaction(ctx, ev)
	case EventTypeRedaction:
		s.handleRedaction(ctx, ev)
	}
}

func (s *Service) handleReaction(ctx context.Context, ev Event) {
	rel := ev.Relation
	if rel == nil || rel.Type != RelAnnotation || rel.EventID == "" {
		telemetry.EventsDropped.Inc()
		return
	}
	upvote, ok := ClassifyVote(rel.Key)
	if !ok {
		telemetry.EventsDropped.Inc()
		return
	}
	seed := MessageSeed{EventID: rel.EventID}
	if !s.isTracked(ev.RoomID, rel.EventID) {
		// Resolve the original message before taking the lock. A failed
		// fetch (including a target redacted in the meantime) drops the
		// vote silently; that is expected, not an error.
		orig, err := s.transport.FetchEvent(ctx, ev.RoomID, rel.EventID)
		if err != nil || orig == nil || orig.Type != EventTypeMessage || orig.MsgType != MsgTypeText || orig.Body == "" {
			telemetry.EventsDropped.Inc()
			slog.DebugContext(ctx, "reaction target unresolvable, dropping",
				slog.String("room", ev.RoomID), slog.String("target", rel.EventID), slog.Any("err", err))
			return
		}
		seed.Text = orig.Body
		seed.SenderID = orig.Sender
		if prof, err := s.transport.ResolveProfile(ctx, orig.Sender); err == nil {
			seed.SenderName = prof.DisplayName
			seed.SenderHTTPURL = prof.AvatarURL
		} else {
			slog.DebugContext(ctx, "profile resolution failed, degrading",
				slog.String("user", orig.Sender), slog.Any("err", err))
		}
	}
	if err := s.RecordReaction(ctx, ev.RoomID, seed, ev.EventID, upvote); err != nil {
		telemetry.LoggerWithCorr(ctx).Error("record reaction", slog.Any("err", err))
	}
}

// handleRedaction tries the redacted id both as a reaction id and as a
// tracked message id; its original role is not known at this point.
func (s *Service) handleRedaction(ctx context.Context, ev Event) {
	if ev.Redacts == "" {
		return
	}
	if err := s.RemoveReaction(ctx, ev.RoomID, ev.Redacts); err != nil {
		telemetry.LoggerWithCorr(ctx).Error("remove reaction", slog.Any("err", err))
	}
	if err := s.RemoveMessage(ctx, ev.RoomID, ev.Redacts); err != nil {
		telemetry.LoggerWithCorr(ctx).Error("remove message", slog.Any("err", err))
	}
}

func (s *Service) isTracked(roomID, eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomID]
	return ok && st.find(eventID) != nil
}
