package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/qna-tender/checkin"
	"github.com/onnwee/qna-tender/qna"
)

// Handlers bundles the dependencies the HTTP routes need.
type Handlers struct {
	engine   *qna.Service
	checkins *checkin.Store
	db       *sql.DB
	started  time.Time
}

// NewHandlers creates the handler set. checkins and db may be nil.
func NewHandlers(engine *qna.Service, checkins *checkin.Store, db *sql.DB) *Handlers {
	return &Handlers{engine: engine, checkins: checkins, db: db, started: time.Now()}
}

// HandleRoomsDispatcher routes /rooms/{room}/ranking and /rooms/{room}/checkins.
func (h *Handlers) HandleRoomsDispatcher(w http.ResponseWriter, r *http.Request) {
	room, rest, ok := splitRoomPath(r.URL.Path, "/rooms/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch rest {
	case "ranking":
		h.handleRanking(w, r, room)
	case "checkins":
		h.handleCheckins(w, r, room)
	default:
		http.NotFound(w, r)
	}
}

// handleRanking serves the cached scoreboard for a room. Unknown rooms get
// an empty board, never an error; the response may trail an in-flight vote
// by one mutation.
func (h *Handlers) handleRanking(w http.ResponseWriter, r *http.Request, room string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	view, _ := h.engine.GetRanking(room)
	limit := parseIntQuery(r, "limit", 0)
	entries := view.Entries
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	resp := struct {
		Room      string              `json:"room"`
		QAStart   *int64              `json:"qaStart,omitempty"`
		Questions []qna.RankedMessage `json:"questions"`
	}{Room: room, Questions: entries}
	if view.QAStart != nil {
		ms := view.QAStart.UnixMilli()
		resp.QAStart = &ms
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleCheckins(w http.ResponseWriter, r *http.Request, room string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.checkins == nil {
		http.Error(w, "check-in tracking disabled", http.StatusNotImplemented)
		return
	}
	count, err := h.checkins.Count(r.Context(), room)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	recent, err := h.checkins.Recent(r.Context(), room, parseIntQuery(r, "limit", 50))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Room   string            `json:"room"`
		Count  int               `json:"count"`
		Recent []checkin.Checkin `json:"recent"`
	}{Room: room, Count: count, Recent: recent})
}

// HandleAdminRoomsDispatcher routes /admin/rooms/{room}/reset and
// /admin/rooms/{room}/countdown.
func (h *Handlers) HandleAdminRoomsDispatcher(w http.ResponseWriter, r *http.Request) {
	room, rest, ok := splitRoomPath(r.URL.Path, "/admin/rooms/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch rest {
	case "reset":
		if err := h.engine.ResetRoom(r.Context(), room); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		slog.Info("room reset via admin API", slog.String("room", room))
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
	case "countdown":
		h.handleSetCountdown(w, r, room)
	default:
		http.NotFound(w, r)
	}
}

// handleSetCountdown accepts {"start": <epoch-ms>} or {"in": "<duration>"}.
func (h *Handlers) handleSetCountdown(w http.ResponseWriter, r *http.Request, room string) {
	var body struct {
		Start *int64 `json:"start"`
		In    string `json:"in"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	var start time.Time
	switch {
	case body.Start != nil:
		start = time.UnixMilli(*body.Start).UTC()
	case body.In != "":
		d, err := time.ParseDuration(body.In)
		if err != nil || d <= 0 {
			http.Error(w, "bad duration", http.StatusBadRequest)
			return
		}
		start = time.Now().Add(d)
	default:
		http.Error(w, "need start or in", http.StatusBadRequest)
		return
	}
	if err := h.engine.SetCountdown(r.Context(), room, start); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"qaStart": start.UnixMilli()})
}

// HandleHealthz responds to liveness probe requests.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// HandleReadyz reports ready once the snapshot is loaded and, when a
// database is configured, reachable.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if !h.engine.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "failed_check": "snapshot"})
		return
	}
	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "failed_check": "database", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HandleStatus reports coarse service state for dashboards.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	rooms, messages := h.engine.Stats()
	writeJSON(w, http.StatusOK, struct {
		UptimeSeconds   int64 `json:"uptime_seconds"`
		Rooms           int   `json:"rooms"`
		Messages        int   `json:"messages"`
		CheckinsEnabled bool  `json:"checkins_enabled"`
	}{
		UptimeSeconds:   int64(time.Since(h.started).Seconds()),
		Rooms:           rooms,
		Messages:        messages,
		CheckinsEnabled: h.checkins != nil,
	})
}

// splitRoomPath extracts {room} and the trailing segment from prefix/{room}/{rest}.
func splitRoomPath(path, prefix string) (room, rest string, ok bool) {
	tail := strings.TrimPrefix(path, prefix)
	if tail == path {
		return "", "", false
	}
	parts := strings.SplitN(tail, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}
