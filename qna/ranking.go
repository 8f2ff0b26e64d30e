package qna

import (
	"fmt"
	"net/url"
	"sort"
	"time"
)

// RankedMessage is one display row of the scoreboard.
type RankedMessage struct {
	Permalink  string `json:"permalink"`
	Text       string `json:"text"`
	SenderName string `json:"senderName"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	Score      int    `json:"score"`
}

// RoomView is the cached, score-sorted projection of one room. It is rebuilt
// wholesale from the room state on every mutation and carries no incremental
// ranking state of its own.
type RoomView struct {
	QAStart *time.Time      `json:"qaStart,omitempty"`
	Entries []RankedMessage `json:"entries"`
}

// GetRanking returns the most recently computed view for a room, which may
// trail an in-flight mutation by one step. Unknown rooms yield an empty
// view and ok=false, never an error.
func (s *Service) GetRanking(roomID string) (RoomView, bool) {
	s.viewMu.RLock()
	defer s.viewMu.RUnlock()
	v, ok := s.views[roomID]
	if !ok {
		return RoomView{Entries: []RankedMessage{}}, false
	}
	return v, true
}

// buildView projects a room state into its display ranking: score descending,
// stable so equal scores keep first-tracked order. Pure function of st.
func buildView(roomID string, st *RoomState, domains []string) RoomView {
	view := RoomView{Entries: make([]RankedMessage, 0, len(st.Messages))}
	if st.QAStart != nil {
		t := *st.QAStart
		view.QAStart = &t
	}
	for _, m := range st.Messages {
		name := m.SenderName
		if name == "" {
			name = m.SenderID
		}
		view.Entries = append(view.Entries, RankedMessage{
			Permalink:  Permalink(roomID, m.EventID, domains),
			Text:       m.Text,
			SenderName: name,
			AvatarURL:  m.SenderHTTPURL,
			Score:      m.Score(),
		})
	}
	sort.SliceStable(view.Entries, func(i, j int) bool {
		return view.Entries[i].Score > view.Entries[j].Score
	})
	return view
}

// Permalink builds a stable web link for an event from the configured home
// domains: the first domain hosts the link, the rest become via hints.
func Permalink(roomID, eventID string, domains []string) string {
	if len(domains) == 0 {
		return roomID + "/" + eventID
	}
	link := fmt.Sprintf("https://%s/%s/%s", domains[0], url.PathEscape(roomID), url.PathEscape(eventID))
	if len(domains) > 1 {
		q := url.Values{}
		for _, d := range domains[1:] {
			q.Add("via", d)
		}
		link += "?" + q.Encode()
	}
	return link
}
