// Package schedule ingests conference schedules (pretalx JSON API or a
// pentabarf XML export) and derives the set of auditorium rooms plus the
// Q&A slot of each talk.
package schedule

import (
	"context"
	"strings"
	"time"
)

// Talk is one scheduled session.
type Talk struct {
	Code     string
	Title    string
	Room     string
	Start    time.Time
	Duration time.Duration
}

// End is when the talk's slot finishes, which is when Q&A typically starts.
func (t Talk) End() time.Time { return t.Start.Add(t.Duration) }

// Source is anything that can list the conference's talks.
type Source interface {
	Talks(ctx context.Context) ([]Talk, error)
}

// ChannelForRoom maps a schedule room name onto a chat channel name:
// lowercased, '#' stripped, spaces collapsed to dashes.
func ChannelForRoom(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "#")
	return strings.Join(strings.Fields(name), "-")
}
