// Package checkin records audience attendance per auditorium. It is glue
// around Postgres; when no database is configured the rest of the service
// runs without it.
package checkin

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store persists check-ins.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Checkin is one recorded attendance.
type Checkin struct {
	Channel   string    `json:"channel"`
	Username  string    `json:"username"`
	TalkCode  string    `json:"talkCode,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Record stores a check-in and reports whether it was newly created; a
// repeat check-in for the same channel/user/talk is a no-op.
func (s *Store) Record(ctx context.Context, channel, username, talkCode string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO checkins (channel, username, talk_code) VALUES ($1, $2, $3)
		 ON CONFLICT (channel, username, talk_code) DO NOTHING`,
		channel, username, talkCode)
	if err != nil {
		return false, fmt.Errorf("insert checkin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Count returns the number of check-ins in a channel.
func (s *Store) Count(ctx context.Context, channel string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM checkins WHERE channel=$1`, channel).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count checkins: %w", err)
	}
	return n, nil
}

// Recent lists the latest check-ins in a channel, newest first.
func (s *Store) Recent(ctx context.Context, channel string, limit int) ([]Checkin, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, username, talk_code, created_at FROM checkins
		 WHERE channel=$1 ORDER BY created_at DESC LIMIT $2`, channel, limit)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()
	out := make([]Checkin, 0, limit)
	for rows.Next() {
		var c Checkin
		if err := rows.Scan(&c.Channel, &c.Username, &c.TalkCode, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
