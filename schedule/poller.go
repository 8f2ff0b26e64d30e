package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/qna-tender/qna"
)

// Joiner is notified when the schedule reveals new auditorium channels, so
// the chat bot can join them.
type Joiner interface {
	JoinChannels(channels []string)
}

// StartPoller refreshes the registry from src on an interval until ctx is
// cancelled. When autoCountdown is set, a room's Q&A countdown is armed as
// its current talk's slot approaches its end. The first fetch happens
// immediately so the registry is useful before the first tick.
func StartPoller(ctx context.Context, src Source, reg *Registry, joiner Joiner, engine *qna.Service, interval time.Duration, autoCountdown bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("schedule poller started", slog.Duration("interval", interval), slog.Bool("auto_countdown", autoCountdown))
	for {
		refreshOnce(ctx, src, reg, joiner, engine, interval, autoCountdown)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func refreshOnce(ctx context.Context, src Source, reg *Registry, joiner Joiner, engine *qna.Service, interval time.Duration, autoCountdown bool) {
	talks, err := src.Talks(ctx)
	if err != nil {
		slog.Warn("schedule fetch failed", slog.Any("err", err))
		return
	}
	channels := make([]string, 0, len(talks))
	for _, t := range talks {
		channels = append(channels, ChannelForRoom(t.Room))
	}
	reg.Add(channels)
	if joiner != nil {
		joiner.JoinChannels(reg.Rooms())
	}
	slog.Debug("schedule refreshed", slog.Int("talks", len(talks)), slog.Int("rooms", len(reg.Rooms())))

	if !autoCountdown || engine == nil {
		return
	}
	now := time.Now()
	for _, t := range talks {
		// Arm the countdown once the talk's Q&A slot falls inside the next
		// poll window; moderators can still override with !qa or !reset.
		end := t.End()
		if end.After(now) && end.Before(now.Add(interval)) {
			room := ChannelForRoom(t.Room)
			if err := engine.SetCountdown(ctx, room, end); err != nil {
				slog.Warn("auto countdown failed", slog.String("room", room), slog.Any("err", err))
			} else {
				slog.Info("auto countdown armed", slog.String("room", room), slog.String("talk", t.Code), slog.Time("qa_start", end))
			}
		}
	}
}
