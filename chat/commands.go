package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"
)

// Commands understood in auditorium channels:
//
//	!questions          top voted questions (anyone)
//	!qa <dur|HH:MM>     start the Q&A countdown; "off" clears the room (mods)
//	!reset              wipe the room's scoreboard and countdown (mods)
//	!checkin            record attendance for the current talk (anyone)
func (b *Bot) handleCommand(ctx context.Context, msg twitch.PrivateMessage) {
	fields := strings.Fields(msg.Message)
	if len(fields) == 0 {
		return
	}
	room := msg.Channel
	switch strings.ToLower(fields[0]) {
	case "!questions":
		b.sayQuestions(room)
	case "!qa":
		if !isModerator(msg) {
			return
		}
		if len(fields) < 2 {
			b.say(room, "usage: !qa <duration like 10m>, !qa HH:MM, or !qa off")
			return
		}
		if strings.EqualFold(fields[1], "off") {
			if err := b.engine.ResetRoom(ctx, room); err != nil {
				slog.Error("reset room", slog.String("room", room), slog.Any("err", err))
				return
			}
			b.say(room, "scoreboard cleared")
			return
		}
		start, err := parseCountdownArg(fields[1], time.Now())
		if err != nil {
			b.say(room, "could not parse that time: "+err.Error())
			return
		}
		if err := b.engine.SetCountdown(ctx, room, start); err != nil {
			slog.Error("set countdown", slog.String("room", room), slog.Any("err", err))
			return
		}
		b.say(room, fmt.Sprintf("Q&A starts at %s", start.Format("15:04 MST")))
	case "!reset":
		if !isModerator(msg) {
			return
		}
		if err := b.engine.ResetRoom(ctx, room); err != nil {
			slog.Error("reset room", slog.String("room", room), slog.Any("err", err))
			return
		}
		b.say(room, "scoreboard cleared")
	case "!checkin":
		b.sayCheckin(ctx, room, msg.User.Name)
	}
}

func (b *Bot) sayQuestions(room string) {
	view, ok := b.engine.GetRanking(room)
	if !ok || len(view.Entries) == 0 {
		b.say(room, "no questions yet, reply to a message with "+"\U0001F44D"+" to vote for it")
		return
	}
	n := b.topN
	if n > len(view.Entries) {
		n = len(view.Entries)
	}
	for i := 0; i < n; i++ {
		e := view.Entries[i]
		b.say(room, fmt.Sprintf("%d. (%+d) %s - %s", i+1, e.Score, e.Text, e.SenderName))
	}
}

func (b *Bot) sayCheckin(ctx context.Context, room, username string) {
	if b.checkins == nil {
		b.say(room, "check-in is not enabled")
		return
	}
	created, err := b.checkins.Record(ctx, room, username, "")
	if err != nil {
		slog.Error("record checkin", slog.String("room", room), slog.Any("err", err))
		return
	}
	if !created {
		b.say(room, "@"+username+" you are already checked in")
		return
	}
	if n, err := b.checkins.Count(ctx, room); err == nil {
		b.say(room, fmt.Sprintf("@%s checked in (%d total)", username, n))
	} else {
		b.say(room, "@"+username+" checked in")
	}
}

// parseCountdownArg accepts either a duration from now ("10m") or a wall
// clock time today ("14:30", local time).
func parseCountdownArg(arg string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(arg); err == nil {
		if d <= 0 {
			return time.Time{}, fmt.Errorf("duration must be positive")
		}
		return now.Add(d), nil
	}
	t, err := time.ParseInLocation("15:04", arg, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("want a duration (10m) or HH:MM")
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if start.Before(now) {
		start = start.AddDate(0, 0, 1)
	}
	return start, nil
}

func isModerator(msg twitch.PrivateMessage) bool {
	return msg.User.Badges["moderator"] > 0 || msg.User.Badges["broadcaster"] > 0
}
