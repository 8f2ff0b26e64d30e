// Package chat connects the scoreboard to Twitch chat: it joins auditorium
// channels, turns emoji replies and message deletions into engine events,
// and answers audience/moderator commands.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/qna-tender/checkin"
	"github.com/onnwee/qna-tender/config"
	"github.com/onnwee/qna-tender/qna"
	"github.com/onnwee/qna-tender/twitchapi"
)

// Bot joins the auditorium channels with the configured bot account, feeds
// room events into the engine, and answers commands. It also implements
// qna.Transport: original messages come from an in-memory cache of recent
// chat, sender profiles from Helix.
type Bot struct {
	engine   *qna.Service
	checkins *checkin.Store // nil disables check-in commands
	cache    *eventCache
	helix    *twitchapi.HelixClient
	client   *twitch.Client
	topN     int
}

// NewBot wires a bot from config. The engine is attached afterwards with
// SetEngine (the bot is also the engine's transport, so the two are built
// in stages); checkins may be nil.
func NewBot(cfg *config.Config, checkins *checkin.Store) (*Bot, error) {
	if err := cfg.ValidateChatReady(); err != nil {
		return nil, err
	}
	b := &Bot{
		checkins: checkins,
		cache:    newEventCache(defaultCacheSize),
		topN:     cfg.TopQuestions,
	}
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		b.helix = &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
			ClientID:       cfg.TwitchClientID,
		}
	} else {
		slog.Info("helix profile resolution disabled (no client id/secret); scoreboard falls back to login names")
	}
	b.client = twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
	return b, nil
}

// SetEngine attaches the scoreboard engine. Must be called before Start.
func (b *Bot) SetEngine(engine *qna.Service) { b.engine = engine }

// Start connects to chat and blocks until ctx is cancelled. channels is the
// auditorium list to join; more can be joined later via JoinChannels.
func (b *Bot) Start(ctx context.Context, channels []string) error {
	b.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		b.handleMessage(ctx, msg)
	})
	b.client.OnClearMessage(func(msg twitch.ClearMessage) {
		// Drop from the cache first so a racing reaction cannot resolve a
		// message that chat has already deleted.
		b.cache.drop(msg.Channel, msg.TargetMsgID)
		b.engine.HandleEvent(ctx, qna.Event{
			RoomID:  msg.Channel,
			Type:    qna.EventTypeRedaction,
			Redacts: msg.TargetMsgID,
		})
	})

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		b.client.Disconnect()
		close(done)
	}()

	for _, ch := range channels {
		b.client.Join(normalizeChannel(ch))
	}
	slog.Info("chat bot connecting", slog.Int("channels", len(channels)))
	if err := b.client.Connect(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("twitch chat connect: %w", err)
	}
	<-done
	return nil
}

// JoinChannels joins channels discovered after startup (schedule refreshes).
func (b *Bot) JoinChannels(channels []string) {
	for _, ch := range channels {
		b.client.Join(normalizeChannel(ch))
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg twitch.PrivateMessage) {
	room := msg.Channel

	// Every plain message is cached so a later reaction can resolve it.
	b.cache.put(room, qna.Event{
		RoomID:  room,
		Type:    qna.EventTypeMessage,
		EventID: msg.ID,
		Sender:  msg.User.Name,
		Body:    msg.Message,
		MsgType: qna.MsgTypeText,
	})

	if strings.HasPrefix(msg.Message, "!") {
		b.handleCommand(ctx, msg)
		return
	}

	// A reply whose whole body is a vote emoji is a reaction on the parent.
	if ev, ok := reactionFromReply(msg); ok {
		b.engine.HandleEvent(ctx, ev)
	}
}

// reactionFromReply classifies a chat message as a vote reaction: it must be
// a reply and its trimmed body must be a recognized vote emoji.
func reactionFromReply(msg twitch.PrivateMessage) (qna.Event, bool) {
	if msg.Reply == nil || msg.Reply.ParentMsgID == "" {
		return qna.Event{}, false
	}
	if _, ok := qna.ClassifyVote(msg.Message); !ok {
		return qna.Event{}, false
	}
	return qna.Event{
		RoomID:  msg.Channel,
		Type:    qna.EventTypeReaction,
		EventID: msg.ID,
		Sender:  msg.User.Name,
		Relation: &qna.Relation{
			Type:    qna.RelAnnotation,
			EventID: msg.Reply.ParentMsgID,
			Key:     msg.Message,
		},
	}, true
}

// FetchEvent implements qna.Transport from the recent-message cache. Misses
// (expired, never seen, or deleted) surface as errors so the engine drops
// the dependent reaction.
func (b *Bot) FetchEvent(_ context.Context, roomID, eventID string) (*qna.Event, error) {
	ev, ok := b.cache.get(roomID, eventID)
	if !ok {
		return nil, fmt.Errorf("event %s not in cache for %s", eventID, roomID)
	}
	return &ev, nil
}

// ResolveProfile implements qna.Transport via Helix.
func (b *Bot) ResolveProfile(ctx context.Context, userID string) (qna.Profile, error) {
	if b.helix == nil {
		return qna.Profile{}, fmt.Errorf("helix disabled")
	}
	prof, err := b.helix.GetUserProfile(ctx, userID)
	if err != nil {
		return qna.Profile{}, err
	}
	return qna.Profile{DisplayName: prof.DisplayName, AvatarURL: prof.AvatarURL}, nil
}

func (b *Bot) say(channel, text string) {
	b.client.Say(channel, text)
}

func normalizeChannel(ch string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch), "#"))
}
