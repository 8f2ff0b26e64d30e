// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// For required chat credentials, use ValidateChatReady.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Twitch chat (bot account)
	TwitchBotUsername  string
	TwitchOAuthToken   string
	TwitchClientID     string
	TwitchClientSecret string

	// Auditoriums: static channel list used when no schedule source is set
	AuditoriumChannels []string

	// Scoreboard
	SnapshotPath string
	HomeDomains  []string
	TopQuestions int

	// Schedule source (pretalx JSON API or pentabarf XML export)
	PretalxBaseURL        string
	PretalxEvent          string
	PretalxToken          string
	PentabarfURL          string
	SchedulePollInterval  time.Duration
	ScheduleAutoCountdown bool

	// Database (optional; empty disables check-in tracking)
	DBDsn string

	// Storage
	DataDir string

	// HTTP
	Port string
}

// Load reads environment variables and applies defaults. It doesn't fail if
// Twitch creds are missing; use ValidateChatReady when you require the chat
// bot. Missing optional variables disable features (schedule, check-ins).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.TwitchBotUsername = os.Getenv("TWITCH_BOT_USERNAME")
	cfg.TwitchOAuthToken = os.Getenv("TWITCH_OAUTH_TOKEN")
	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")

	cfg.AuditoriumChannels = splitList(os.Getenv("AUDITORIUM_CHANNELS"))

	// Storage
	cfg.DataDir = os.Getenv("DATA_DIR")
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	cfg.SnapshotPath = os.Getenv("SNAPSHOT_PATH")
	if cfg.SnapshotPath == "" {
		cfg.SnapshotPath = filepath.Join(cfg.DataDir, "scoreboard.json")
	}

	cfg.HomeDomains = splitList(os.Getenv("HOME_DOMAINS"))

	cfg.TopQuestions = 5
	if v := os.Getenv("TOP_QUESTIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid TOP_QUESTIONS: %q", v)
		}
		cfg.TopQuestions = n
	}

	// Schedule
	cfg.PretalxBaseURL = os.Getenv("PRETALX_BASE_URL")
	cfg.PretalxEvent = os.Getenv("PRETALX_EVENT")
	cfg.PretalxToken = os.Getenv("PRETALX_TOKEN")
	cfg.PentabarfURL = os.Getenv("PENTABARF_URL")
	cfg.SchedulePollInterval = 10 * time.Minute
	if v := os.Getenv("SCHEDULE_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SCHEDULE_POLL_INTERVAL: %q", v)
		}
		cfg.SchedulePollInterval = d
	}
	cfg.ScheduleAutoCountdown = os.Getenv("SCHEDULE_AUTO_COUNTDOWN") == "1"

	// DB: no default here; check-in tracking is opt-in
	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	return cfg, nil
}

// ValidateChatReady returns an error unless the chat bot can actually
// connect: bot credentials plus at least one channel to join (static or via
// a schedule source).
func (c *Config) ValidateChatReady() error {
	if c.TwitchBotUsername == "" || c.TwitchOAuthToken == "" {
		return fmt.Errorf("missing twitch env: require TWITCH_BOT_USERNAME, TWITCH_OAUTH_TOKEN")
	}
	if len(c.AuditoriumChannels) == 0 && !c.HasScheduleSource() {
		return fmt.Errorf("no auditoriums: set AUDITORIUM_CHANNELS or a schedule source")
	}
	return nil
}

// HasScheduleSource reports whether a pretalx or pentabarf source is configured.
func (c *Config) HasScheduleSource() bool {
	return (c.PretalxBaseURL != "" && c.PretalxEvent != "") || c.PentabarfURL != ""
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
