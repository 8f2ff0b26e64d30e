package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// PretalxClient lists talks from a pretalx instance's JSON API, following
// its cursor-style pagination.
type PretalxClient struct {
	BaseURL    string // e.g. https://pretalx.example.org
	Event      string // event slug
	Token      string // optional API token
	HTTPClient *http.Client
}

func (c *PretalxClient) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// pretalx serializes slot rooms either as a plain string or as a
// localized {"en": "..."} object depending on instance configuration.
type pretalxRoom struct {
	Name string
}

func (r *pretalxRoom) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Name = s
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if v, ok := m["en"]; ok {
		r.Name = v
		return nil
	}
	for _, v := range m {
		r.Name = v
		break
	}
	return nil
}

type pretalxTalk struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Slot  *struct {
		Room  pretalxRoom `json:"room"`
		Start time.Time   `json:"start"`
		End   time.Time   `json:"end"`
	} `json:"slot"`
}

type pretalxPage struct {
	Next    string        `json:"next"`
	Results []pretalxTalk `json:"results"`
}

// Talks implements Source. Unscheduled talks (no slot) are skipped.
func (c *PretalxClient) Talks(ctx context.Context) ([]Talk, error) {
	url := fmt.Sprintf("%s/api/events/%s/talks/", c.BaseURL, c.Event)
	var out []Talk
	for url != "" {
		page, err := c.fetchPage(ctx, url)
		if err != nil {
			return nil, err
		}
		for _, t := range page.Results {
			if t.Slot == nil || t.Slot.Room.Name == "" {
				continue
			}
			out = append(out, Talk{
				Code:     t.Code,
				Title:    t.Title,
				Room:     t.Slot.Room.Name,
				Start:    t.Slot.Start,
				Duration: t.Slot.End.Sub(t.Slot.Start),
			})
		}
		url = page.Next
	}
	return out, nil
}

func (c *PretalxClient) fetchPage(ctx context.Context, url string) (*pretalxPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Token "+c.Token)
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pretalx talks request failed: %s", resp.Status)
	}
	var page pretalxPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode pretalx page: %w", err)
	}
	return &page, nil
}
