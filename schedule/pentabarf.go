package schedule

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// PentabarfSource fetches and parses a pentabarf XML schedule export, the
// format FOSDEM-style conferences publish.
type PentabarfSource struct {
	URL        string
	HTTPClient *http.Client
}

// Talks implements Source.
func (s *PentabarfSource) Talks(ctx context.Context) ([]Talk, error) {
	hc := s.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pentabarf request failed: %s", resp.Status)
	}
	return ParsePentabarf(resp.Body)
}

type pentabarfDoc struct {
	XMLName xml.Name `xml:"schedule"`
	Days    []struct {
		Date  string `xml:"date,attr"`
		Rooms []struct {
			Name   string `xml:"name,attr"`
			Events []struct {
				ID       string `xml:"id,attr"`
				Slug     string `xml:"slug"`
				Title    string `xml:"title"`
				Start    string `xml:"start"`
				Duration string `xml:"duration"`
			} `xml:"event"`
		} `xml:"room"`
	} `xml:"day"`
}

// ParsePentabarf decodes a pentabarf XML document. Events with malformed
// times are skipped with a warning rather than failing the whole schedule.
func ParsePentabarf(r io.Reader) ([]Talk, error) {
	var doc pentabarfDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode pentabarf: %w", err)
	}
	var out []Talk
	for _, day := range doc.Days {
		date, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			slog.Warn("pentabarf: bad day date, skipping", slog.String("date", day.Date))
			continue
		}
		for _, room := range day.Rooms {
			for _, ev := range room.Events {
				start, err := atTime(date, ev.Start)
				if err != nil {
					slog.Warn("pentabarf: bad event start, skipping", slog.String("event", ev.ID), slog.String("start", ev.Start))
					continue
				}
				dur, err := hhmm(ev.Duration)
				if err != nil {
					slog.Warn("pentabarf: bad event duration, skipping", slog.String("event", ev.ID), slog.String("duration", ev.Duration))
					continue
				}
				code := ev.Slug
				if code == "" {
					code = ev.ID
				}
				out = append(out, Talk{
					Code:     code,
					Title:    ev.Title,
					Room:     room.Name,
					Start:    start,
					Duration: dur,
				})
			}
		}
	}
	return out, nil
}

func atTime(date time.Time, hm string) (time.Time, error) {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

func hhmm(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
