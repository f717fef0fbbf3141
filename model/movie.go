package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NotAvailable is the placeholder the scraper writes for unknown IMDb fields.
const NotAvailable = "N/A"

type Movie struct {
	Title         string                     `json:"title"`
	OriginalTitle string                     `json:"original_title,omitempty"`
	Href          string                     `json:"href"`
	PosterURL     string                     `json:"poster_url"`
	Duration      string                     `json:"duration"`
	ImdbURL       string                     `json:"imdb_url,omitempty"`
	ImdbRating    string                     `json:"imdb_rating,omitempty"`
	Metascore     string                     `json:"metascore,omitempty"`
	ShowingDays   []string                   `json:"showing_days"`
	Showtimes     map[string]FormatShowtimes `json:"showtimes"`
}

// ShowtimesOn returns the formats screened on date, in document order.
func (m Movie) ShowtimesOn(date string) FormatShowtimes {
	if m.Showtimes == nil {
		return nil
	}
	return m.Showtimes[date]
}

// FormatTimes holds the times of one screening format ("2D Subtitulada", "3D Doblada", ...).
type FormatTimes struct {
	Format string
	Times  []string
}

// FormatShowtimes is a JSON object of format label -> times that keeps the
// key order of the source document.
type FormatShowtimes []FormatTimes

func (f *FormatShowtimes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("showtimes: expected object, got %v", tok)
	}

	var out FormatShowtimes
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("showtimes: unexpected key %v", keyTok)
		}
		var raw []json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("showtimes %q: %w", label, err)
		}
		times := make([]string, 0, len(raw))
		for _, value := range raw {
			var text string
			if bytes.HasPrefix(bytes.TrimSpace(value), []byte(`"`)) {
				if err := json.Unmarshal(value, &text); err == nil {
					times = append(times, text)
					continue
				}
			}
			// Non-string entries are kept verbatim; they never parse as a clock time.
			times = append(times, strings.TrimSpace(string(value)))
		}
		out = append(out, FormatTimes{Format: label, Times: times})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

func (f FormatShowtimes) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Format)
		if err != nil {
			return nil, err
		}
		times := entry.Times
		if times == nil {
			times = []string{}
		}
		value, err := json.Marshal(times)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
