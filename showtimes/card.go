package showtimes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"cartelera-cli/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const imdbWebPrefix = "https://www.imdb.com/"

var imdbTitlePattern = regexp.MustCompile(`/title/(tt\d+)`)

// Card is one movie as presented for a day.
type Card struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Duration string             `json:"duration"`
	Poster   string             `json:"poster_url,omitempty"`
	Href     string             `json:"href"`
	Imdb     *ImdbLink          `json:"imdb,omitempty"`
	Formats  []FormatVisibility `json:"formats"`
	Visible  bool               `json:"visible"`
	Movie    model.Movie        `json:"-"`
}

type ImdbLink struct {
	WebURL string `json:"web_url"`
	// AppURL opens the IMDb app; empty when the URL carries no title id.
	AppURL string `json:"app_url,omitempty"`
	Label  string `json:"label"`
}

// NewImdbLink builds the IMDb link of movie; false when the movie has no usable IMDb URL.
func NewImdbLink(movie model.Movie) (ImdbLink, bool) {
	url := strings.TrimSpace(movie.ImdbURL)
	if !strings.HasPrefix(url, imdbWebPrefix) {
		return ImdbLink{}, false
	}
	link := ImdbLink{WebURL: url, Label: "Buscar en IMDb"}
	if match := imdbTitlePattern.FindStringSubmatch(url); match != nil {
		link.AppURL = fmt.Sprintf("imdb:///title/%s/", match[1])
	}
	if strings.HasPrefix(url, imdbWebPrefix+"title/tt") {
		rating, hasRating := imdbValue(movie.ImdbRating)
		metascore, hasMetascore := imdbValue(movie.Metascore)
		switch {
		case hasRating && hasMetascore:
			link.Label = fmt.Sprintf("IMDb %s / %s", rating, metascore)
		case hasRating:
			link.Label = "IMDb " + rating
		default:
			link.Label = "IMDb"
		}
	}
	return link, true
}

func imdbValue(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == model.NotAvailable {
		return "", false
	}
	return value, true
}

// FormatDuration turns "128 min" into "2h 8min". Strings without a leading
// number are returned unchanged.
func FormatDuration(duration string) string {
	fields := strings.Fields(duration)
	if len(fields) == 0 {
		return duration
	}
	digits := fields[0]
	if end := strings.IndexFunc(digits, func(r rune) bool { return !unicode.IsDigit(r) }); end >= 0 {
		digits = digits[:end]
	}
	minutes, err := strconv.Atoi(digits)
	if err != nil {
		return duration
	}
	return fmt.Sprintf("%dh %dmin", minutes/60, minutes%60)
}

// TitleCase renders scraped upper-case titles as "El Señor De Los Anillos".
func TitleCase(title string) string {
	return cases.Title(language.Spanish).String(title)
}
