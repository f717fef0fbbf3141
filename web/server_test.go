package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cartelera-cli/model"
	"cartelera-cli/showtimes"
	"cartelera-cli/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	movies := []model.Movie{
		{
			Title:       "Amélie",
			Href:        "/amelie",
			ShowingDays: []string{"2024-01-10", "2024-01-20"},
			Showtimes: map[string]model.FormatShowtimes{
				"2024-01-10": {{Format: "2D", Times: []string{"18:00"}}},
				"2024-01-20": {{Format: "2D", Times: []string{"10:15", "22:40"}}},
			},
		},
		{
			Title:       "Dune",
			Href:        "/dune",
			ShowingDays: []string{"2024-01-20"},
			Showtimes: map[string]model.FormatShowtimes{
				"2024-01-20": {{Format: "IMAX", Times: []string{"09:30"}}},
			},
		},
	}
	srv := NewServer(movies, store.NewMemorySessions(), func() time.Time { return testNow })
	server := httptest.NewServer(srv.Router())
	t.Cleanup(server.Close)
	return server
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func getJSON(t *testing.T, client *http.Client, url string, out any) int {
	t.Helper()
	res, err := client.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestPing(t *testing.T) {
	server := testServer(t)
	res, err := http.Get(server.URL + "/ping")
	require.NoError(t, err)
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestDays(t *testing.T) {
	server := testServer(t)
	browser := newBrowser(t)

	var resp daysResponse
	status := getJSON(t, browser, server.URL+"/api/days", &resp)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2024-01-20", resp.Active)
	require.Len(t, resp.Days, 2)
	assert.Equal(t, "2024-01-20", resp.Days[0].Date)
	assert.True(t, resp.Days[1].Past)
}

func TestDay_Filters(t *testing.T) {
	server := testServer(t)
	browser := newBrowser(t)

	var section showtimes.Section
	status := getJSON(t, browser, server.URL+"/api/days/2024-01-20?start=10:00&end=12:00", &section)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "10:00 a 12:00", section.RangeLabel)
	assert.Equal(t, 1, section.VisibleCount)
	require.Len(t, section.Cards, 2)
	assert.True(t, section.Cards[0].Visible)
	assert.False(t, section.Cards[1].Visible)

	status = getJSON(t, browser, server.URL+"/api/days/2024-01-20?q=DUNE", &section)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, section.VisibleCount)
	assert.True(t, section.Cards[1].Visible)
	assert.Equal(t, "Filtrar Hora", section.RangeLabel)

	var failure map[string]string
	status = getJSON(t, browser, server.URL+"/api/days/2024-01-20?start=10am", &failure)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, failure["error"], "start")

	status = getJSON(t, browser, server.URL+"/api/days/2030-01-01", &failure)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDismiss_ScopedToSession(t *testing.T) {
	server := testServer(t)
	alice := newBrowser(t)
	bob := newBrowser(t)

	// The first request hands out the session cookie.
	getJSON(t, alice, server.URL+"/api/days", nil)

	body := `{"id":"2024-01-20|Amélie|/amelie","date":"2024-01-20"}`
	res, err := alice.Post(server.URL+"/api/dismiss", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	var view showtimes.View
	require.NoError(t, json.NewDecoder(res.Body).Decode(&view))
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "2024-01-20", view.Active)
	require.NotNil(t, view.Section)
	require.Len(t, view.Section.Cards, 1)
	assert.Equal(t, "Dune", view.Section.Cards[0].Title)

	var section showtimes.Section
	getJSON(t, alice, server.URL+"/api/days/2024-01-20", &section)
	assert.Len(t, section.Cards, 1)

	getJSON(t, bob, server.URL+"/api/days/2024-01-20", &section)
	assert.Len(t, section.Cards, 2, "another session must not see the dismissal")

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/dismissed", nil)
	require.NoError(t, err)
	res, err = alice.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	getJSON(t, alice, server.URL+"/api/days/2024-01-20", &section)
	assert.Len(t, section.Cards, 2)
}

func TestDismiss_BadRequests(t *testing.T) {
	server := testServer(t)
	browser := newBrowser(t)

	for _, body := range []string{`{"id":"  "}`, `not json`} {
		res, err := browser.Post(server.URL+"/api/dismiss", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusBadRequest, res.StatusCode, body)
	}
}

func TestSession_InvalidCookieIsReplaced(t *testing.T) {
	server := testServer(t)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/days", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "../../etc/passwd"})
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()

	var issued *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == SessionCookie {
			issued = c
		}
	}
	require.NotNil(t, issued)
	assert.Len(t, issued.Value, 36)
}
