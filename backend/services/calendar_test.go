package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

func newTestCalendar(t *testing.T, tokenURL string) *GoogleCalendar {
	t.Helper()
	cfg := &config.Config{
		GoogleClientID:     "client",
		GoogleClientSecret: "secret",
		GoogleRedirectURI:  "http://localhost/api/meet/auth/callback",
		CalendarTokenFile:  filepath.Join(t.TempDir(), "tokens.json"),
		CalendarTimeZone:   "Asia/Kolkata",
	}
	g := NewGoogleCalendar(cfg, utils.NopLogger())
	g.oauth.Endpoint = oauth2.Endpoint{
		AuthURL:   "http://localhost/auth",
		TokenURL:  tokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return g
}

func tokenServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "access-" + string(rune('0'+n)),
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthURLRequestsOfflineAccess(t *testing.T) {
	g := newTestCalendar(t, "http://localhost/token")
	u := g.AuthURL("state-1")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "state=state-1")
	assert.Contains(t, u, "calendar.events")
}

func TestCreateMeetWithoutTokenIsNotAuthorized(t *testing.T) {
	g := newTestCalendar(t, "http://localhost/token")
	_, err := g.CreateMeet(context.Background(), MeetRequest{Summary: "x", Start: time.Now(), End: time.Now().Add(time.Hour)})
	assert.ErrorIs(t, err, ErrCalendarNotAuthorized)
}

func TestExchangePersistsToken(t *testing.T) {
	var hits int32
	srv := tokenServer(t, &hits)
	g := newTestCalendar(t, srv.URL)

	require.NoError(t, g.Exchange(context.Background(), "code"))

	tok, err := readTokenFile(g.tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
}

func TestExpiredTokenIsRefreshedAndPersisted(t *testing.T) {
	var hits int32
	srv := tokenServer(t, &hits)
	g := newTestCalendar(t, srv.URL)
	g.token = &oauth2.Token{AccessToken: "old", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}

	tok, err := g.currentToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh", tok.RefreshToken)

	raw, err := os.ReadFile(g.tokenFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "access-1")

	_, err = g.currentToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCreateMeetReplaysOnceAfterUnauthorized(t *testing.T) {
	var hits int32
	srv := tokenServer(t, &hits)
	g := newTestCalendar(t, srv.URL)
	g.token = &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}

	var seen []string
	g.insert = func(ctx context.Context, ts oauth2.TokenSource, ev *calendar.Event) (*calendar.Event, error) {
		tok, err := ts.Token()
		if err != nil {
			return nil, err
		}
		seen = append(seen, tok.AccessToken)
		if tok.AccessToken == "stale" {
			return nil, &googleapi.Error{Code: http.StatusUnauthorized, Message: "invalid credentials"}
		}
		assert.Equal(t, "hangoutsMeet", ev.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
		assert.Equal(t, "Asia/Kolkata", ev.Start.TimeZone)
		return &calendar.Event{Id: "evt", HangoutLink: "https://meet.google.com/abc-defg-hij"}, nil
	}

	start := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	ev, err := g.CreateMeet(context.Background(), MeetRequest{Summary: "Algebra", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", ev.MeetLink)
	assert.Equal(t, []string{"stale", "access-1"}, seen)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestCreateMeetGivesUpAfterOneReplay(t *testing.T) {
	var hits int32
	srv := tokenServer(t, &hits)
	g := newTestCalendar(t, srv.URL)
	g.token = &oauth2.Token{AccessToken: "stale", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}

	calls := 0
	g.insert = func(ctx context.Context, ts oauth2.TokenSource, ev *calendar.Event) (*calendar.Event, error) {
		calls++
		return nil, &googleapi.Error{Code: http.StatusUnauthorized}
	}

	_, err := g.CreateMeet(context.Background(), MeetRequest{Start: time.Now(), End: time.Now().Add(time.Hour)})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}
