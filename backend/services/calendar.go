package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/utils"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var ErrCalendarNotAuthorized = errors.New("calendar is not authorized, visit /api/meet/auth first")

type MeetRequest struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

type MeetEvent struct {
	EventID  string
	MeetLink string
	HTMLLink string
}

// CalendarClient creates events with an attached Meet conference.
type CalendarClient interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) error
	CreateMeet(ctx context.Context, req MeetRequest) (*MeetEvent, error)
}

type insertFunc func(ctx context.Context, ts oauth2.TokenSource, ev *calendar.Event) (*calendar.Event, error)

// GoogleCalendar owns the OAuth token for the platform's calendar account.
// Reads and refreshes of the token are serialized; a forced refresh after a
// 401 is shared by every request that hit it at the same time.
type GoogleCalendar struct {
	log       *utils.Logger
	oauth     *oauth2.Config
	tokenFile string
	timeZone  string
	insert    insertFunc

	mu      sync.Mutex
	token   *oauth2.Token
	refresh singleflight.Group
}

func NewGoogleCalendar(cfg *config.Config, log *utils.Logger) *GoogleCalendar {
	g := &GoogleCalendar{
		log: log.With("service", "GoogleCalendar"),
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
		tokenFile: cfg.CalendarTokenFile,
		timeZone:  cfg.CalendarTimeZone,
		insert:    insertWithGoogleAPI,
	}
	if tok, err := readTokenFile(g.tokenFile); err == nil {
		g.token = tok
	} else if !errors.Is(err, os.ErrNotExist) {
		g.log.Warn("Could not read calendar token file", "file", g.tokenFile, "error", err)
	}
	return g
}

func (g *GoogleCalendar) AuthURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g *GoogleCalendar) Exchange(ctx context.Context, code string) error {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange auth code: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = tok
	return g.persistLocked()
}

func (g *GoogleCalendar) CreateMeet(ctx context.Context, req MeetRequest) (*MeetEvent, error) {
	if _, err := g.currentToken(ctx); err != nil {
		return nil, err
	}

	ev := &calendar.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       &calendar.EventDateTime{DateTime: req.Start.Format(time.RFC3339), TimeZone: g.timeZone},
		End:         &calendar.EventDateTime{DateTime: req.End.Format(time.RFC3339), TimeZone: g.timeZone},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := g.insert(ctx, g.tokenSource(ctx), ev)
	if isUnauthorized(err) {
		g.log.Warn("Calendar rejected access token, refreshing")
		if rerr := g.forceRefresh(ctx); rerr != nil {
			return nil, rerr
		}
		created, err = g.insert(ctx, g.tokenSource(ctx), ev)
	}
	if err != nil {
		return nil, fmt.Errorf("create calendar event: %w", err)
	}

	link := created.HangoutLink
	if link == "" && created.ConferenceData != nil {
		for _, ep := range created.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				link = ep.Uri
				break
			}
		}
	}
	return &MeetEvent{EventID: created.Id, MeetLink: link, HTMLLink: created.HtmlLink}, nil
}

func isUnauthorized(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized
}

type calendarTokenSource struct {
	ctx context.Context
	g   *GoogleCalendar
}

func (s calendarTokenSource) Token() (*oauth2.Token, error) {
	return s.g.currentToken(s.ctx)
}

func (g *GoogleCalendar) tokenSource(ctx context.Context) oauth2.TokenSource {
	return calendarTokenSource{ctx: ctx, g: g}
}

// currentToken returns the stored token, refreshing it first when expired.
func (g *GoogleCalendar) currentToken(ctx context.Context) (*oauth2.Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token == nil {
		return nil, ErrCalendarNotAuthorized
	}
	if g.token.Valid() {
		return g.token, nil
	}
	return g.refreshLocked(ctx)
}

func (g *GoogleCalendar) forceRefresh(ctx context.Context) error {
	_, err, _ := g.refresh.Do("refresh", func() (interface{}, error) {
		g.mu.Lock()
		defer g.mu.Unlock()
		if g.token == nil {
			return nil, ErrCalendarNotAuthorized
		}
		g.token.Expiry = time.Now().Add(-time.Minute)
		return g.refreshLocked(ctx)
	})
	return err
}

func (g *GoogleCalendar) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	if g.token.RefreshToken == "" {
		return nil, ErrCalendarNotAuthorized
	}
	stale := *g.token
	stale.AccessToken = ""
	tok, err := g.oauth.TokenSource(ctx, &stale).Token()
	if err != nil {
		g.log.Error("Calendar token refresh failed", "error", err)
		return nil, fmt.Errorf("refresh calendar token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = g.token.RefreshToken
	}
	g.token = tok
	if err := g.persistLocked(); err != nil {
		g.log.Warn("Could not persist calendar token", "file", g.tokenFile, "error", err)
	}
	return tok, nil
}

func (g *GoogleCalendar) persistLocked() error {
	if g.tokenFile == "" {
		return nil
	}
	raw, err := json.Marshal(g.token)
	if err != nil {
		return err
	}
	return os.WriteFile(g.tokenFile, raw, 0o600)
}

func readTokenFile(name string) (*oauth2.Token, error) {
	if name == "" {
		return nil, os.ErrNotExist
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func insertWithGoogleAPI(ctx context.Context, ts oauth2.TokenSource, ev *calendar.Event) (*calendar.Event, error) {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, err
	}
	return svc.Events.Insert("primary", ev).ConferenceDataVersion(1).Context(ctx).Do()
}
