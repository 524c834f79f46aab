package outlook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotConfigured means required Graph credentials are missing; no
	// request is attempted.
	ErrNotConfigured = errors.New("outlook client not configured")
	// ErrUpstream means the Graph API returned a malformed or incomplete
	// payload. A single bad event rejects its whole page so that no record
	// is silently dropped.
	ErrUpstream = errors.New("outlook upstream error")
)

// Event is one calendar event as fetched from the Graph calendar view.
// ChangeKey is an opaque token Outlook bumps on every edit.
type Event struct {
	ID          string
	ChangeKey   string
	Subject     string
	Start       time.Time
	End         time.Time
	Location    string
	BodyPreview string
}

type Config struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	MailboxUser  string
	PageSize     int

	// Overridable for tests; default to the public Microsoft endpoints.
	LoginBaseURL string
	GraphBaseURL string
}

type Client struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.LoginBaseURL == "" {
		cfg.LoginBaseURL = "https://login.microsoftonline.com"
	}
	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = "https://graph.microsoft.com/v1.0"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

func (c *Client) configured() bool {
	return strings.TrimSpace(c.cfg.TenantID) != "" &&
		strings.TrimSpace(c.cfg.ClientID) != "" &&
		strings.TrimSpace(c.cfg.ClientSecret) != "" &&
		strings.TrimSpace(c.cfg.MailboxUser) != ""
}

// FetchEvents returns all calendar events with a start time inside
// [start, end), ascending by start, following @odata.nextLink until the
// window is exhausted. Transient failures propagate to the caller; the
// sync runner owns the per-run failure policy.
func (c *Client) FetchEvents(ctx context.Context, start, end time.Time) ([]Event, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}

	next := fmt.Sprintf(
		"%s/users/%s/calendarView?startDateTime=%s&endDateTime=%s&$orderby=start/dateTime&$top=%d&$select=id,changeKey,subject,start,end,location,bodyPreview",
		c.cfg.GraphBaseURL,
		url.PathEscape(c.cfg.MailboxUser),
		url.QueryEscape(start.UTC().Format(time.RFC3339)),
		url.QueryEscape(end.UTC().Format(time.RFC3339)),
		c.cfg.PageSize,
	)

	var events []Event
	for next != "" {
		page, nextLink, err := c.fetchPage(ctx, next)
		if err != nil {
			return nil, err
		}
		events = append(events, page...)
		next = nextLink
	}
	return events, nil
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	ID          string         `json:"id"`
	ChangeKey   string         `json:"changeKey"`
	Subject     string         `json:"subject"`
	Start       *graphDateTime `json:"start"`
	End         *graphDateTime `json:"end"`
	Location    *struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
	BodyPreview string `json:"bodyPreview"`
}

type graphPage struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]Event, string, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Prefer", `outlook.timezone="UTC"`)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("calendar view request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, "", fmt.Errorf("calendar view read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: calendar view returned %d", ErrUpstream, resp.StatusCode)
	}

	var page graphPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, "", fmt.Errorf("%w: invalid calendar view payload: %v", ErrUpstream, err)
	}

	events := make([]Event, 0, len(page.Value))
	for _, ge := range page.Value {
		evt, err := ge.toEvent()
		if err != nil {
			// All-or-nothing per page.
			return nil, "", err
		}
		events = append(events, evt)
	}
	return events, page.NextLink, nil
}

func (ge graphEvent) toEvent() (Event, error) {
	if strings.TrimSpace(ge.ID) == "" {
		return Event{}, fmt.Errorf("%w: event missing id", ErrUpstream)
	}
	if strings.TrimSpace(ge.ChangeKey) == "" {
		return Event{}, fmt.Errorf("%w: event %s missing changeKey", ErrUpstream, ge.ID)
	}
	if ge.Start == nil || ge.End == nil {
		return Event{}, fmt.Errorf("%w: event %s missing start/end", ErrUpstream, ge.ID)
	}
	start, err := parseGraphTime(*ge.Start)
	if err != nil {
		return Event{}, fmt.Errorf("%w: event %s invalid start: %v", ErrUpstream, ge.ID, err)
	}
	end, err := parseGraphTime(*ge.End)
	if err != nil {
		return Event{}, fmt.Errorf("%w: event %s invalid end: %v", ErrUpstream, ge.ID, err)
	}

	evt := Event{
		ID:          ge.ID,
		ChangeKey:   ge.ChangeKey,
		Subject:     ge.Subject,
		Start:       start,
		End:         end,
		BodyPreview: ge.BodyPreview,
	}
	if ge.Location != nil {
		evt.Location = ge.Location.DisplayName
	}
	return evt, nil
}

// Graph returns local times like "2026-01-02T10:00:00.0000000" plus a
// separate IANA/Windows zone name; we request UTC via the Prefer header.
func parseGraphTime(gdt graphDateTime) (time.Time, error) {
	if strings.TrimSpace(gdt.DateTime) == "" {
		return time.Time{}, errors.New("empty dateTime")
	}
	t, err := time.Parse("2006-01-02T15:04:05.9999999", gdt.DateTime)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"scope":         {"https://graph.microsoft.com/.default"},
	}
	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.cfg.LoginBaseURL, url.PathEscape(c.cfg.TenantID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("token read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrUpstream, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", fmt.Errorf("%w: invalid token payload", ErrUpstream)
	}

	c.accessToken = tr.AccessToken
	// Refresh one minute early to stay clear of clock skew.
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}
