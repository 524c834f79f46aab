package outlook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testConfig(srv *httptest.Server) Config {
	return Config{
		TenantID:     "tenant-1",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		MailboxUser:  "studio@lashes.example",
		PageSize:     2,
		LoginBaseURL: srv.URL,
		GraphBaseURL: srv.URL,
	}
}

func graphHandler(t *testing.T, pages []map[string]any) http.HandlerFunc {
	t.Helper()
	pageIdx := 0
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/tenant-1/oauth2/v2.0/token":
			if err := r.ParseForm(); err != nil {
				t.Fatalf("parse token form: %v", err)
			}
			if r.PostForm.Get("grant_type") != "client_credentials" {
				t.Errorf("unexpected grant_type %q", r.PostForm.Get("grant_type"))
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-123",
				"expires_in":   3600,
			})
		case r.Method == http.MethodGet:
			if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
				t.Errorf("unexpected auth header %q", got)
			}
			if pageIdx >= len(pages) {
				t.Fatalf("unexpected extra page request %s", r.URL)
			}
			page := pages[pageIdx]
			pageIdx++
			_ = json.NewEncoder(w).Encode(page)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL)
		}
	}
}

func graphEventJSON(id, changeKey, subject, start, end string) map[string]any {
	return map[string]any{
		"id":        id,
		"changeKey": changeKey,
		"subject":   subject,
		"start":     map[string]string{"dateTime": start, "timeZone": "UTC"},
		"end":       map[string]string{"dateTime": end, "timeZone": "UTC"},
		"location":  map[string]string{"displayName": "Studio"},
	}
}

func TestFetchEventsFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	pages := []map[string]any{
		{
			"value": []map[string]any{
				graphEventJSON("evt-1", "ck-1", "Lashes Anna", "2026-03-02T09:00:00.0000000", "2026-03-02T10:30:00.0000000"),
				graphEventJSON("evt-2", "ck-2", "Refill Maria", "2026-03-02T11:00:00", "2026-03-02T12:00:00"),
			},
		},
		{
			"value": []map[string]any{
				graphEventJSON("evt-3", "ck-3", "Lifting Jana", "2026-03-03T09:00:00.0000000", "2026-03-03T10:00:00.0000000"),
			},
		},
	}
	srv = httptest.NewServer(graphHandler(t, pages))
	t.Cleanup(srv.Close)

	// First page advertises a continuation link.
	pages[0]["@odata.nextLink"] = srv.URL + "/page2"

	c := NewClient(testConfig(srv), srv.Client())
	events, err := c.FetchEvents(context.Background(),
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("FetchEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events across pages, got %d", len(events))
	}
	if events[0].ID != "evt-1" || events[2].ID != "evt-3" {
		t.Fatalf("unexpected event order: %+v", events)
	}
	want := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if !events[0].Start.Equal(want) {
		t.Fatalf("expected start %s, got %s", want, events[0].Start)
	}
	if events[0].Location != "Studio" {
		t.Fatalf("expected location Studio, got %q", events[0].Location)
	}
}

func TestFetchEventsRejectsWholePageOnMissingField(t *testing.T) {
	broken := graphEventJSON("evt-2", "", "Refill Maria", "2026-03-02T11:00:00", "2026-03-02T12:00:00")
	pages := []map[string]any{
		{
			"value": []map[string]any{
				graphEventJSON("evt-1", "ck-1", "Lashes Anna", "2026-03-02T09:00:00", "2026-03-02T10:30:00"),
				broken,
			},
		},
	}
	srv := httptest.NewServer(graphHandler(t, pages))
	t.Cleanup(srv.Close)

	c := NewClient(testConfig(srv), srv.Client())
	_, err := c.FetchEvents(context.Background(), time.Now(), time.Now().Add(24*time.Hour))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestFetchEventsUpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123", "expires_in": 3600})
			return
		}
		http.Error(w, "throttled", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(testConfig(srv), srv.Client())
	_, err := c.FetchEvents(context.Background(), time.Now(), time.Now().Add(24*time.Hour))
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestFetchEventsRequiresCredentials(t *testing.T) {
	c := NewClient(Config{TenantID: "t", ClientID: "c"}, nil)
	_, err := c.FetchEvents(context.Background(), time.Now(), time.Now().Add(time.Hour))
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestTokenIsCachedAcrossPages(t *testing.T) {
	tokenCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			tokenCalls++
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-123", "expires_in": 3600})
			return
		}
		fmt.Fprint(w, `{"value": []}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(testConfig(srv), srv.Client())
	for i := 0; i < 3; i++ {
		if _, err := c.FetchEvents(context.Background(), time.Now(), time.Now().Add(time.Hour)); err != nil {
			t.Fatalf("FetchEvents failed: %v", err)
		}
	}
	if tokenCalls != 1 {
		t.Fatalf("expected a single token request, got %d", tokenCalls)
	}
}
