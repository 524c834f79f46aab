// graph-calendar-sim fakes the two Microsoft Graph endpoints the office
// service talks to: the client-credentials token endpoint and the mailbox
// calendar view. Point GRAPH_LOGIN_BASE_URL and GRAPH_BASE_URL at it to
// develop without a real tenant.
//
// Events are kept in memory; POST /sim/events replaces the whole set, so a
// second sync run can exercise updates and disappearances.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

type simEvent struct {
	ID          string `json:"id"`
	ChangeKey   string `json:"changeKey"`
	Subject     string `json:"subject"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Location    string `json:"location"`
	BodyPreview string `json:"bodyPreview,omitempty"`
}

type store struct {
	mu     sync.Mutex
	events []simEvent
}

func defaultEvents() []simEvent {
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	return []simEvent{
		{
			ID:        "AAMkAGsim0001",
			ChangeKey: "CQAAABYA0001",
			Subject:   "Anna Schmidt - Lash Lifting",
			Start:     base.Format("2006-01-02T15:04:05.9999999"),
			End:       base.Add(time.Hour).Format("2006-01-02T15:04:05.9999999"),
			Location:  "Studio",
		},
		{
			ID:        "AAMkAGsim0002",
			ChangeKey: "CQAAABYA0002",
			Subject:   "Lena Weber - Volumen neu",
			Start:     base.Add(2 * time.Hour).Format("2006-01-02T15:04:05.9999999"),
			End:       base.Add(4 * time.Hour).Format("2006-01-02T15:04:05.9999999"),
			Location:  "Studio",
		},
	}
}

func (s *store) calendarView(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, `{"error":{"code":"InvalidAuthenticationToken"}}`, http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	events := make([]simEvent, len(s.events))
	copy(events, s.events)
	s.mu.Unlock()

	values := make([]map[string]any, 0, len(events))
	for _, evt := range events {
		values = append(values, map[string]any{
			"id":          evt.ID,
			"changeKey":   evt.ChangeKey,
			"subject":     evt.Subject,
			"bodyPreview": evt.BodyPreview,
			"start":       map[string]string{"dateTime": evt.Start, "timeZone": "UTC"},
			"end":         map[string]string{"dateTime": evt.End, "timeZone": "UTC"},
			"location":    map[string]string{"displayName": evt.Location},
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"value": values})
}

func (s *store) replaceEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var events []simEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
	fmt.Fprintf(w, "ok, %d events\n", len(events))
}

func token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "sim-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	flag.Parse()

	s := &store{events: defaultEvents()}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/oauth2/v2.0/token"):
			token(w, r)
		case strings.Contains(r.URL.Path, "/calendarView"):
			s.calendarView(w, r)
		case r.URL.Path == "/sim/events":
			s.replaceEvents(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	log.Printf("graph calendar simulator listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, mux))
}
