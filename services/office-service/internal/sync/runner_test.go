package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/katharina-voss/lashoffice/services/office-service/internal/model"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outbox"
	"github.com/katharina-voss/lashoffice/services/office-service/internal/outlook"
)

type stubTx struct{ pgx.Tx }

func (stubTx) Commit(context.Context) error   { return nil }
func (stubTx) Rollback(context.Context) error { return nil }

type stubBeginner struct{}

func (stubBeginner) Begin(context.Context) (pgx.Tx, error) { return stubTx{}, nil }

type stubLogStore struct {
	finishedID string
	message    string
	detail     string
	ctxLive    bool
}

func (s *stubLogStore) Start(context.Context) (string, error) { return "log-1", nil }

func (s *stubLogStore) FinishSuccess(context.Context, pgx.Tx, string, model.SyncResult, string) error {
	return nil
}

func (s *stubLogStore) FinishError(ctx context.Context, id, message, detail string) error {
	s.finishedID = id
	s.message = message
	s.detail = detail
	s.ctxLive = ctx.Err() == nil
	return nil
}

type stubEventStore struct {
	events []outbox.Event
}

func (s *stubEventStore) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	s.events = append(s.events, evt)
	return nil
}

func testRunner(logs *stubLogStore, events *stubEventStore) *Runner {
	return &Runner{
		db:       stubBeginner{},
		syncLogs: logs,
		outbox:   events,
		logger:   slog.New(slog.DiscardHandler),
	}
}

// A run that dies with its own context (client disconnect, shutdown) must
// still finalize the log; the row may never stay in_progress.
func TestFinishErrorSurvivesCancelledRun(t *testing.T) {
	logs := &stubLogStore{}
	events := &stubEventStore{}
	r := testRunner(logs, events)

	r.finishError("log-1", fmt.Errorf("fetching calendar: %w", context.Canceled))

	if logs.finishedID != "log-1" {
		t.Fatalf("log not finalized, finishedID = %q", logs.finishedID)
	}
	if !logs.ctxLive {
		t.Fatal("log finalized with a dead context")
	}
	if !strings.Contains(logs.detail, context.Canceled.Error()) {
		t.Fatalf("error_detail = %q, want the raw error", logs.detail)
	}
	if len(events.events) != 1 {
		t.Fatalf("got %d outbox events, want 1", len(events.events))
	}
	if events.events[0].EventType != outbox.EventSyncFailed {
		t.Fatalf("event type = %q, want %q", events.events[0].EventType, outbox.EventSyncFailed)
	}
}

func TestFinishErrorMessages(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{
			name:    "missing configuration",
			err:     outlook.ErrNotConfigured,
			message: "Outlook-Anbindung ist nicht konfiguriert",
		},
		{
			name:    "bad upstream data",
			err:     fmt.Errorf("page 2: %w", outlook.ErrUpstream),
			message: "Outlook-Kalender hat ungültige Daten geliefert",
		},
		{
			name:    "anything else",
			err:     fmt.Errorf("insert abc: connection reset"),
			message: "Synchronisierung fehlgeschlagen",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logs := &stubLogStore{}
			r := testRunner(logs, &stubEventStore{})

			r.finishError("log-1", tc.err)

			if logs.message != tc.message {
				t.Fatalf("message = %q, want %q", logs.message, tc.message)
			}
			if logs.detail != tc.err.Error() {
				t.Fatalf("detail = %q, want %q", logs.detail, tc.err.Error())
			}
		})
	}
}
