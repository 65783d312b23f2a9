package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"wwfm/internal/config"
	"wwfm/internal/notifications"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	var got captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &got
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyMigrationFinished(context.Background(), "hosts", "1 migrated", 0, 0); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).TestNotification(context.Background()); err != nil {
		t.Fatalf("expected nil config to yield noop notifier, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "clean migration",
			send: func(s notifications.Service) error {
				return s.NotifyMigrationFinished(context.Background(), "episodes", "12 migrated, 3 skipped", 0, 0)
			},
			expectTitle:   "WWFM - Migration Finished",
			expectMessage: "Migration episodes finished: 12 migrated, 3 skipped",
			expectTags:    "wwfm,migrate,episodes",
		},
		{
			name: "migration with review and failures",
			send: func(s notifications.Service) error {
				return s.NotifyMigrationFinished(context.Background(), "images", "4 migrated, 2 review, 1 failed", 2, 1)
			},
			expectTitle:    "WWFM - Migration Finished",
			expectMessage:  "Migration images finished: 4 migrated, 2 review, 1 failed\n2 record(s) need review (wwfm migrate review)\n1 record(s) failed (wwfm migrate review --failed)",
			expectTags:     "wwfm,migrate,images,warning",
			expectPriority: "high",
		},
		{
			name: "error",
			send: func(s notifications.Service) error {
				return s.NotifyError(context.Background(), errors.New("legacy database unreachable"), "migrate hosts")
			},
			expectTitle:    "WWFM - Error",
			expectMessage:  "Error in migrate hosts: legacy database unreachable",
			expectTags:     "wwfm,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			send:           func(s notifications.Service) error { return s.TestNotification(context.Background()) },
			expectTitle:    "WWFM - Test",
			expectMessage:  "Notification system test",
			expectTags:     "wwfm,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := captureServer(t, http.StatusOK)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server, _ := captureServer(t, http.StatusForbidden)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	if err := notifications.NewService(&cfg).TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
