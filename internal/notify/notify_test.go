package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bullion-bell/internal/config"
	"bullion-bell/internal/models"
	"bullion-bell/pkg/utils"
)

func fastRetry() utils.RetryConfig {
	return utils.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func testAlert() *models.Alert {
	return &models.Alert{
		ID:         "a-1",
		EventID:    "42",
		Title:      "Non-Farm Payrolls",
		Currency:   "USD",
		Importance: models.ImportanceHigh,
		FireAt:     time.Date(2024, 9, 20, 12, 25, 0, 0, time.UTC),
	}
}

func TestWebhookNotifier_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	w.retry = fastRetry()

	if err := w.Send(context.Background(), EventAlertNotification(testAlert())); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("webhook called %d times, want 2", n)
	}
	if payload["type"] != "alert" || !strings.Contains(payload["title"].(string), "Non-Farm Payrolls") {
		t.Errorf("payload = %v", payload)
	}
}

func TestWebhookNotifier_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true, URL: srv.URL})
	w.retry = fastRetry()

	if err := w.Send(context.Background(), SyncErrorNotification(fmt.Errorf("boom"))); err == nil {
		t.Fatal("Send should fail on 401")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("webhook called %d times, want 1", n)
	}
}

func TestTelegramNotifier_PostsHTML(t *testing.T) {
	var got map[string]interface{}
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	tg := NewTelegramNotifier(config.TelegramConfig{Enabled: true, BotToken: "tok", ChatID: "99"})
	tg.apiBase = srv.URL

	n := Notification{Type: NotificationAlert, Title: "CPI <m/m>", Message: "A & B"}
	if err := tg.Send(context.Background(), n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if path != "/bottok/sendMessage" {
		t.Errorf("path = %s", path)
	}
	if got["text"] != "<b>CPI &lt;m/m&gt;</b>\n\nA &amp; B" || got["chat_id"] != "99" {
		t.Errorf("payload = %v", got)
	}
}

type countingChannel struct {
	name string
	sent []Notification
}

func (c *countingChannel) Name() string    { return c.name }
func (c *countingChannel) IsEnabled() bool { return true }
func (c *countingChannel) Send(_ context.Context, n Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func TestMultiNotifier_LevelFilter(t *testing.T) {
	tests := []struct {
		level      string
		wantAlerts int
		wantErrors int
	}{
		{"all", 1, 1},
		{"", 1, 1},
		{"alerts_only", 1, 0},
		{"errors_only", 0, 1},
	}

	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			mn := NewMultiNotifier(&config.NotificationConfig{Level: tt.level})
			ch := &countingChannel{name: "test"}
			mn.AddChannel(ch)

			mn.SendEventAlert(context.Background(), testAlert())
			mn.SendSyncError(context.Background(), fmt.Errorf("provider down"))

			alerts, errs := 0, 0
			for _, n := range ch.sent {
				switch n.Type {
				case NotificationAlert:
					alerts++
				case NotificationError:
					errs++
				}
				if n.Timestamp.IsZero() {
					t.Error("timestamp not set")
				}
			}
			if alerts != tt.wantAlerts || errs != tt.wantErrors {
				t.Errorf("got %d alerts, %d errors", alerts, errs)
			}
		})
	}
}

func TestMultiNotifier_SkipsDisabledRemoteChannels(t *testing.T) {
	mn := NewMultiNotifier(&config.NotificationConfig{
		Webhook:  config.WebhookConfig{Enabled: true},
		Telegram: config.TelegramConfig{Enabled: true, BotToken: "x"},
	})
	if names := mn.Channels(); len(names) != 0 {
		t.Errorf("incomplete channels reported enabled: %v", names)
	}
	if err := mn.SendSyncError(context.Background(), fmt.Errorf("x")); err != nil {
		t.Errorf("Send with no enabled channels = %v", err)
	}
}

func TestTerminalNotifier_BellAndPlainText(t *testing.T) {
	var buf bytes.Buffer
	tn := NewTerminalNotifier(&buf)
	tn.SetColorEnabled(false)

	n := EventAlertNotification(testAlert())
	n.Timestamp = time.Date(2024, 9, 20, 12, 25, 0, 0, time.UTC)
	if err := tn.Send(context.Background(), n); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "\a[12:25:00] 🔔 USD Non-Farm Payrolls\n") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "    Importance: high\n") {
		t.Errorf("message not indented: %q", out)
	}

	buf.Reset()
	tn.Send(context.Background(), SyncErrorNotification(fmt.Errorf("x")))
	if strings.Contains(buf.String(), "\a") {
		t.Error("bell rung for an error")
	}

	buf.Reset()
	tn.SetBellEnabled(false)
	tn.Send(context.Background(), n)
	if strings.Contains(buf.String(), "\a") {
		t.Error("bell rung while disabled")
	}

	buf.Reset()
	tn.SetEnabled(false)
	tn.Send(context.Background(), n)
	if buf.Len() != 0 {
		t.Error("disabled notifier wrote output")
	}
}
