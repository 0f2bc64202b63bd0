package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

func strptr(s string) *string { return &s }

func TestShouldNotify(t *testing.T) {
	url := "https://example.com/hook"
	tests := []struct {
		name     string
		settings *models.WebhookSettings
		severity string
		want     bool
	}{
		{"nil settings", nil, "high", false},
		{"disabled", &models.WebhookSettings{URL: &url, Enabled: false, SeverityLevels: []string{"high"}}, "high", false},
		{"no url", &models.WebhookSettings{Enabled: true, SeverityLevels: []string{"high"}}, "high", false},
		{"matching level", &models.WebhookSettings{URL: &url, Enabled: true, SeverityLevels: []string{"high", "critical"}}, "high", true},
		{"non-matching level", &models.WebhookSettings{URL: &url, Enabled: true, SeverityLevels: []string{"critical"}}, "low", false},
		{"empty levels", &models.WebhookSettings{URL: &url, Enabled: true}, "critical", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldNotify(tt.settings, tt.severity); got != tt.want {
				t.Errorf("ShouldNotify = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDiscordWebhook(t *testing.T) {
	if !isDiscordWebhook("https://discord.com/api/webhooks/123/abc") {
		t.Error("discord.com webhook not recognized")
	}
	if !isDiscordWebhook("https://discordapp.com/api/webhooks/123/abc") {
		t.Error("discordapp.com webhook not recognized")
	}
	if isDiscordWebhook("https://example.com/api/webhooks/123") {
		t.Error("non-discord URL misclassified")
	}
}

func TestSeverityColor(t *testing.T) {
	cases := map[string]int{
		"critical": 0xDC2626,
		"high":     0xF97316,
		"medium":   0xEAB308,
		"low":      0x6366F1,
		"info":     0x6B7280,
		"other":    0x6B7280,
	}
	for sev, want := range cases {
		if got := severityColor(sev); got != want {
			t.Errorf("severityColor(%q) = %#x, want %#x", sev, got, want)
		}
	}
}

func TestBuildPayloadDiscord(t *testing.T) {
	player := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	f := &FindingNotification{
		ServerID:     "srv-1",
		PlayerUUID:   &player,
		DetectorName: "combat_core_reach_critical",
		Severity:     "critical",
		Title:        "Reach 3.5 blocks",
		Occurrences:  4,
	}
	name := "My Server"

	payload := buildPayload("https://discord.com/api/webhooks/1/x", f, &name)
	discord, ok := payload.(discordWebhookPayload)
	if !ok {
		t.Fatalf("payload type %T, want discord", payload)
	}
	if len(discord.Embeds) != 1 {
		t.Fatalf("got %d embeds", len(discord.Embeds))
	}
	embed := discord.Embeds[0]
	if !strings.Contains(embed.Title, "CRITICAL Detection") {
		t.Errorf("title = %q", embed.Title)
	}
	if embed.Description != "**combat_core_reach_critical**: Reach 3.5 blocks" {
		t.Errorf("description = %q", embed.Description)
	}
	if embed.Color != 0xDC2626 {
		t.Errorf("color = %#x", embed.Color)
	}
	if embed.Footer.Text != "AsyncAnticheat • My Server" {
		t.Errorf("footer = %q", embed.Footer.Text)
	}
	// No player name stored, so the UUID stands in.
	if embed.Fields[0].Value != player.String() {
		t.Errorf("player field = %q", embed.Fields[0].Value)
	}
}

func TestBuildPayloadGeneric(t *testing.T) {
	f := &FindingNotification{
		ServerID:     "srv-1",
		DetectorName: "movement_core_speed_blatant",
		Severity:     "high",
		Title:        "Speed",
		Description:  strptr("32 bps sustained"),
		Occurrences:  2,
	}

	payload := buildPayload("https://example.com/hook", f, nil)
	generic, ok := payload.(genericWebhookPayload)
	if !ok {
		t.Fatalf("payload type %T, want generic", payload)
	}
	if generic.Type != "finding" || generic.Source != "asyncanticheat" {
		t.Errorf("envelope = %q/%q", generic.Type, generic.Source)
	}
	if generic.ServerID != "srv-1" || generic.Finding.Detector != "movement_core_speed_blatant" {
		t.Errorf("finding = %+v", generic.Finding)
	}
	if generic.Finding.PlayerUUID != nil {
		t.Errorf("player_uuid = %v, want nil", generic.Finding.PlayerUUID)
	}
}

func TestGroupNotifications(t *testing.T) {
	findings := []FindingNotification{
		{DetectorName: "d1", Severity: "high", Title: "first", Occurrences: 2},
		{DetectorName: "d1", Severity: "high", Title: "second", Occurrences: 3},
		{DetectorName: "d1", Severity: "low", Occurrences: 1},
		{DetectorName: "d2", Severity: "high", Occurrences: 1},
	}
	grouped := groupNotifications(findings)
	if len(grouped) != 3 {
		t.Fatalf("got %d groups, want 3", len(grouped))
	}
	for _, g := range grouped {
		if g.DetectorName == "d1" && g.Severity == "high" {
			if g.Occurrences != 5 {
				t.Errorf("occurrences = %d, want 5", g.Occurrences)
			}
			if g.Title != "first" {
				t.Errorf("title = %q, want the first entry's", g.Title)
			}
		}
	}
}

func TestSendPostsJSON(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		var payload genericWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if payload.Finding.Severity != "high" {
			t.Errorf("severity = %q", payload.Finding.Severity)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(srv.Client(), zap.NewNop().Sugar())
	f := &FindingNotification{ServerID: "srv-1", DetectorName: "d", Severity: "high", Title: "t", Occurrences: 1}
	n.Send(context.Background(), srv.URL, f, nil)

	if calls.Load() != 1 {
		t.Errorf("webhook called %d times, want 1", calls.Load())
	}
}
