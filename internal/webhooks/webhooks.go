// Package webhooks pushes finding notifications to Discord or generic HTTP
// endpoints configured per server.
package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asyncanticheat/ingest-api/internal/models"
)

// sendTimeout bounds a single webhook delivery.
const sendTimeout = 5 * time.Second

// FindingNotification is one aggregated finding to notify about.
type FindingNotification struct {
	ServerID     string
	PlayerUUID   *uuid.UUID
	PlayerName   *string
	DetectorName string
	Severity     string
	Title        string
	Description  *string
	Occurrences  int32
}

// Notifier delivers finding notifications. Deliveries are fire-and-forget;
// failures are logged and never fail the callback that produced them.
type Notifier struct {
	httpc  *http.Client
	logger *zap.SugaredLogger
}

func NewNotifier(httpc *http.Client, logger *zap.SugaredLogger) *Notifier {
	return &Notifier{httpc: httpc, logger: logger}
}

// ShouldNotify reports whether a finding of the given severity passes the
// server's webhook configuration.
func ShouldNotify(settings *models.WebhookSettings, severity string) bool {
	if settings == nil || !settings.Enabled || settings.URL == nil {
		return false
	}
	for _, s := range settings.SeverityLevels {
		if s == severity {
			return true
		}
	}
	return false
}

func severityColor(severity string) int {
	switch severity {
	case "critical":
		return 0xDC2626
	case "high":
		return 0xF97316
	case "medium":
		return 0xEAB308
	case "low":
		return 0x6366F1
	default:
		return 0x6B7280
	}
}

func severityEmoji(severity string) string {
	switch severity {
	case "critical":
		return "\U0001F6A8"
	case "high":
		return "⚠️"
	case "medium":
		return "\U0001F4E2"
	case "low":
		return "\U0001F4DD"
	default:
		return "ℹ️"
	}
}

func isDiscordWebhook(url string) bool {
	return strings.HasPrefix(url, "https://discord.com/api/webhooks/") ||
		strings.HasPrefix(url, "https://discordapp.com/api/webhooks/")
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Footer      discordFooter  `json:"footer"`
	Timestamp   string         `json:"timestamp"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type genericFinding struct {
	PlayerUUID  *string `json:"player_uuid"`
	PlayerName  *string `json:"player_name"`
	Detector    string  `json:"detector"`
	Severity    string  `json:"severity"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Occurrences int32   `json:"occurrences"`
}

type genericWebhookPayload struct {
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	ServerID  string         `json:"server_id"`
	Finding   genericFinding `json:"finding"`
	Timestamp string         `json:"timestamp"`
}

// buildPayload renders the wire payload for one notification. Discord URLs
// get an embed, everything else a flat JSON document.
func buildPayload(webhookURL string, f *FindingNotification, serverName *string) any {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	if isDiscordWebhook(webhookURL) {
		playerDisplay := "Unknown"
		if f.PlayerName != nil {
			playerDisplay = *f.PlayerName
		} else if f.PlayerUUID != nil {
			playerDisplay = f.PlayerUUID.String()
		}

		footer := f.ServerID
		if serverName != nil {
			footer = *serverName
		}

		return discordWebhookPayload{Embeds: []discordEmbed{{
			Title:       fmt.Sprintf("%s %s Detection", severityEmoji(f.Severity), strings.ToUpper(f.Severity)),
			Description: fmt.Sprintf("**%s**: %s", f.DetectorName, f.Title),
			Color:       severityColor(f.Severity),
			Fields: []discordField{
				{Name: "Player", Value: playerDisplay, Inline: true},
				{Name: "Detector", Value: f.DetectorName, Inline: true},
				{Name: "Occurrences", Value: fmt.Sprintf("%d", f.Occurrences), Inline: true},
			},
			Footer:    discordFooter{Text: "AsyncAnticheat • " + footer},
			Timestamp: timestamp,
		}}}
	}

	var playerUUID *string
	if f.PlayerUUID != nil {
		s := f.PlayerUUID.String()
		playerUUID = &s
	}
	return genericWebhookPayload{
		Type:     "finding",
		Source:   "asyncanticheat",
		ServerID: f.ServerID,
		Finding: genericFinding{
			PlayerUUID:  playerUUID,
			PlayerName:  f.PlayerName,
			Detector:    f.DetectorName,
			Severity:    f.Severity,
			Title:       f.Title,
			Description: f.Description,
			Occurrences: f.Occurrences,
		},
		Timestamp: timestamp,
	}
}

// Send delivers one notification synchronously.
func (n *Notifier) Send(ctx context.Context, webhookURL string, f *FindingNotification, serverName *string) {
	body, err := json.Marshal(buildPayload(webhookURL, f, serverName))
	if err != nil {
		n.logger.Warnw("webhook payload encode failed", "server_id", f.ServerID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		n.logger.Warnw("webhook request build failed", "server_id", f.ServerID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpc.Do(req)
	if err != nil {
		n.logger.Warnw("webhook request error", "server_id", f.ServerID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Warnw("webhook request failed", "server_id", f.ServerID, "status", resp.StatusCode)
	}
}

// groupNotifications collapses notifications to one per (detector, severity)
// so a burst of findings does not spam the webhook. Occurrences are summed;
// the first notification in a group supplies the remaining fields.
func groupNotifications(findings []FindingNotification) []FindingNotification {
	type groupKey struct {
		detector string
		severity string
	}
	index := make(map[groupKey]int)
	var out []FindingNotification

	for _, f := range findings {
		key := groupKey{detector: f.DetectorName, severity: f.Severity}
		if idx, ok := index[key]; ok {
			out[idx].Occurrences += f.Occurrences
			continue
		}
		index[key] = len(out)
		out = append(out, f)
	}
	return out
}

// SendAll groups and delivers notifications in background goroutines.
func (n *Notifier) SendAll(webhookURL string, findings []FindingNotification, serverName *string) {
	for _, f := range groupNotifications(findings) {
		f := f
		go n.Send(context.Background(), webhookURL, &f, serverName)
	}
}
