package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
)

// SlackNotifier sends alerts to a Slack webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, alert Alert) error {
	payload := slackPayload{
		Channel: s.channel,
		Attachments: []slackAttachment{
			{
				Color: levelColor(alert.Level),
				Title: fmt.Sprintf("Context Guardian: context %s", alert.Level),
				Fields: []slackField{
					{Title: "Session", Value: alert.SessionID, Short: true},
					{Title: "Level", Value: alert.Level.String(), Short: true},
					{Title: "Used", Value: formatPct(alert.UsedPercent), Short: true},
					{Title: "Remaining", Value: formatPct(alert.RemainingPercent), Short: true},
					{Title: "Escalated", Value: strconv.FormatBool(alert.Escalated), Short: true},
				},
				Footer: "Context Guardian",
				Ts:     time.Now().Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

func levelColor(level model.Level) string {
	switch level {
	case model.LevelWarning:
		return "#ff9900" // orange
	case model.LevelCritical:
		return "#ff0000" // red
	case model.LevelEmergency:
		return "#cc0000" // dark red
	default:
		return "#36a64f" // green
	}
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
