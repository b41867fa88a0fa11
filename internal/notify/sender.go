package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sender delivers one message to the team chat.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// NopSender discards messages. It is used when no webhook is configured.
type NopSender struct{}

// Send implements Sender.
func (NopSender) Send(context.Context, Message) error { return nil }

// SlackSender posts messages to a Slack incoming webhook.
type SlackSender struct {
	WebhookURL string
	Client     *http.Client
}

// NewSlackSender returns a sender for the webhook URL.
func NewSlackSender(webhookURL string) *SlackSender {
	return &SlackSender{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

// slackPayloadFor builds the block layout: a bold title, an optional body
// section, an optional field grid and a timestamp footer.
func slackPayloadFor(m Message) slackPayload {
	blocks := []slackBlock{
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: m.Icon + " *" + m.Title + "*"}},
	}
	if m.Body != "" {
		blocks = append(blocks, slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: m.Body}})
	}
	if len(m.Fields) > 0 {
		fields := make([]slackText, 0, len(m.Fields))
		for _, f := range m.Fields {
			fields = append(fields, slackText{Type: "mrkdwn", Text: f})
		}
		blocks = append(blocks, slackBlock{Type: "section", Fields: fields})
	}
	blocks = append(blocks, slackBlock{
		Type:     "context",
		Elements: []slackText{{Type: "mrkdwn", Text: "LabTrack · " + m.Time.Format("1/2/2006, 3:04:05 PM")}},
	})
	return slackPayload{Text: m.Icon + " " + m.Title, Blocks: blocks}
}

// Send implements Sender.
func (s *SlackSender) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(slackPayloadFor(m))
	if err != nil {
		return fmt.Errorf("encoding slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}
