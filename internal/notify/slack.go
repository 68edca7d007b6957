package notify

import (
	"context"
	"errors"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// Slack posts to an incoming webhook.
type Slack struct {
	url string
}

// NewSlack creates a Slack notifier for webhookURL.
func NewSlack(webhookURL string) (*Slack, error) {
	if webhookURL == "" {
		return nil, errors.New("slack: webhook url is required")
	}
	return &Slack{url: webhookURL}, nil
}

func (s *Slack) Name() string { return "slack" }

// Send posts msg as a single attachment with the title as fallback text.
func (s *Slack) Send(ctx context.Context, msg Message) error {
	if err := slackapi.PostWebhookContext(ctx, s.url, slackMessage(msg)); err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}

func slackMessage(msg Message) *slackapi.WebhookMessage {
	att := slackapi.Attachment{
		Title:    msg.Title,
		Text:     msg.Body,
		Color:    msg.Color,
		Fallback: msg.Title,
	}
	for _, f := range msg.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return &slackapi.WebhookMessage{
		Text:        msg.Title,
		Attachments: []slackapi.Attachment{att},
	}
}
