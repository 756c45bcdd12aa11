// Package slack posts email notifications to Slack channels, routed by
// importance.
package slack

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/znz-systems/inboxpilot/internal/analysis"
)

const maxContentChars = 1000

// Channels maps importance levels onto channel names.
type Channels struct {
	High   string
	Medium string
	Low    string
}

// Notifier implements analysis.Notifier on top of the Slack Web API.
type Notifier struct {
	client   *slackapi.Client
	channels Channels
}

func NewNotifier(token string, channels Channels) *Notifier {
	return &Notifier{
		client:   slackapi.New(token),
		channels: channels,
	}
}

// Notify posts the formatted email notification and returns the Slack
// message timestamp, which doubles as the message id.
func (n *Notifier) Notify(ctx context.Context, notification analysis.Notification) (string, error) {
	channel := notification.Channel
	if channel == "" {
		channel = n.channelForImportance(notification.Importance)
	}

	blocks := buildBlocks(notification)
	_, timestamp, err := n.client.PostMessageContext(ctx, channel,
		slackapi.MsgOptionBlocks(blocks...),
		slackapi.MsgOptionText("New email notification", false),
	)
	if err != nil {
		return "", fmt.Errorf("posting to slack channel %s: %w", channel, err)
	}

	slog.Info("slack notification posted", "channel", channel, "timestamp", timestamp)
	return timestamp, nil
}

func (n *Notifier) channelForImportance(importance string) string {
	switch strings.ToLower(importance) {
	case "high":
		return n.channels.High
	case "low":
		return n.channels.Low
	default:
		return n.channels.Medium
	}
}

func buildBlocks(notification analysis.Notification) []slackapi.Block {
	importance := notification.Importance
	if importance == "" {
		importance = "medium"
	}

	sender := notification.Sender
	if sender == "" {
		sender = "N/A"
	}
	subject := notification.Subject
	if subject == "" {
		subject = "No Subject"
	}
	content := notification.Content
	if content == "" {
		content = "No content"
	}
	if len(content) > maxContentChars {
		content = content[:maxContentChars] + "..."
	}

	blocks := []slackapi.Block{
		slackapi.NewHeaderBlock(slackapi.NewTextBlockObject(
			slackapi.PlainTextType,
			fmt.Sprintf("📧 New %s Priority Email", strings.ToUpper(importance)),
			true, false,
		)),
		slackapi.NewSectionBlock(nil, []*slackapi.TextBlockObject{
			slackapi.NewTextBlockObject(slackapi.MarkdownType, "*From:*\n"+sender, false, false),
			slackapi.NewTextBlockObject(slackapi.MarkdownType, "*Subject:*\n"+subject, false, false),
		}, nil),
		slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType, "*Content:*\n"+content, false, false),
			nil, nil,
		),
	}

	if notification.Summary != "" {
		blocks = append(blocks, slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType, "*Summary:*\n"+notification.Summary, false, false),
			nil, nil,
		))
	}
	return blocks
}
