package audit

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"
)

// SlackNotifier delivers high-risk and terminal-failure audit events to a
// Slack channel, implementing Notifier. If botToken is empty it is a noop.
type SlackNotifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// NewSlackNotifier creates a SlackNotifier. If botToken is empty, PostText
// returns nil without making a network call.
func NewSlackNotifier(botToken, channel string, logger *slog.Logger) *SlackNotifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &SlackNotifier{client: client, channel: channel, logger: logger}
}

func (n *SlackNotifier) enabled() bool {
	return n.client != nil && n.channel != ""
}

// PostText implements Notifier.
func (n *SlackNotifier) PostText(ctx context.Context, text string) error {
	if !n.enabled() {
		n.logger.Debug("slack notifier disabled, skipping audit post", "text", text)
		return nil
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting audit event to slack: %w", err)
	}
	return nil
}
