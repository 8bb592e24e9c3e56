// Package notify tells human agents about escalated tickets.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"

	"github.com/ent0n29/switchboard/internal/tickets"
)

type Notifier interface {
	NotifyEscalation(ctx context.Context, t tickets.Ticket) error
	Name() string
}

type Nop struct{}

func (Nop) NotifyEscalation(context.Context, tickets.Ticket) error { return nil }
func (Nop) Name() string                                           { return "none" }

// SlackNotifier posts one message per escalated ticket to a channel.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string, opts ...slack.Option) *SlackNotifier {
	return &SlackNotifier{
		api:     slack.New(token, opts...),
		channel: channel,
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) NotifyEscalation(ctx context.Context, t tickets.Ticket) error {
	_, _, err := s.api.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(summaryText(t), false),
		slack.MsgOptionBlocks(escalationBlocks(t)...),
	)
	if err != nil {
		return fmt.Errorf("slack post %s: %w", t.ID, err)
	}
	return nil
}

func summaryText(t tickets.Ticket) string {
	return fmt.Sprintf("Escalated ticket %s (%s priority, %s)", t.ID, t.Priority, t.IssueType)
}

func escalationBlocks(t tickets.Ticket) []slack.Block {
	reason, _ := t.Metadata["escalation_reason"].(string)
	if reason == "" {
		reason = "manual"
	}
	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, "*Priority:*\n"+string(t.Priority), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Route:*\n"+t.IssueType, false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Reason:*\n"+reason, false, false),
		slack.NewTextBlockObject(slack.MarkdownType, "*Session:*\n`"+t.SessionID+"`", false, false),
	}
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, "Ticket "+t.ID, false, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}
	if desc := strings.TrimSpace(t.Description); desc != "" {
		if len(desc) > 2900 {
			desc = desc[:2900] + "…"
		}
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, "```"+desc+"```", false, false), nil, nil))
	}
	return blocks
}

// New returns a Slack notifier when both token and channel are set, otherwise Nop.
func New(token, channel string, logger *slog.Logger) Notifier {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(channel) == "" {
		return Nop{}
	}
	logger.Info("escalation notifications enabled", "channel", channel)
	return NewSlackNotifier(token, channel)
}
