package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/AngelCh415/yukti/internal/models"
)

// Poster is the part of the Slack API used to announce resolutions.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Slack announces automatic resolutions in a channel.
type Slack struct {
	api     Poster
	channel string
	log     *slog.Logger
}

// NewSlack returns nil when token or channel is missing; a nil Slack announces nothing.
func NewSlack(token, channel string, log *slog.Logger, opts ...slack.Option) *Slack {
	if token == "" || channel == "" {
		return nil
	}
	return NewSlackWith(slack.New(token, opts...), channel, log)
}

func NewSlackWith(api Poster, channel string, log *slog.Logger) *Slack {
	if log == nil {
		log = slog.Default()
	}
	return &Slack{api: api, channel: channel, log: log}
}

// ResolutionText is the channel message for a resolved issue.
func ResolutionText(issue models.IssueRecord) string {
	switch issue.IssueType {
	case models.IssueOOS:
		return fmt.Sprintf(":rotating_light: Resolved out of stock: *%s %s* in %s. Ads paused and restock email dispatched.",
			issue.Product, issue.SKU, issue.City)
	case models.IssueContent:
		return fmt.Sprintf(":warning: Resolved content discrepancy: *%s %s* in %s (%s). Ticket email dispatched.",
			issue.Product, issue.SKU, issue.City, issue.Details)
	}
	return fmt.Sprintf("Resolved %s issue: *%s %s* in %s.", issue.IssueType, issue.Product, issue.SKU, issue.City)
}

// Announce posts the resolution. Errors are returned for accounting only.
func (s *Slack) Announce(ctx context.Context, issue models.IssueRecord) error {
	if s == nil {
		return ErrNotConfigured
	}
	_, _, err := s.api.PostMessageContext(ctx, s.channel, slack.MsgOptionText(ResolutionText(issue), false))
	if err != nil {
		s.log.Warn("slack announce failed", slog.String("channel", s.channel), slog.Any("err", err))
		return fmt.Errorf("slack: %w", err)
	}
	return nil
}
