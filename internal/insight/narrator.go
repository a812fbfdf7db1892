package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const narratorSystem = `You are a performance marketing analyst. Rewrite the diagnostic below as a two sentence executive summary for a brand manager. Do not invent numbers that are not in the input.`

// Completer turns a system and user prompt into text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type anthropicCompleter struct {
	client anthropic.Client
	model  string
}

func (c *anthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 300,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("no text content in anthropic response")
}

// Narrator adds an optional executive summary on top of the rule-based insight.
type Narrator struct {
	c   Completer
	log *slog.Logger
}

// NewNarrator returns nil when no API key is configured; a nil Narrator summarises
// nothing.
func NewNarrator(apiKey, model string, log *slog.Logger) *Narrator {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return NewNarratorWith(&anthropicCompleter{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, log)
}

func NewNarratorWith(c Completer, log *slog.Logger) *Narrator {
	if log == nil {
		log = slog.Default()
	}
	return &Narrator{c: c, log: log}
}

// Summarize returns an LLM rewrite of in. Failures are logged and yield "" so the
// rule-based triple is always shown on its own.
func (n *Narrator) Summarize(ctx context.Context, in Insight) string {
	if n == nil || in.Insufficient() {
		return ""
	}
	user := fmt.Sprintf("Period: %s\nSymptom: %s\nRoot cause: %s\nRecommendation: %s",
		in.Period, in.Symptom, in.Cause, in.Recommendation)
	out, err := n.c.Complete(ctx, narratorSystem, user)
	if err != nil {
		n.log.Warn("insight summary failed", slog.Any("err", err))
		return ""
	}
	return strings.TrimSpace(out)
}
