// Package recommend implements the recommendation pipeline: candidate
// generation through the language model, catalog resolution through track
// search, graceful fallback, and playlist materialization.
package recommend

import (
	"context"
	"fmt"
	"strings"

	"flowbeat/internal/llm"
	"flowbeat/internal/shared"
	"github.com/charmbracelet/log"
)

// oversampleNumerator/Denominator implement requestCount = ceil(target * 1.5),
// oversampling candidates to compensate for catalog misses.
const (
	oversampleNumerator   = 3
	oversampleDenominator = 2
)

const suggestionPromptFormat = `You are a music curator. Suggest exactly %d real songs matching the listener's request.
Reply with one song per line in the form "Title by Artist".
Do not number the lines. Do not add bullets, commentary, or any other text.
Only suggest songs that actually exist. Never invent a song or an artist.`

// Completer issues one chat-completion call.
type Completer interface {
	Complete(ctx context.Context, req llm.ChatRequest) (string, error)
}

// RequestCount returns the number of candidates requested for a target count.
func RequestCount(target int) int {
	return (target*oversampleNumerator + oversampleDenominator - 1) / oversampleDenominator
}

// Suggester obtains candidate lines from the language model.
type Suggester struct {
	completer Completer
	logger    *log.Logger
}

// NewSuggester creates a Suggester backed by the given completer.
func NewSuggester(completer Completer, logger *log.Logger) *Suggester {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Suggester{completer: completer, logger: logger}
}

// Suggest asks the model for ceil(target*1.5) candidate lines describing the
// listener's request. The lines are unverified; resolution happens later.
func (s *Suggester) Suggest(ctx context.Context, listenerContext string, target int) ([]string, error) {
	count := RequestCount(target)

	reply, err := s.completer.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: fmt.Sprintf(suggestionPromptFormat, count)},
			{Role: "user", Content: listenerContext},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate suggestions: %w", err)
	}

	lines := make([]string, 0, count)
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	s.logger.Debug("generated candidate lines", "requested", count, "received", len(lines))
	return lines, nil
}

// Refine asks the model for replacement candidates given the current mix and
// the listener's feedback. The prior suggestions are replayed as conversation
// history so the model revises rather than starts over.
func (s *Suggester) Refine(ctx context.Context, listenerContext string, current []string, feedback string, target int) ([]string, error) {
	count := RequestCount(target)

	reply, err := s.completer.Complete(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: "system", Content: fmt.Sprintf(suggestionPromptFormat, count)},
			{Role: "user", Content: listenerContext},
			{Role: "assistant", Content: strings.Join(current, "\n")},
			{Role: "user", Content: feedback},
		},
		Temperature: 0.8,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refine suggestions: %w", err)
	}

	lines := make([]string, 0, count)
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	s.logger.Debug("refined candidate lines", "requested", count, "received", len(lines))
	return lines, nil
}

// Explain asks the model for a short explanation of why the resolved tracks
// fit the listener's request. Failures are tolerated by callers.
func (s *Suggester) Explain(ctx context.Context, listenerContext string, titles []string) (string, error) {
	prompt := fmt.Sprintf(
		"In two sentences, explain why these songs fit the request %q: %s. Plain text only.",
		listenerContext, strings.Join(titles, "; "),
	)

	reply, err := s.completer.Complete(ctx, llm.ChatRequest{
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.5,
		MaxTokens:   256,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate explanation: %w", err)
	}

	return strings.TrimSpace(reply), nil
}
