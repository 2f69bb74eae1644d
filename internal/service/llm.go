package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mailsift/mailsift/internal/domain"
)

// maxPromptBodyChars caps the message body rendered into the classification
// prompt so one long email cannot blow the provider's context window.
const maxPromptBodyChars = 5000

// DecisionClient obtains per-category classification decisions from an LLM
// provider. One call covers every candidate category for one message.
type DecisionClient interface {
	DecideCategories(ctx context.Context, prompt string) ([]domain.CategoryDecision, error)
}

// LLMBatchStrategy classifies a message by asking an LLM to judge all
// candidate categories in a single request. Unlike the embedding strategy,
// results are not deterministic: the provider may answer differently for
// identical inputs.
type LLMBatchStrategy struct {
	client DecisionClient
}

// NewLLMBatchStrategy creates a new LLMBatchStrategy using the given
// decision client.
func NewLLMBatchStrategy(client DecisionClient) *LLMBatchStrategy {
	return &LLMBatchStrategy{client: client}
}

// Name returns the strategy identifier.
func (s *LLMBatchStrategy) Name() string {
	return StrategyNameLLM
}

// Classify sends one prompt covering the message and every candidate
// category, then filters the returned decisions: out-of-range category
// indexes are dropped silently, and only decisions with belongs=true and
// confidence >= threshold survive.
func (s *LLMBatchStrategy) Classify(ctx context.Context, message *domain.Message, categories []*domain.Category, topN int, threshold float64) ([]domain.ClassificationMatch, error) {
	if len(categories) == 0 {
		return []domain.ClassificationMatch{}, nil
	}

	prompt := buildClassificationPrompt(message, categories)

	decisions, err := s.client.DecideCategories(ctx, prompt)
	if err != nil {
		return nil, err
	}

	matches := make([]domain.ClassificationMatch, 0, len(decisions))
	for _, d := range decisions {
		if d.CategoryIndex < 0 || d.CategoryIndex >= len(categories) {
			continue
		}
		if !d.Belongs || d.Confidence < threshold {
			continue
		}

		cat := categories[d.CategoryIndex]
		explanation := strings.TrimSpace(d.Explanation)
		if explanation == "" {
			explanation = fmt.Sprintf("Model placed message %s in category '%s' with confidence %.4f",
				message.ID, cat.Name, d.Confidence)
		}

		matches = append(matches, domain.ClassificationMatch{
			Category:    cat,
			Score:       d.Confidence,
			Explanation: explanation,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	topN = clampTopN(topN)
	if len(matches) > topN {
		matches = matches[:topN]
	}

	return matches, nil
}

// buildClassificationPrompt renders the candidate list with stable 0-based
// indexes followed by a compact text block for the message.
func buildClassificationPrompt(message *domain.Message, categories []*domain.Category) string {
	var b strings.Builder

	b.WriteString("Candidate categories:\n")
	for i, cat := range categories {
		fmt.Fprintf(&b, "%d. %s: %s\n", i, cat.Name, cat.Description)
	}

	b.WriteString("\nMessage:\n")
	b.WriteString(buildMessageText(message))

	return b.String()
}

// buildMessageText renders the message fields into the block embedded in the
// classification prompt. Optional fields are skipped when empty and the body
// is truncated to a fixed budget with a marker appended.
func buildMessageText(message *domain.Message) string {
	if message == nil {
		return ""
	}

	lines := []string{
		"Subject: " + message.Subject,
		"From: " + message.Sender,
		"To: " + strings.Join(message.To, ", "),
	}

	if message.Date != nil {
		lines = append(lines, "Date: "+message.Date.UTC().Format(time.RFC3339))
	}
	if message.Snippet != "" {
		lines = append(lines, "Preview: "+message.Snippet)
	}
	if message.Body != "" {
		lines = append(lines, "Body: "+truncateBody(message.Body, maxPromptBodyChars))
	}

	return strings.Join(lines, "\n")
}

// truncateBody cuts s to at most max bytes, backing off to the nearest rune
// boundary so a multi-byte character is never split.
func truncateBody(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "... (truncated)"
}
