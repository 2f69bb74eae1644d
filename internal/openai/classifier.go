package openai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mailsift/mailsift/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultChatModel is the chat model used for batch classification decisions
const DefaultChatModel = "gpt-4o-mini"

const classifierSystemPrompt = `You are an email classification assistant.
You will be given a list of candidate categories, each with a 0-based index,
a name and a description, followed by one email message.

Evaluate EVERY candidate category against the message and respond with a JSON
object of the form:

{"decisions": [{"category_index": 0, "belongs_in_category": true, "confidence": 0.87, "explanation": "..."}]}

Rules:
- Include exactly one decision per candidate category.
- "category_index" must be the index of the category as listed.
- "confidence" must be a number between 0 and 1.
- "explanation" must briefly state why the message does or does not belong.
Respond with JSON only, no prose around it.`

// ChatAPI defines the interface for chat completion calls
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// BatchClassifier issues one chat completion per message and parses the
// per-category decision list out of the response.
type BatchClassifier struct {
	api   ChatAPI
	model string
}

// NewBatchClassifier creates a BatchClassifier backed by the OpenAI API.
func NewBatchClassifier(apiKey, model string) *BatchClassifier {
	if model == "" {
		model = DefaultChatModel
	}
	return &BatchClassifier{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// NewBatchClassifierWithAPI creates a BatchClassifier with an explicit chat
// API, used to substitute the provider in tests.
func NewBatchClassifierWithAPI(api ChatAPI, model string) *BatchClassifier {
	if model == "" {
		model = DefaultChatModel
	}
	return &BatchClassifier{api: api, model: model}
}

type decisionList struct {
	Decisions []domain.CategoryDecision `json:"decisions"`
}

// DecideCategories sends the prompt to the chat model and returns the parsed
// per-category decisions. API failures surface as PROVIDER_ERROR; responses
// that do not parse into the decision schema surface as VALIDATION_ERROR.
func (c *BatchClassifier) DecideCategories(ctx context.Context, prompt string) ([]domain.CategoryDecision, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, domain.NewProviderError("chat completion failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, domain.NewProviderError("chat completion returned no choices", nil)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	var parsed decisionList
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, domain.NewValidationError("failed to parse classification response", err)
	}

	return parsed.Decisions, nil
}
