package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/mailsift/mailsift/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatAPI is a mock for the chat completion API
type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestBatchClassifier_DecideCategories_Success(t *testing.T) {
	mockAPI := new(MockChatAPI)
	classifier := NewBatchClassifierWithAPI(mockAPI, "gpt-4o-mini")

	content := `{"decisions": [
		{"category_index": 0, "belongs_in_category": true, "confidence": 0.9, "explanation": "work email"},
		{"category_index": 1, "belongs_in_category": false, "confidence": 0.2, "explanation": "not a newsletter"}
	]}`
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-4o-mini" &&
			len(req.Messages) == 2 &&
			req.ResponseFormat != nil &&
			req.ResponseFormat.Type == openai.ChatCompletionResponseFormatTypeJSONObject
	})).Return(chatResponse(content), nil)

	decisions, err := classifier.DecideCategories(context.Background(), "Categories:\n0. Work\n1. Newsletters")

	require.NoError(t, err)
	require.Len(t, decisions, 2)
	assert.Equal(t, 0, decisions[0].CategoryIndex)
	assert.True(t, decisions[0].Belongs)
	assert.Equal(t, 0.9, decisions[0].Confidence)
	assert.Equal(t, "work email", decisions[0].Explanation)
	assert.False(t, decisions[1].Belongs)
	mockAPI.AssertExpectations(t)
}

func TestBatchClassifier_DecideCategories_APIError(t *testing.T) {
	mockAPI := new(MockChatAPI)
	classifier := NewBatchClassifierWithAPI(mockAPI, "")

	apiErr := errors.New("quota exceeded")
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, apiErr)

	decisions, err := classifier.DecideCategories(context.Background(), "prompt")

	assert.Nil(t, decisions)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeProviderError, domainErr.Code)
	assert.ErrorIs(t, err, apiErr)
}

func TestBatchClassifier_DecideCategories_NoChoices(t *testing.T) {
	mockAPI := new(MockChatAPI)
	classifier := NewBatchClassifierWithAPI(mockAPI, "")

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, nil)

	_, err := classifier.DecideCategories(context.Background(), "prompt")

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeProviderError, domainErr.Code)
}

func TestBatchClassifier_DecideCategories_MalformedJSON(t *testing.T) {
	mockAPI := new(MockChatAPI)
	classifier := NewBatchClassifierWithAPI(mockAPI, "")

	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(chatResponse("sorry, I cannot help with that"), nil)

	decisions, err := classifier.DecideCategories(context.Background(), "prompt")

	assert.Nil(t, decisions)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestNewBatchClassifier_DefaultModel(t *testing.T) {
	classifier := NewBatchClassifierWithAPI(new(MockChatAPI), "")
	assert.Equal(t, DefaultChatModel, classifier.model)
}
