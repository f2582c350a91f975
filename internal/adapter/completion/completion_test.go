package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-ingest/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// MockModel is a mock type for the llms.Model interface
type MockModel struct {
	mock.Mock
}

func (m *MockModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	args := m.Called(ctx, messages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llms.ContentResponse), args.Error(1)
}

func (m *MockModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestNew_SelectsProvider(t *testing.T) {
	c, err := New(config.LLMConfig{Provider: config.ProviderNone}, nil)
	assert.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(config.LLMConfig{Provider: config.ProviderOpenAI}, nil)
	assert.NoError(t, err)
	assert.Nil(t, c, "openai without api key is treated as not configured")

	c, err = New(config.LLMConfig{Provider: config.ProviderOpenAI, APIKey: "sk"}, nil)
	assert.NoError(t, err)
	assert.IsType(t, &OpenAICompleter{}, c)

	c, err = New(config.LLMConfig{Provider: config.ProviderOllama, ServerURL: "http://localhost:11434", Model: "qwen3:0.6b"}, nil)
	assert.NoError(t, err)
	assert.IsType(t, &OllamaCompleter{}, c)

	_, err = New(config.LLMConfig{Provider: "gemini"}, nil)
	assert.Error(t, err)
}

func TestNewOllamaCompleter_Validation(t *testing.T) {
	_, err := NewOllamaCompleter("", "m", time.Second, http.DefaultClient, nil)
	assert.ErrorContains(t, err, "server URL cannot be empty")

	_, err = NewOllamaCompleter("http://localhost:11434", "", time.Second, http.DefaultClient, nil)
	assert.ErrorContains(t, err, "model name cannot be empty")
}

func TestOllamaCompleter_Complete(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		model := new(MockModel)
		model.On("GenerateContent", mock.Anything, mock.Anything).Return(&llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: `{"questions":[]}`}},
		}, nil).Once()

		out, err := newOllamaCompleter(model, time.Second, nil).Complete(ctx, "prompt")

		require.NoError(t, err)
		assert.Equal(t, `{"questions":[]}`, out)
		model.AssertExpectations(t)
	})

	t.Run("provider error", func(t *testing.T) {
		model := new(MockModel)
		model.On("GenerateContent", mock.Anything, mock.Anything).Return(nil, errors.New("model not found")).Once()

		_, err := newOllamaCompleter(model, time.Second, nil).Complete(ctx, "prompt")

		assert.ErrorContains(t, err, "ollama call failed")
	})

	t.Run("timeout", func(t *testing.T) {
		model := new(MockModel)
		model.On("GenerateContent", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded).Once()

		_, err := newOllamaCompleter(model, time.Second, nil).Complete(ctx, "prompt")

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.ErrorContains(t, err, "timed out")
	})
}

func TestOpenAICompleter_Complete(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"gpt-4o-mini",` +
			`"choices":[{"index":0,"message":{"role":"assistant","content":"structured"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	c := NewOpenAICompleter("sk-test", server.URL+"/v1", "", time.Second, server.Client(), nil)
	out, err := c.Complete(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "structured", out)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
}

func TestOpenAICompleter_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer server.Close()

	c := NewOpenAICompleter("sk-test", server.URL+"/v1", "gpt-4o", time.Second, server.Client(), nil)
	_, err := c.Complete(context.Background(), "hello")

	assert.ErrorContains(t, err, "openai call failed")
}

func TestOpenAICompleter_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	c := NewOpenAICompleter("sk-test", server.URL+"/v1", "gpt-4o", time.Second, server.Client(), nil)
	_, err := c.Complete(context.Background(), "hello")

	assert.ErrorIs(t, err, errEmptyChoices)
}
