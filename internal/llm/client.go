package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/circuitbreaker"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/logger"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/pkg/retry"
)

type Client struct {
	client          *openai.Client
	model           string
	embeddingModel  string
	escalationModel string
	temperature     float32
	maxTokens       int
	timeout         time.Duration
	cb              *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float32
	MaxTokens    int
}

// Classification is the raw classifier output before taxonomy validation.
// The intent package owns coercion of unknown labels.
type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func NewClient(apiKey, model, embeddingModel, escalationModel string, temperature float32, maxTokens, timeoutSec int) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    2,
		InitialDelay:   300 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("LLM client initialized",
		zap.String("model", model),
		zap.String("embedding_model", embeddingModel),
		zap.String("escalation_model", escalationModel),
	)

	return &Client{
		client:          client,
		model:           model,
		embeddingModel:  embeddingModel,
		escalationModel: escalationModel,
		temperature:     temperature,
		maxTokens:       maxTokens,
		timeout:         time.Duration(timeoutSec) * time.Second,
		cb:              cb,
		retryConfig:     retryConfig,
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserPrompt,
		},
	}

	var content string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       model,
					Messages:    messages,
					Temperature: req.Temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			logger.Debug("LLM completion generated",
				zap.String("model", model),
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})

	if err != nil {
		return "", err
	}

	return content, nil
}

// ClassifyIntent asks the chat model to label the message against the given
// taxonomy. The returned label is NOT validated here; callers must coerce
// anything outside their taxonomy.
func (c *Client) ClassifyIntent(ctx context.Context, message string, labels []string) (*Classification, error) {
	systemPrompt := fmt.Sprintf(`You classify customer messages for a Persian/English FAQ chatbot.

Allowed labels: %s

Pick exactly one label. Return JSON only:
{"label": "<label>", "confidence": <0.0-1.0>, "reasoning": "<one short sentence>"}`,
		strings.Join(labels, ", "))

	content, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   message,
		Temperature:  0.0,
		MaxTokens:    150,
	})
	if err != nil {
		return nil, err
	}

	result, err := parseClassification(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}

	return result, nil
}

func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var embedding []float32

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateEmbeddings(
				ctx,
				openai.EmbeddingRequest{
					Input: []string{text},
					Model: openai.EmbeddingModel(c.embeddingModel),
				},
			)

			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}
			if len(resp.Data) == 0 {
				return fmt.Errorf("embedding response is empty")
			}

			embedding = make([]float32, len(resp.Data[0].Embedding))
			copy(embedding, resp.Data[0].Embedding)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return embedding, nil
}

func (c *Client) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 3*c.timeout)
	defer cancel()

	var embeddings [][]float32

	batchSize := 100
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]

		err := c.cb.Execute(ctx, func() error {
			return retry.Do(ctx, c.retryConfig, func() error {
				resp, err := c.client.CreateEmbeddings(
					ctx,
					openai.EmbeddingRequest{
						Input: batch,
						Model: openai.EmbeddingModel(c.embeddingModel),
					},
				)

				if err != nil {
					return fmt.Errorf("failed to generate batch embeddings: %w", err)
				}

				for _, data := range resp.Data {
					embedding := make([]float32, len(data.Embedding))
					copy(embedding, data.Embedding)
					embeddings = append(embeddings, embedding)
				}

				return nil
			})
		})

		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

// Reason runs the expensive escalation completion: it may rewrite a weak
// baseline answer using the retrieved FAQ context. An empty faqContext is
// allowed; the model is told to stay within the knowledge base.
func (c *Client) Reason(ctx context.Context, message, baselineAnswer, faqContext string) (string, error) {
	systemPrompt := `You are the senior support assistant for a Persian/English customer service chatbot.
A cheaper pipeline already produced a baseline answer from the FAQ knowledge base.
Improve it if you can do so using ONLY the provided FAQ context.
Answer in the user's language. Do not invent facts outside the context.
Return only the final answer text.`

	userPrompt := fmt.Sprintf(`Question: %s

Baseline answer: %s

FAQ context:
%s`, message, baselineAnswer, faqContext)

	content, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Model:        c.escalationModel,
		Temperature:  0.2,
		MaxTokens:    c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate escalated answer: %w", err)
	}

	return strings.TrimSpace(content), nil
}

func parseClassification(content string) (*Classification, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in classifier output")
	}

	var result Classification
	if err := json.Unmarshal([]byte(content[start:end+1]), &result); err != nil {
		return nil, err
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	return &result, nil
}
