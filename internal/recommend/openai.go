package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default models used when none is configured.
const (
	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

var (
	ErrMissingAPIKey     = errors.New("OPENAI_API_KEY not set")
	ErrNoChoicesReturned = errors.New("no choices returned")
	ErrNoJSON            = errors.New("no JSON object in model response")
)

// chatService is the part of the OpenAI chat completions API the engines use.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// embeddingService is the part of the OpenAI embeddings API the engines use.
type embeddingService interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// Client wraps the OpenAI chat and embedding services.
type Client struct {
	chat           chatService
	embeddings     embeddingService
	model          string
	embeddingModel string
}

type clientOpts struct {
	apiKey         string
	baseURL        string
	model          string
	embeddingModel string
}

// ClientOption configures NewClient.
type ClientOption func(*clientOpts)

func WithAPIKey(key string) ClientOption {
	return func(o *clientOpts) { o.apiKey = key }
}

func WithBaseURL(url string) ClientOption {
	return func(o *clientOpts) { o.baseURL = url }
}

func WithModel(model string) ClientOption {
	return func(o *clientOpts) { o.model = model }
}

func WithEmbeddingModel(model string) ClientOption {
	return func(o *clientOpts) { o.embeddingModel = model }
}

// NewClient builds a Client. An API key is required.
func NewClient(opts ...ClientOption) (*Client, error) {
	var cfg clientOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.model == "" {
		cfg.model = DefaultChatModel
	}
	if cfg.embeddingModel == "" {
		cfg.embeddingModel = DefaultEmbeddingModel
	}
	if cfg.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	cli := openai.NewClient(reqOpts...)
	return &Client{
		chat:           &cli.Chat.Completions,
		embeddings:     &cli.Embeddings,
		model:          cfg.model,
		embeddingModel: cfg.embeddingModel,
	}, nil
}

// Complete sends one system and one user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed returns one vector per word, in input order.
func (c *Client) Embed(ctx context.Context, words []string) ([][]float64, error) {
	resp, err := c.embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: words},
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	if resp == nil || len(resp.Data) != len(words) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d words", lenData(resp), len(words))
	}
	out := make([][]float64, len(words))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func lenData(resp *openai.CreateEmbeddingResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Data)
}

// groupAnswer is the JSON object the prompts ask the model to return.
type groupAnswer struct {
	Words      []string `json:"words"`
	Connection string   `json:"connection"`
}

// parseGroupAnswer extracts the outermost JSON object from a model reply.
func parseGroupAnswer(content string) (groupAnswer, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return groupAnswer{}, ErrNoJSON
	}
	var ans groupAnswer
	if err := json.Unmarshal([]byte(content[start:end+1]), &ans); err != nil {
		return groupAnswer{}, fmt.Errorf("decode model answer: %w", err)
	}
	return ans, nil
}
