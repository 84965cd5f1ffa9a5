package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/videosearch-backend/internal/platform/logger"
)

// Client computes vector embeddings via a remote embedding model. The
// model version is part of the embedding identity: rows written under
// one version are never touched by another.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	ModelVersion() string
}

type openaiClient struct {
	log   *logger.Logger
	api   *openai.Client
	model string
}

func NewOpenAI(log *logger.Logger, apiKey, model string) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &openaiClient{
		log:   log.With("service", "embed.OpenAI", "model", model),
		api:   openai.NewClient(apiKey),
		model: model,
	}, nil
}

func (c *openaiClient) ModelVersion() string { return c.model }

func (c *openaiClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(inputs), len(resp.Data))
	}

	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(inputs) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
