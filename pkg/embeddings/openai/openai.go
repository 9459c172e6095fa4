package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

const defaultDimensions = 1536

// EmbeddingClient generates embeddings through an OpenAI-compatible API.
//
// An EmbeddingClient should be created using NewEmbeddingClient.
type EmbeddingClient struct {
	model      string
	dimensions int
	timeoutMin int

	reqLock *semaphore.Weighted

	Client *openai.Client
}

// NewEmbeddingClientParams defines the configuration for creating an
// EmbeddingClient.
//
// Model specifies the embedding model. BaseURL and APIKey configure the
// endpoint; a compatible non-OpenAI endpoint works through BaseURL.
// MaxConcurrentRequests bounds in-flight requests.
type NewEmbeddingClientParams struct {
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
	TimeoutMin int

	MaxConcurrentRequests int64
}

// NewEmbeddingClient creates an EmbeddingClient configured with the provided
// parameters.
func NewEmbeddingClient(params NewEmbeddingClientParams) *EmbeddingClient {
	options := []option.RequestOption{
		option.WithAPIKey(params.APIKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(options...)

	dimensions := params.Dimensions
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	timeoutMin := params.TimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 2
	}
	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &EmbeddingClient{
		model:      params.Model,
		dimensions: dimensions,
		timeoutMin: timeoutMin,
		reqLock:    semaphore.NewWeighted(maxConcurrent),
		Client:     &client,
	}
}

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model. The vector is truncated or
// zero-padded to the configured dimension.
func (c *EmbeddingClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return make([]float32, c.dimensions), nil
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{string(input)}},
		Model: c.model,
	}
	response, err := c.Client.Embeddings.New(rCtx, body)
	if err != nil {
		return nil, err
	}
	if len(response.Data) != 1 {
		return nil, fmt.Errorf("unexpected embedding result size: got %d want 1", len(response.Data))
	}

	vec := make([]float32, 0, c.dimensions)
	for _, v := range response.Data[0].Embedding {
		if len(vec) >= c.dimensions {
			break
		}
		vec = append(vec, float32(v))
	}
	if len(vec) < c.dimensions {
		padded := make([]float32, c.dimensions)
		copy(padded, vec)
		vec = padded
	}
	return vec, nil
}
