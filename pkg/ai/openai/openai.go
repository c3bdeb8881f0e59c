// Package openai implements the embedding collaborator against any
// OpenAI-compatible embeddings endpoint.
package openai

import (
	"sync"
	"time"

	"github.com/corvid-labs/magpie/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

const (
	defaultDimensions    = 1536
	defaultTimeout       = 2 * time.Minute
	defaultMaxConcurrent = 4
)

// EmbeddingClient is an ai.Embedder backed by an OpenAI-compatible API.
//
// An EmbeddingClient should be created using NewEmbeddingClient.
type EmbeddingClient struct {
	model      string
	dimensions int
	timeout    time.Duration

	sem *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	client *openai.Client
}

// NewEmbeddingClientParams defines the configuration parameters for
// creating a new EmbeddingClient.
//
// Model specifies the embedding model. BaseURL and APIKey configure the
// endpoint. Dimensions fixes the output vector length; shorter responses
// are zero-padded and longer ones truncated. MaxConcurrent bounds parallel
// requests.
type NewEmbeddingClientParams struct {
	Model         string
	BaseURL       string
	APIKey        string
	Dimensions    int
	MaxConcurrent int
	Timeout       time.Duration
}

// NewEmbeddingClient creates and returns a new EmbeddingClient configured
// with the provided parameters. A missing API key yields a client with no
// transport; callers gate on that via Enabled.
func NewEmbeddingClient(params NewEmbeddingClientParams) *EmbeddingClient {
	if params.Dimensions <= 0 {
		params.Dimensions = defaultDimensions
	}
	if params.MaxConcurrent <= 0 {
		params.MaxConcurrent = defaultMaxConcurrent
	}
	if params.Timeout <= 0 {
		params.Timeout = defaultTimeout
	}

	return &EmbeddingClient{
		model:      params.Model,
		dimensions: params.Dimensions,
		timeout:    params.Timeout,
		sem:        semaphore.NewWeighted(int64(params.MaxConcurrent)),
		client:     newOpenaiClient(params.BaseURL, params.APIKey),
	}
}

// Enabled reports whether the client has a configured transport.
func (c *EmbeddingClient) Enabled() bool {
	return c != nil && c.client != nil
}

// Dimensions returns the fixed output vector length.
func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}

// Metrics returns a snapshot of accumulated usage.
func (c *EmbeddingClient) Metrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

// ResetMetrics zeroes the accumulated usage counters.
func (c *EmbeddingClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

func (c *EmbeddingClient) modifyMetrics(m ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += m.InputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
	c.metrics.Requests += m.Requests
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
