// Package embedding provides the vector-embedding adapter used by the
// enrichment consumer (Event/Entity similarity) and extraction's
// tier-2 entity resolution.
package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"
	"math"
	"net/http"

	"github.com/ctxatlas/atlas/pkg/config"
)

// Client embeds text into fixed-width vectors. NewHTTP talks to an
// external embedding service; NewLocal falls back to a deterministic
// hash-based embedding so the rest of the pipeline (similarity edges,
// entity resolution) can run in environments with no embedding service
// configured.
type Client struct {
	cfg    *config.EmbeddingConfig
	http   *http.Client
	url    string
}

// NewHTTP builds a Client backed by an external embedding service
// reachable at url, expected to accept {"inputs":[...]}"} and return
// {"embeddings":[[...]]}.
func NewHTTP(url string, cfg *config.EmbeddingConfig) *Client {
	return &Client{cfg: cfg, url: url, http: &http.Client{Timeout: cfg.RequestTimeout}}
}

// NewLocal builds a Client with no backing service: Embed falls back to
// a deterministic pseudo-embedding derived from the text's hash, which
// is stable (same text, same vector) but carries no real semantics.
func NewLocal(cfg *config.EmbeddingConfig) *Client {
	return &Client{cfg: cfg}
}

// Embed returns one embedding per input text, in order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.url == "" {
		out := make([][]float32, len(texts))
		for i, t := range texts {
			out[i] = localEmbedding(t, c.cfg.Dimension)
		}
		return out, nil
	}
	return c.embedRemote(ctx, texts)
}

// localEmbedding derives a deterministic unit vector from text's SHA-256
// digest, expanded/repeated to fill the configured dimension.
func localEmbedding(text string, dim int) []float32 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)
	for i := 0; i < dim; i++ {
		b := sum[i%len(sum)]
		vec[i] = (float32(b)/255.0)*2 - 1
	}
	return normalize(vec)
}

func normalize(vec []float32) []float32 {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return vec
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

// CosineSimilarity returns the cosine similarity of two equal-length
// embeddings, used by the enrichment consumer's SIMILAR_TO threshold
// check and extraction's tier-2 entity resolution.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func (c *Client) embedRemote(ctx context.Context, texts []string) ([][]float32, error) {
	// Batches larger than BatchSize are split to respect the service's
	// per-request limit.
	var out [][]float32
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := newEmbedRequest(reqCtx, c.url, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding: service returned status %d", resp.StatusCode)
	}
	return decodeEmbedResponse(resp)
}
