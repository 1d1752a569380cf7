package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type embedRequestBody struct {
	Inputs []string `json:"inputs"`
}

type embedResponseBody struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func newEmbedRequest(ctx context.Context, url string, texts []string) (*http.Request, error) {
	body, err := json.Marshal(embedRequestBody{Inputs: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func decodeEmbedResponse(resp *http.Response) ([][]float32, error) {
	var body embedResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	return body.Embeddings, nil
}
