package surrogate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPPredictor calls a remote scoring service. The service accepts
// {"inputs": [...]} and answers {"scores": [...]} with one score per
// input.
type HTTPPredictor struct {
	url    string
	client *http.Client
}

// NewHTTPPredictor builds a predictor against the given endpoint URL.
func NewHTTPPredictor(url string) *HTTPPredictor {
	return &HTTPPredictor{
		url: url,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type predictRequest struct {
	Inputs []string `json:"inputs"`
}

type predictResponse struct {
	Scores []float64 `json:"scores"`
}

// Predict posts the batch to the remote service.
func (p *HTTPPredictor) Predict(ctx context.Context, inputs []string) ([]float64, error) {
	body, err := json.Marshal(predictRequest{Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("surrogate: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("surrogate: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("surrogate: calling %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("surrogate: %s returned %d: %s", p.url, resp.StatusCode, msg)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("surrogate: decoding response: %w", err)
	}
	if len(out.Scores) != len(inputs) {
		return nil, fmt.Errorf("surrogate: %s returned %d scores for %d inputs", p.url, len(out.Scores), len(inputs))
	}
	return out.Scores, nil
}
