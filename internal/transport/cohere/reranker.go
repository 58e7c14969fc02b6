package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sourcy/productsearch/internal/domain"
)

// Defaults for the Cohere rerank API.
const (
	DefaultBaseURL = "https://api.cohere.ai/v1"
	DefaultModel   = "rerank-english-v3.0"
	DefaultTimeout = 10 * time.Second
)

const maxErrorBody = 4 << 10

// Config holds the reranker settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Reranker calls Cohere's /rerank endpoint.
// A 4xx answer is an explicit *domain.RerankError. Transport failures,
// 408/429 and 5xx answers and unreadable bodies are returned as plain errors.
type Reranker struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n,omitempty"`
	ReturnDocuments bool     `json:"return_documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// NewReranker creates a Cohere rerank client.
func NewReranker(cfg *Config) *Reranker {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Reranker{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   model,
	}
}

// Rerank implements domain.Reranker.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]domain.RerankHit, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      topK,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("rerank service unavailable: status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("rerank service throttled: status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, explicitError(resp)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected rerank status %d", resp.StatusCode)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	hits := make([]domain.RerankHit, len(parsed.Results))
	for i, res := range parsed.Results {
		hits[i] = domain.RerankHit{Index: res.Index, RelevanceScore: res.RelevanceScore}
	}
	return hits, nil
}

func explicitError(resp *http.Response) *domain.RerankError {
	e := &domain.RerankError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var parsed errorResponse
	if json.Unmarshal(data, &parsed) == nil && parsed.Message != "" {
		e.Message = parsed.Message
	} else if s := strings.TrimSpace(string(data)); s != "" && !strings.HasPrefix(s, "{") {
		e.Message = s
	}
	return e
}
