package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/domain/search/request"
	"github.com/sourcy/productsearch/internal/domain/search/result"
	healthuc "github.com/sourcy/productsearch/internal/usecase/health"
)

type mockSearch struct {
	searchFn func(ctx context.Context, req *request.Request) ([]result.Product, error)
}

func (m *mockSearch) Search(ctx context.Context, req *request.Request) ([]result.Product, error) {
	return m.searchFn(ctx, req)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestRouter(s SearchService, h HealthService) http.Handler {
	if h == nil {
		h = &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}}
	}
	r := chi.NewRouter()
	NewServer(s, h, nil).Mount(r)
	return r
}

func doSearch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/products/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp
}

func TestSearchProducts_OK(t *testing.T) {
	var got *request.Request
	svc := &mockSearch{searchFn: func(ctx context.Context, req *request.Request) ([]result.Product, error) {
		got = req
		domain.UsageFromContext(ctx).AddTokens(7)
		return []result.Product{
			{ProductID: 1, VariantID: 11, Product: "Mug", Price: decimal.RequireFromString("4.50"), Labels: []string{"eco"}},
			{ProductID: 2, VariantID: 21, Product: "Cup", Price: decimal.RequireFromString("3")},
		}, nil
	}}

	rr := doSearch(t, newTestRouter(svc, nil), `{
		"query": " ceramic mug ",
		"page": 1,
		"limit": 2,
		"price_min": "1.25",
		"price_max": 10,
		"moq_max": 500,
		"product_label_keys": ["eco", "eco", ""],
		"rerank": true,
		"bot_search": true
	}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if h := rr.Header().Get("X-Embedding-Tokens"); h != "7" {
		t.Errorf("X-Embedding-Tokens = %q, want 7", h)
	}

	if got == nil {
		t.Fatal("search service not called")
	}
	if got.Query() != "ceramic mug" || got.Page() != 1 || got.Limit() != 2 || !got.Rerank() {
		t.Errorf("request = %q page=%d limit=%d rerank=%v", got.Query(), got.Page(), got.Limit(), got.Rerank())
	}
	f := got.Filters()
	if f.Price().Min() == nil || !f.Price().Min().Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("price min = %v", f.Price().Min())
	}
	if f.Price().Max() == nil || !f.Price().Max().Equal(decimal.NewFromInt(10)) {
		t.Errorf("price max = %v", f.Price().Max())
	}
	if f.MOQ().Min() != nil || f.MOQ().Max() == nil || *f.MOQ().Max() != 500 {
		t.Errorf("moq = %v..%v", f.MOQ().Min(), f.MOQ().Max())
	}
	if keys := f.LabelKeys(); len(keys) != 1 || keys[0] != "eco" {
		t.Errorf("label keys = %v", keys)
	}
	if !f.BotSearch() || f.Translated() || f.Categorized() {
		t.Error("unexpected flags")
	}

	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.Page != 1 || resp.Limit != 2 {
		t.Errorf("envelope = %+v", resp)
	}
	if resp.Items[0].ProductID != 1 || !resp.Items[0].Price.Equal(decimal.RequireFromString("4.5")) {
		t.Errorf("item[0] = %+v", resp.Items[0])
	}
	if resp.Items[1].Labels == nil {
		t.Error("labels should encode as [] not null")
	}
}

func TestSearchProducts_NoEmbeddingHeaderWhenUnused(t *testing.T) {
	svc := &mockSearch{searchFn: func(context.Context, *request.Request) ([]result.Product, error) {
		return nil, nil
	}}
	rr := doSearch(t, newTestRouter(svc, nil), `{"query":"x"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if h := rr.Header().Get("X-Embedding-Tokens"); h != "" {
		t.Errorf("X-Embedding-Tokens = %q, want empty", h)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Items == nil || resp.Count != 0 || resp.Limit != request.DefaultLimit {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSearchProducts_InvalidBody(t *testing.T) {
	svc := &mockSearch{searchFn: func(context.Context, *request.Request) ([]result.Product, error) {
		t.Fatal("search must not be called")
		return nil, nil
	}}
	rr := doSearch(t, newTestRouter(svc, nil), `{"query":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if resp := decodeError(t, rr); resp.Code != CodeBadRequest {
		t.Errorf("code = %s", resp.Code)
	}
}

func TestSearchProducts_ValidationRejectedBeforeService(t *testing.T) {
	svc := &mockSearch{searchFn: func(context.Context, *request.Request) ([]result.Product, error) {
		t.Fatal("search must not be called")
		return nil, nil
	}}
	for _, body := range []string{`{"query":"   "}`, `{"query":"x","page":-1}`, `{"query":"x","limit":-5}`} {
		rr := doSearch(t, newTestRouter(svc, nil), body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, rr.Code)
			continue
		}
		if resp := decodeError(t, rr); resp.Code != CodeValidationFailed {
			t.Errorf("%s: code = %s", body, resp.Code)
		}
	}
}

func TestSearchProducts_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
		wantMsg    string
	}{
		{
			name:       "embedding",
			err:        fmt.Errorf("%w: openai: 500", domain.ErrEmbeddingProviderError),
			wantStatus: http.StatusBadGateway,
			wantCode:   CodeEmbeddingProviderError,
			wantMsg:    domain.ErrEmbeddingProviderError.Error(),
		},
		{
			name:       "datastore",
			err:        fmt.Errorf("%w: SELECT candidates: conn refused", domain.ErrDatastore),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   CodeDatastoreUnavailable,
			wantMsg:    domain.ErrDatastore.Error(),
		},
		{
			name:       "rerank",
			err:        &domain.RerankError{StatusCode: 400, Message: "invalid api token"},
			wantStatus: http.StatusBadGateway,
			wantCode:   CodeRerankFailed,
			wantMsg:    "invalid api token",
		},
		{
			name:       "client canceled",
			err:        fmt.Errorf("%w: %w", domain.ErrDatastore, context.Canceled),
			wantStatus: StatusClientClosedRequest,
			wantCode:   CodeRequestCanceled,
			wantMsg:    context.Canceled.Error(),
		},
		{
			name:       "deadline",
			err:        fmt.Errorf("embed query: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   CodeTimeout,
			wantMsg:    context.DeadlineExceeded.Error(),
		},
		{
			name:       "unknown",
			err:        errors.New("boom: secret details"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternalError,
			wantMsg:    "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSearch{searchFn: func(context.Context, *request.Request) ([]result.Product, error) {
				return nil, tt.err
			}}
			rr := doSearch(t, newTestRouter(svc, nil), `{"query":"mug"}`)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			resp := decodeError(t, rr)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
		})
	}
}

func TestSearchProducts_CanceledIsNotAnError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	svc := &mockSearch{searchFn: func(context.Context, *request.Request) ([]result.Product, error) {
		return nil, context.Canceled
	}}
	r := chi.NewRouter()
	NewServer(svc, &mockHealth{}, zap.New(core)).Mount(r)

	rr := doSearch(t, r, `{"query":"mug","rerank":true}`)
	if rr.Code != StatusClientClosedRequest {
		t.Fatalf("status = %d, want %d", rr.Code, StatusClientClosedRequest)
	}
	if n := logs.FilterLevelExact(zapcore.ErrorLevel).Len(); n != 0 {
		t.Errorf("error logs = %d, want 0", n)
	}
	if n := logs.FilterLevelExact(zapcore.WarnLevel).Len(); n != 0 {
		t.Errorf("warn logs = %d, want 0", n)
	}
	if logs.FilterMessage("request canceled").Len() != 1 {
		t.Error("expected one request canceled log")
	}
}

func TestSearchProducts_RerankUpstreamStatus(t *testing.T) {
	svc := &mockSearch{searchFn: func(context.Context, *request.Request) ([]result.Product, error) {
		return nil, &domain.RerankError{StatusCode: 422, Message: "too many documents"}
	}}
	rr := doSearch(t, newTestRouter(svc, nil), `{"query":"mug","rerank":true}`)

	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["upstream_status"] != float64(422) {
		t.Errorf("upstream_status = %v", body["upstream_status"])
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		report     healthuc.Report
		wantStatus int
	}{
		{"healthy", healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{healthuc.ComponentDatabase: healthuc.CheckOK},
		}, http.StatusOK},
		{"degraded", healthuc.Report{
			Status: healthuc.Degraded,
			Checks: map[string]healthuc.CheckResult{healthuc.ComponentCache: healthuc.CheckError},
		}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&mockSearch{}, &mockHealth{report: tt.report})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tt.report.Status) {
				t.Errorf("status = %q", resp.Status)
			}
			for k, v := range tt.report.Checks {
				if resp.Checks[k] != string(v) {
					t.Errorf("checks[%s] = %q, want %q", k, resp.Checks[k], v)
				}
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	h := newTestRouter(&mockSearch{}, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("content type = %q", rr.Header().Get("Content-Type"))
	}
}
