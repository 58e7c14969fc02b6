package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/domain/search/filter"
	"github.com/sourcy/productsearch/internal/domain/search/request"
	"github.com/sourcy/productsearch/internal/domain/search/result"
	"github.com/sourcy/productsearch/internal/logger"
	healthuc "github.com/sourcy/productsearch/internal/usecase/health"
)

// maxBodyBytes caps the search request body.
const maxBodyBytes = 1 << 20

// StatusClientClosedRequest answers requests the client abandoned mid-search.
const StatusClientClosedRequest = 499

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeRerankFailed           ErrorCode = "rerank_failed"
	CodeDatastoreUnavailable   ErrorCode = "datastore_unavailable"
	CodeRequestCanceled        ErrorCode = "request_canceled"
	CodeTimeout                ErrorCode = "timeout"
	CodeInternalError          ErrorCode = "internal_error"
)

// SearchService runs product searches (consumer interface).
type SearchService interface {
	Search(ctx context.Context, req *request.Request) ([]result.Product, error)
}

// HealthService reports component health (consumer interface).
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler writes a response if it recognizes err and reports whether it did.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements the product search HTTP API.
type Server struct {
	search        SearchService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP handlers.
func NewServer(search SearchService, health HealthService, l *zap.Logger) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{
		search: search,
		health: health,
		logger: l,
		errorHandlers: []errorHandler{
			sentinelHandler(context.Canceled, StatusClientClosedRequest, CodeRequestCanceled),
			sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout),
			sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
			sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
			rerankErrorHandler,
			sentinelHandler(domain.ErrDatastore, http.StatusServiceUnavailable, CodeDatastoreUnavailable),
		},
	}
}

// Mount registers all routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Post("/v1/products/search", s.SearchProducts)
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of POST /v1/products/search.
// Prices accept JSON numbers or decimal strings.
type SearchRequest struct {
	Query            string           `json:"query"`
	Page             int              `json:"page"`
	Limit            int              `json:"limit"`
	PriceMin         *decimal.Decimal `json:"price_min,omitempty"`
	PriceMax         *decimal.Decimal `json:"price_max,omitempty"`
	MOQMin           *int64           `json:"moq_min,omitempty"`
	MOQMax           *int64           `json:"moq_max,omitempty"`
	LeadTimeMin      *int64           `json:"lead_time_min,omitempty"`
	LeadTimeMax      *int64           `json:"lead_time_max,omitempty"`
	ProductLabelKeys []string         `json:"product_label_keys,omitempty"`
	Rerank           bool             `json:"rerank"`
	Translated       bool             `json:"translated"`
	Categorized      bool             `json:"categorized"`
	BotSearch        bool             `json:"bot_search"`
}

// ProductItem is one search hit in the response.
type ProductItem struct {
	ProductID    int64           `json:"product_id"`
	VariantID    int64           `json:"variant_id"`
	Product      string          `json:"product"`
	Variant      string          `json:"variant"`
	Link         string          `json:"link"`
	SupplierID   int64           `json:"supplier_id"`
	Image        string          `json:"image"`
	ImageSource  string          `json:"image_source"`
	Price        decimal.Decimal `json:"price"`
	MOQ          int64           `json:"moq"`
	LeadTimeDays int64           `json:"lead_time_days"`
	Labels       []string        `json:"labels"`
	CosDistance  float64         `json:"cos_distance"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Items []ProductItem `json:"items"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Count int           `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SearchProducts handles POST /v1/products/search.
func (s *Server) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := body.toDomain()
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	products, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(ctx, w, err)
		return
	}

	items := make([]ProductItem, len(products))
	for i := range products {
		items[i] = productToItem(&products[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{
		Items: items,
		Page:  req.Page(),
		Limit: req.Limit(),
		Count: len(items),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (b *SearchRequest) toDomain() (request.Request, error) {
	f := filter.New(filter.Params{
		PriceMin:         b.PriceMin,
		PriceMax:         b.PriceMax,
		MOQMin:           b.MOQMin,
		MOQMax:           b.MOQMax,
		LeadTimeMin:      b.LeadTimeMin,
		LeadTimeMax:      b.LeadTimeMax,
		ProductLabelKeys: b.ProductLabelKeys,
		Translated:       b.Translated,
		Categorized:      b.Categorized,
		BotSearch:        b.BotSearch,
	})
	return request.New(b.Query, b.Page, b.Limit, f, b.Rerank)
}

func productToItem(p *result.Product) ProductItem {
	labels := p.Labels
	if labels == nil {
		labels = []string{}
	}
	return ProductItem{
		ProductID:    p.ProductID,
		VariantID:    p.VariantID,
		Product:      p.Product,
		Variant:      p.Variant,
		Link:         p.Link,
		SupplierID:   p.SupplierID,
		Image:        p.Image,
		ImageSource:  p.ImageSource,
		Price:        p.Price,
		MOQ:          p.MOQ,
		LeadTimeDays: p.LeadTimeDays,
		Labels:       labels,
		CosDistance:  p.CosDistance,
	}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation details and the reranker's own message are safe to show.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidQuery) {
		return err.Error()
	}
	var re *domain.RerankError
	if errors.As(err, &re) {
		return re.Error()
	}
	sentinels := []error{
		context.Canceled,
		context.DeadlineExceeded,
		domain.ErrEmbeddingProviderError,
		domain.ErrDatastore,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// rerankErrorHandler handles explicit reranker failures, reporting the upstream status.
func rerankErrorHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrRerankFailed) {
		return false
	}
	var re *domain.RerankError
	if errors.As(err, &re) && re.StatusCode != 0 {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"code":            CodeRerankFailed,
			"message":         msg,
			"upstream_status": re.StatusCode,
		})
		return true
	}
	writeError(w, http.StatusBadGateway, CodeRerankFailed, msg)
	return true
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logger.ForOperation(ctx, s.logger, "http", "search_products")
	if errors.Is(err, context.Canceled) {
		log.Info("request canceled", zap.Error(err))
	} else {
		log.Warn("domain error", zap.Error(err))
	}
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
