package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sourcy/productsearch/internal/domain"
	"github.com/sourcy/productsearch/internal/domain/search/result"
)

func twoProducts() []result.Product {
	return []result.Product{
		{ProductID: 1, Product: "A"},
		{ProductID: 2, Product: "B"},
	}
}

func TestRerank_Reorders(t *testing.T) {
	rr := &mockReranker{rerankFn: func(context.Context, string, []string, int) ([]domain.RerankHit, error) {
		return []domain.RerankHit{{Index: 1}, {Index: 0}}, nil
	}}

	got, err := NewRerankOrchestrator(rr, 0, nil).Apply(context.Background(), "q", twoProducts(), 2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !equalIDs(productIDs(got), []int64{2, 1}) {
		t.Errorf("order = %v, want [2 1]", productIDs(got))
	}
	if len(rr.docs) != 2 || rr.docs[0] != "A" || rr.docs[1] != "B" || rr.topK != 2 {
		t.Errorf("reranker got docs=%v topK=%d", rr.docs, rr.topK)
	}
}

func TestRerank_DropsUnreferencedAndBadIndices(t *testing.T) {
	products := []result.Product{{ProductID: 1}, {ProductID: 2}, {ProductID: 3}}
	rr := &mockReranker{rerankFn: func(context.Context, string, []string, int) ([]domain.RerankHit, error) {
		return []domain.RerankHit{{Index: 2}, {Index: 7}, {Index: 2}, {Index: -1}, {Index: 0}}, nil
	}}

	got, err := NewRerankOrchestrator(rr, 0, nil).Apply(context.Background(), "q", products, 3)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !equalIDs(productIDs(got), []int64{3, 1}) {
		t.Errorf("order = %v, want [3 1]", productIDs(got))
	}
}

func TestRerank_ExplicitFailurePropagates(t *testing.T) {
	rr := &mockReranker{rerankFn: func(context.Context, string, []string, int) ([]domain.RerankHit, error) {
		return nil, &domain.RerankError{StatusCode: 400, Message: "too many tokens"}
	}}

	_, err := NewRerankOrchestrator(rr, 0, nil).Apply(context.Background(), "q", twoProducts(), 2)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "too many tokens" {
		t.Errorf("message = %q", err.Error())
	}
	if !errors.Is(err, domain.ErrRerankFailed) {
		t.Errorf("expected ErrRerankFailed match")
	}
}

func TestRerank_WrappedExplicitFailureIsUnwrapped(t *testing.T) {
	rr := &mockReranker{rerankFn: func(context.Context, string, []string, int) ([]domain.RerankHit, error) {
		return nil, errors.Join(errors.New("ctx"), &domain.RerankError{Message: "model not found"})
	}}

	_, err := NewRerankOrchestrator(rr, 0, nil).Apply(context.Background(), "q", twoProducts(), 2)
	if err == nil || err.Error() != "model not found" {
		t.Fatalf("got %v", err)
	}
}

func TestRerank_TransientFailureFallsBack(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	rr := &mockReranker{rerankFn: func(context.Context, string, []string, int) ([]domain.RerankHit, error) {
		return nil, errors.New("connection reset by peer")
	}}

	got, err := NewRerankOrchestrator(rr, 0, zap.New(core)).Apply(context.Background(), "q", twoProducts(), 2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !equalIDs(productIDs(got), []int64{1, 2}) {
		t.Errorf("order = %v, want original [1 2]", productIDs(got))
	}
	if logs.FilterMessage("Reranking failed, returning original order").Len() != 1 {
		t.Error("fallback must be logged")
	}
}

func TestRerank_PanicFallsBack(t *testing.T) {
	rr := &mockReranker{rerankFn: func(context.Context, string, []string, int) ([]domain.RerankHit, error) {
		panic("nil map")
	}}

	got, err := NewRerankOrchestrator(rr, 0, nil).Apply(context.Background(), "q", twoProducts(), 2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !equalIDs(productIDs(got), []int64{1, 2}) {
		t.Errorf("order = %v", productIDs(got))
	}
}

func TestRerank_OwnTimeoutFallsBack(t *testing.T) {
	rr := &mockReranker{rerankFn: func(ctx context.Context, _ string, _ []string, _ int) ([]domain.RerankHit, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	got, err := NewRerankOrchestrator(rr, 20*time.Millisecond, nil).Apply(context.Background(), "q", twoProducts(), 2)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected original list, got %v", productIDs(got))
	}
}

func TestRerank_CallerCancellationIsReturned(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rr := &mockReranker{rerankFn: func(ctx context.Context, _ string, _ []string, _ int) ([]domain.RerankHit, error) {
		cancel()
		return nil, ctx.Err()
	}}

	_, err := NewRerankOrchestrator(rr, 0, nil).Apply(ctx, "q", twoProducts(), 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRerank_EmptyInputSkipsCall(t *testing.T) {
	rr := &mockReranker{}
	got, err := NewRerankOrchestrator(rr, 0, nil).Apply(context.Background(), "q", nil, 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
	if rr.calls != 0 {
		t.Error("reranker must not be called for empty input")
	}
}

func TestRerank_NilRerankerIsPassthrough(t *testing.T) {
	got, err := NewRerankOrchestrator(nil, 0, nil).Apply(context.Background(), "q", twoProducts(), 1)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !equalIDs(productIDs(got), []int64{1}) {
		t.Errorf("order = %v, want [1]", productIDs(got))
	}
}
