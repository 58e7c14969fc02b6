package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sourcy/productsearch/internal/app"
	"github.com/sourcy/productsearch/internal/config"
	"github.com/sourcy/productsearch/internal/domain/search/filter"
	"github.com/sourcy/productsearch/internal/domain/search/request"
	logpkg "github.com/sourcy/productsearch/internal/logger"
	"github.com/sourcy/productsearch/internal/version"
)

// CLI runs one product search and prints the hits as JSON.
type CLI struct {
	Version kong.VersionFlag `help:"Print version and exit"`

	Env      string `help:"Config environment (config/<env>.yaml)" default:"local" env:"ENV"`
	LogLevel string `help:"Log level override (debug, info, warn, error)" default:"warn"`

	Query  string `help:"Search query - what you're looking for" required:""`
	Page   int    `help:"Zero-based page number" default:"0"`
	Limit  int    `help:"Maximum number of products to return" default:"20"`
	Rerank bool   `help:"Rerank the page with the cross-encoder" default:"false"`

	PriceMin    string   `help:"Minimum variant price (decimal)"`
	PriceMax    string   `help:"Maximum variant price (decimal)"`
	MOQMin      string   `name:"moq-min" help:"Minimum order quantity lower bound"`
	MOQMax      string   `name:"moq-max" help:"Minimum order quantity upper bound"`
	LeadTimeMin string   `help:"Lead time lower bound in days"`
	LeadTimeMax string   `help:"Lead time upper bound in days"`
	Label       []string `help:"Product label key; a product must carry at least one" sep:","`
	Translated  bool     `help:"Only products with a translated title"`
	Categorized bool     `help:"Only products with a taxonomy assignment"`
	BotSearch   bool     `help:"Only products with positive price, weight and dimensions"`
}

// Run executes the search.
func (c *CLI) Run() error {
	req, err := c.request()
	if err != nil {
		return err
	}

	cfg, err := config.Load(c.Env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(c.Env, logpkg.Options{Level: c.LogLevel, Service: "psearch"})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.Search.Search(ctx, &req)
	if err != nil {
		return err
	}
	logger.Debug("Search finished", zap.Int("count", len(products)))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(products)
}

// request validates the flags into a search request.
func (c *CLI) request() (request.Request, error) {
	var (
		p   filter.Params
		err error
	)
	if p.PriceMin, err = parseDecimal("price-min", c.PriceMin); err != nil {
		return request.Request{}, err
	}
	if p.PriceMax, err = parseDecimal("price-max", c.PriceMax); err != nil {
		return request.Request{}, err
	}
	if p.MOQMin, err = parseInt("moq-min", c.MOQMin); err != nil {
		return request.Request{}, err
	}
	if p.MOQMax, err = parseInt("moq-max", c.MOQMax); err != nil {
		return request.Request{}, err
	}
	if p.LeadTimeMin, err = parseInt("lead-time-min", c.LeadTimeMin); err != nil {
		return request.Request{}, err
	}
	if p.LeadTimeMax, err = parseInt("lead-time-max", c.LeadTimeMax); err != nil {
		return request.Request{}, err
	}
	p.ProductLabelKeys = c.Label
	p.Translated = c.Translated
	p.Categorized = c.Categorized
	p.BotSearch = c.BotSearch

	return request.New(c.Query, c.Page, c.Limit, filter.New(p), c.Rerank)
}

func parseDecimal(flag, s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return &d, nil
}

func parseInt(flag, s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return &n, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("psearch"),
		kong.Description("Find catalog products similar to a free-text query"),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
