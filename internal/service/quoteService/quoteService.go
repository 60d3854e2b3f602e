package quoteService

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/KotFed0t/portfolio_tracker/config"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/utils"
)

type Provider interface {
	GetLatestQuote(ctx context.Context, symbol string) (model.Quote, error)
	GetHistoricalDaily(ctx context.Context, symbol string, start, end time.Time) ([]model.HistoricalPoint, error)
}

type CacheStore interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	SetQuote(ctx context.Context, quote model.Quote) error
}

// cryptoAliases maps bare crypto tickers onto the provider's USD-quoted form.
var cryptoAliases = map[string]struct{}{
	"BTC":  {},
	"ETH":  {},
	"SOL":  {},
	"ADA":  {},
	"XRP":  {},
	"DOGE": {},
	"DOT":  {},
	"LTC":  {},
}

// QuoteService wraps the price provider with a TTL cache and stale-fallback
// policy. The cache row set is the only shared mutable state in the engine;
// a per-symbol lock serializes the read-check-refresh-upsert sequence.
type QuoteService struct {
	provider Provider
	cache    CacheStore
	cfg      *config.Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(cfg *config.Config, provider Provider, cache CacheStore) *QuoteService {
	return &QuoteService{
		provider: provider,
		cache:    cache,
		cfg:      cfg,
		locks:    make(map[string]*sync.Mutex),
	}
}

// NormalizeSymbol maps user-facing shorthand onto the provider's ticker form.
// The normalized form is also the cache key.
func NormalizeSymbol(symbol string) string {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if _, ok := cryptoAliases[normalized]; ok {
		return normalized + "-USD"
	}
	return normalized
}

func (s *QuoteService) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[symbol]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[symbol] = lock
	}
	return lock
}

// GetQuote returns the latest price for symbol. A cached entry younger than
// the TTL is served as-is; otherwise the provider is asked and the cache
// upserted. On provider failure a cached entry of any age is returned flagged
// stale; with no cache at all the result is ErrQuoteUnavailable, a price is
// never fabricated.
func (s *QuoteService) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.GetQuote"

	normalized := NormalizeSymbol(symbol)

	lock := s.symbolLock(normalized)
	lock.Lock()
	defer lock.Unlock()

	cached, cacheErr := s.cache.GetQuote(ctx, normalized)
	if cacheErr == nil && time.Since(cached.FetchedAt) < s.cfg.Quotes.TTL {
		cached.Stale = false
		cached.Warning = ""
		return cached, nil
	}

	fresh, err := s.provider.GetLatestQuote(ctx, normalized)
	if err == nil {
		fresh.Symbol = normalized
		if fresh.FetchedAt.IsZero() {
			fresh.FetchedAt = time.Now().UTC()
		}
		if setErr := s.cache.SetQuote(ctx, fresh); setErr != nil {
			slog.Error("failed to upsert quote cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", normalized), slog.String("err", setErr.Error()))
		}
		return fresh, nil
	}

	slog.Warn("provider failed, falling back to cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", normalized), slog.String("err", err.Error()))

	if cacheErr == nil {
		cached.Stale = true
		cached.Warning = fmt.Sprintf("using cached quote due to provider issue: %s", err)
		return cached, nil
	}

	return model.Quote{}, service.ErrQuoteUnavailable
}

// GetQuotes resolves many symbols, keyed by the symbol as passed in so
// callers can map results back to their assets. Unavailable symbols are
// simply absent; one bad symbol never fails the batch.
func (s *QuoteService) GetQuotes(ctx context.Context, symbols []string) map[string]model.Quote {
	quotes := make(map[string]model.Quote, len(symbols))
	for _, symbol := range symbols {
		quote, err := s.GetQuote(ctx, symbol)
		if err != nil {
			continue
		}
		quotes[symbol] = quote
	}
	return quotes
}

// GetHistoricalDaily bypasses the cache entirely: one calendar fetch per
// request, failing per-symbol.
func (s *QuoteService) GetHistoricalDaily(ctx context.Context, symbol string, start, end time.Time) ([]model.HistoricalPoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "QuoteService.GetHistoricalDaily"

	points, err := s.provider.GetHistoricalDaily(ctx, NormalizeSymbol(symbol), start, end)
	if err != nil {
		slog.Warn("historical fetch failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return nil, err
	}
	return points, nil
}
