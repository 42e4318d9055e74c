package quote

import (
	"context"
	"strings"
	"sync"
	"time"

	"stock-line-bot/internal/types"
)

type cacheItem struct {
	quote      types.Quote
	expiration time.Time
}

// Service serves quotes through a short lived cache, so the alert checker
// does not repeat one upstream call per subscription on the same ticker.
type Service struct {
	provider types.QuoteProvider
	ttl      time.Duration

	mu    sync.RWMutex
	cache map[string]cacheItem
}

var _ types.QuoteProvider = (*Service)(nil)

func NewService(provider types.QuoteProvider, ttl time.Duration) *Service {
	return &Service{
		provider: provider,
		ttl:      ttl,
		cache:    make(map[string]cacheItem),
	}
}

func (s *Service) Quote(ctx context.Context, market types.Market, ticker string) (types.Quote, error) {
	key := string(market) + ":" + strings.ToUpper(strings.TrimSpace(ticker))

	s.mu.RLock()
	item, found := s.cache[key]
	s.mu.RUnlock()
	if found && time.Now().Before(item.expiration) {
		return item.quote, nil
	}

	quote, err := s.provider.Quote(ctx, market, ticker)
	if err != nil {
		return types.Quote{}, err
	}

	s.mu.Lock()
	s.cache[key] = cacheItem{quote: quote, expiration: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	return quote, nil
}
