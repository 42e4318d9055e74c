package quote

import (
	"context"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	fquote "github.com/piquette/finance-go/quote"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"stock-line-bot/internal/types"
)

// fetchFunc retrieves a raw quote from the upstream API.
type fetchFunc func(symbol string) (*finance.Quote, error)

// YahooProvider resolves tickers against Yahoo Finance.
type YahooProvider struct {
	fetch   fetchFunc
	timeout time.Duration
}

var _ types.QuoteProvider = (*YahooProvider)(nil)

func NewYahooProvider() *YahooProvider {
	return &YahooProvider{
		fetch:   fquote.Get,
		timeout: 10 * time.Second,
	}
}

// CandidateSymbols lists the provider symbols to try for a ticker. Domestic
// tickers resolve to the TWSE listing first, then the TPEx one.
func CandidateSymbols(market types.Market, ticker string) []string {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))
	if strings.ContainsRune(symbol, '.') {
		return []string{symbol}
	}
	if market == types.MarketDomestic {
		return []string{symbol + ".TW", symbol + ".TWO"}
	}
	return []string{symbol}
}

func (p *YahooProvider) Quote(ctx context.Context, market types.Market, ticker string) (types.Quote, error) {
	var lastErr error
	for _, symbol := range CandidateSymbols(market, ticker) {
		raw, err := p.fetchSymbol(ctx, symbol)
		if err != nil {
			if errors.Is(err, types.ErrQuoteNotFound) {
				lastErr = err
				continue
			}
			return types.Quote{}, err
		}
		return convertQuote(market, ticker, raw), nil
	}

	if lastErr == nil {
		lastErr = types.ErrQuoteNotFound
	}
	return types.Quote{}, errors.Wrapf(lastErr, "no listing for %s", ticker)
}

func (p *YahooProvider) fetchSymbol(ctx context.Context, symbol string) (*finance.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		quote *finance.Quote
		err   error
	}
	done := make(chan result, 1)

	go func() {
		quote, err := p.fetch(symbol)
		done <- result{quote, err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "quote lookup timed out for %s", symbol)
	case res := <-done:
		if res.err != nil {
			return nil, errors.Wrapf(res.err, "failed to fetch quote for %s", symbol)
		}
		if res.quote == nil {
			// The API reports unknown symbols as an empty result, not an error.
			return nil, types.ErrQuoteNotFound
		}
		return res.quote, nil
	}
}

func convertQuote(market types.Market, ticker string, raw *finance.Quote) types.Quote {
	name := raw.ShortName
	if name == "" {
		name = raw.Symbol
	}

	return types.Quote{
		Ticker:    ticker,
		Symbol:    raw.Symbol,
		Market:    market,
		Name:      name,
		Price:     decimal.NewFromFloat(raw.RegularMarketPrice),
		Currency:  raw.CurrencyID,
		ChangePct: decimal.NewFromFloat(raw.RegularMarketChangePercent),
		PrevClose: decimal.NewFromFloat(raw.RegularMarketPreviousClose),
		Volume:    int64(raw.RegularMarketVolume),
		Time:      time.Unix(int64(raw.RegularMarketTime), 0),
	}
}
