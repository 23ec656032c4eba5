package catalog

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// RefreshResult reports one symbol's fetch outcome. A failed fetch is
// isolated: the symbol keeps a zero-price placeholder and the error text
// while the rest of the batch proceeds.
type RefreshResult struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Error  string `json:"error,omitempty"`
}

// QuoteSink is the slice of the catalog store the refresher writes to.
type QuoteSink interface {
	Symbols(ctx context.Context) ([]string, error)
	UpdateQuote(ctx context.Context, q Quote) error
}

type Service struct {
	store   QuoteSink
	fetcher *Fetcher
	bus     *Bus
	timeout time.Duration
}

func NewService(store QuoteSink, fetcher *Fetcher, bus *Bus, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{store: store, fetcher: fetcher, bus: bus, timeout: timeout}
}

// RefreshAll fetches every symbol concurrently, each under its own
// timeout. Quote fetching never runs inside a balance/wallet
// transaction; it only updates the catalog.
func (s *Service) RefreshAll(ctx context.Context, symbols []string) ([]RefreshResult, error) {
	if s.fetcher == nil {
		return nil, errors.New("quote source not configured")
	}
	results := make([]RefreshResult, len(symbols))
	var wg sync.WaitGroup
	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			quote, err := s.fetcher.FetchQuote(fetchCtx, symbol)
			if err != nil {
				// Degrade to a zero-price placeholder instead of failing
				// the whole batch.
				quote = Quote{Symbol: symbol}
				results[i] = RefreshResult{Symbol: symbol, Price: "0", Error: err.Error()}
			} else {
				results[i] = RefreshResult{Symbol: symbol, Price: quote.Price.String()}
			}
			if err := s.store.UpdateQuote(ctx, quote); err != nil {
				results[i].Error = err.Error()
			}
		}(i, symbol)
	}
	wg.Wait()
	if s.bus != nil {
		s.bus.Publish(Event{Type: "quotes", Quotes: results})
	}
	return results, nil
}

// RefreshCatalog refreshes every symbol currently in the catalog.
func (s *Service) RefreshCatalog(ctx context.Context) ([]RefreshResult, error) {
	symbols, err := s.store.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	return s.RefreshAll(ctx, symbols)
}

// StartRefresher refreshes the catalog on a fixed interval until the
// context is canceled. It is a no-op when no fetcher is configured.
func (s *Service) StartRefresher(ctx context.Context, interval time.Duration) {
	if s.fetcher == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.RefreshCatalog(ctx); err != nil {
					log.Printf("quote refresh: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
