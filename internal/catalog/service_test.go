package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type memSink struct {
	mu     sync.Mutex
	quotes map[string]Quote
}

func newMemSink() *memSink {
	return &memSink{quotes: map[string]Quote{}}
}

func (m *memSink) Symbols(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.quotes))
	for sym := range m.quotes {
		out = append(out, sym)
	}
	return out, nil
}

func (m *memSink) UpdateQuote(ctx context.Context, q Quote) error {
	m.mu.Lock()
	m.quotes[q.Symbol] = q
	m.mu.Unlock()
	return nil
}

func quoteServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Query().Get("symbol") {
		case "ACME":
			w.Write([]byte(`{"c":100.25,"o":99.00,"h":101.00,"l":98.50,"pc":99.75}`))
		case "SLOW":
			time.Sleep(2 * time.Second)
			w.Write([]byte(`{"c":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestFetchQuote(t *testing.T) {
	srv := quoteServer(t)
	defer srv.Close()
	f := NewFetcher(srv.Client(), srv.URL, "secret")
	q, err := f.FetchQuote(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("FetchQuote err=%v", err)
	}
	if !q.Price.Equal(decimal.RequireFromString("100.25")) {
		t.Fatalf("price = %s, want 100.25", q.Price)
	}
	if !q.PreviousClose.Equal(decimal.RequireFromString("99.75")) {
		t.Fatalf("previous close = %s, want 99.75", q.PreviousClose)
	}
}

func TestFetchQuoteBadToken(t *testing.T) {
	srv := quoteServer(t)
	defer srv.Close()
	f := NewFetcher(srv.Client(), srv.URL, "wrong")
	if _, err := f.FetchQuote(context.Background(), "ACME"); err == nil {
		t.Fatalf("expected error for rejected token")
	}
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	srv := quoteServer(t)
	defer srv.Close()
	sink := newMemSink()
	svc := NewService(sink, NewFetcher(srv.Client(), srv.URL, "secret"), nil, time.Second)

	results, err := svc.RefreshAll(context.Background(), []string{"ACME", "NOPE"})
	if err != nil {
		t.Fatalf("RefreshAll err=%v", err)
	}
	bys := map[string]RefreshResult{}
	for _, r := range results {
		bys[r.Symbol] = r
	}
	if bys["ACME"].Error != "" || bys["ACME"].Price != "100.25" {
		t.Fatalf("ACME result = %+v", bys["ACME"])
	}
	if bys["NOPE"].Error == "" || bys["NOPE"].Price != "0" {
		t.Fatalf("NOPE should degrade to a zero placeholder, got %+v", bys["NOPE"])
	}
	// The placeholder is persisted, not skipped.
	if got := sink.quotes["NOPE"]; !got.Price.IsZero() {
		t.Fatalf("NOPE stored price = %s, want 0", got.Price)
	}
	if got := sink.quotes["ACME"]; !got.Price.Equal(decimal.RequireFromString("100.25")) {
		t.Fatalf("ACME stored price = %s", got.Price)
	}
}

func TestRefreshAllTimeoutDegrades(t *testing.T) {
	srv := quoteServer(t)
	defer srv.Close()
	sink := newMemSink()
	svc := NewService(sink, NewFetcher(srv.Client(), srv.URL, "secret"), nil, 50*time.Millisecond)

	results, err := svc.RefreshAll(context.Background(), []string{"SLOW"})
	if err != nil {
		t.Fatalf("RefreshAll err=%v", err)
	}
	if results[0].Error == "" {
		t.Fatalf("timed-out symbol should report an error")
	}
	if got := sink.quotes["SLOW"]; !got.Price.IsZero() {
		t.Fatalf("stored price = %s, want 0 placeholder", got.Price)
	}
}

func TestRefreshWithoutFetcher(t *testing.T) {
	svc := NewService(newMemSink(), nil, nil, time.Second)
	if _, err := svc.RefreshAll(context.Background(), []string{"ACME"}); err == nil {
		t.Fatalf("expected error when no quote source is configured")
	}
}

func TestRefreshPublishesToBus(t *testing.T) {
	srv := quoteServer(t)
	defer srv.Close()
	bus := NewBus()
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	svc := NewService(newMemSink(), NewFetcher(srv.Client(), srv.URL, "secret"), bus, time.Second)

	if _, err := svc.RefreshAll(context.Background(), []string{"ACME"}); err != nil {
		t.Fatalf("RefreshAll err=%v", err)
	}
	select {
	case evt := <-sub:
		if evt.Type != "quotes" {
			t.Fatalf("event type = %q, want quotes", evt.Type)
		}
		if len(evt.Quotes) != 1 || evt.Quotes[0].Symbol != "ACME" {
			t.Fatalf("event quotes = %+v, want one ACME result", evt.Quotes)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event published")
	}
}
