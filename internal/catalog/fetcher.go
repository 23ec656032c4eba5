package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// Quote is one priced symbol as reported by the external source.
type Quote struct {
	Symbol        string
	Price         decimal.Decimal
	Open          decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	PreviousClose decimal.Decimal
}

// Fetcher pulls live quotes over HTTP. The endpoint and token come from
// configuration; the response shape is the usual quote-API one with
// current/open/high/low/previous-close fields.
type Fetcher struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewFetcher(client *http.Client, baseURL, token string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, baseURL: baseURL, token: token}
}

type quotePayload struct {
	Current       json.Number `json:"c"`
	Open          json.Number `json:"o"`
	High          json.Number `json:"h"`
	Low           json.Number `json:"l"`
	PreviousClose json.Number `json:"pc"`
}

func (f *Fetcher) FetchQuote(ctx context.Context, symbol string) (Quote, error) {
	u := fmt.Sprintf("%s/quote?symbol=%s&token=%s", f.baseURL, url.QueryEscape(symbol), url.QueryEscape(f.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote api returned status %d", resp.StatusCode)
	}
	var payload quotePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, errors.New("invalid quote payload")
	}
	q := Quote{Symbol: symbol}
	if q.Price, err = parseField(payload.Current); err != nil {
		return Quote{}, err
	}
	if q.Price.LessThanOrEqual(decimal.Zero) {
		return Quote{}, fmt.Errorf("no price for symbol %s", symbol)
	}
	if q.Open, err = parseField(payload.Open); err != nil {
		return Quote{}, err
	}
	if q.High, err = parseField(payload.High); err != nil {
		return Quote{}, err
	}
	if q.Low, err = parseField(payload.Low); err != nil {
		return Quote{}, err
	}
	if q.PreviousClose, err = parseField(payload.PreviousClose); err != nil {
		return Quote{}, err
	}
	return q, nil
}

func parseField(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}
