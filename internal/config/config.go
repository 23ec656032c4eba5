package config

import (
	"errors"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr        string
	DBDSN           string
	JWTIssuer       string
	JWTSecret       string
	JWTTTL          time.Duration
	InternalToken   string
	WebSocketOrigin string
	QuoteAPIURL     string
	QuoteAPIToken   string
	QuoteTimeout    time.Duration
	QuoteRefresh    time.Duration
	FeeRate         decimal.Decimal
	InitialBalance  decimal.Decimal
}

func Load() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, err
		}
		c.JWTTTL = d
	}
	c.InternalToken = os.Getenv("INTERNAL_API_TOKEN")
	if c.InternalToken == "" {
		missing = append(missing, "INTERNAL_API_TOKEN")
	}
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}
	// Quote source is optional: an empty URL leaves the catalog static.
	c.QuoteAPIURL = os.Getenv("QUOTE_API_URL")
	c.QuoteAPIToken = os.Getenv("QUOTE_API_TOKEN")
	if c.QuoteAPIURL != "" && c.QuoteAPIToken == "" {
		missing = append(missing, "QUOTE_API_TOKEN")
	}
	quoteTimeout := os.Getenv("QUOTE_TIMEOUT")
	if quoteTimeout == "" {
		c.QuoteTimeout = 3 * time.Second
	} else {
		d, err := time.ParseDuration(quoteTimeout)
		if err != nil {
			return c, err
		}
		c.QuoteTimeout = d
	}
	quoteRefresh := os.Getenv("QUOTE_REFRESH_INTERVAL")
	if quoteRefresh == "" {
		c.QuoteRefresh = time.Minute
	} else {
		d, err := time.ParseDuration(quoteRefresh)
		if err != nil {
			return c, err
		}
		c.QuoteRefresh = d
	}
	feeRate := os.Getenv("FEE_RATE")
	if feeRate == "" {
		feeRate = "0.03"
	}
	fee, err := decimal.NewFromString(feeRate)
	if err != nil || fee.IsNegative() {
		return c, errors.New("invalid FEE_RATE")
	}
	c.FeeRate = fee
	initial := os.Getenv("INITIAL_BALANCE")
	if initial == "" {
		initial = "100000"
	}
	bal, err := decimal.NewFromString(initial)
	if err != nil || bal.IsNegative() {
		return c, errors.New("invalid INITIAL_BALANCE")
	}
	c.InitialBalance = bal
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + join(missing))
	}
	return c, nil
}

func join(items []string) string {
	if len(items) == 0 {
		return ""
	}
	out := items[0]
	for i := 1; i < len(items); i++ {
		out += "," + items[i]
	}
	return out
}
