package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func tokenService(issuer string, secret []byte, ttl time.Duration) *Service {
	return NewService(nil, issuer, secret, ttl, decimal.Zero)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := tokenService("stocksim", []byte("test-secret"), time.Hour)
	token, err := svc.TokenFor("user-123")
	if err != nil {
		t.Fatalf("TokenFor err=%v", err)
	}
	subject, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken err=%v", err)
	}
	if subject != "user-123" {
		t.Fatalf("subject = %q, want user-123", subject)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	signer := tokenService("stocksim", []byte("secret-a"), time.Hour)
	verifier := tokenService("stocksim", []byte("secret-b"), time.Hour)
	token, err := signer.TokenFor("user-123")
	if err != nil {
		t.Fatalf("TokenFor err=%v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatalf("token signed with another secret must not verify")
	}
}

func TestParseTokenWrongIssuer(t *testing.T) {
	signer := tokenService("other-service", []byte("test-secret"), time.Hour)
	verifier := tokenService("stocksim", []byte("test-secret"), time.Hour)
	token, err := signer.TokenFor("user-123")
	if err != nil {
		t.Fatalf("TokenFor err=%v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatalf("token with wrong issuer must not verify")
	}
}

func TestParseTokenExpired(t *testing.T) {
	svc := tokenService("stocksim", []byte("test-secret"), -time.Minute)
	token, err := svc.TokenFor("user-123")
	if err != nil {
		t.Fatalf("TokenFor err=%v", err)
	}
	if _, err := svc.ParseToken(token); err == nil {
		t.Fatalf("expired token must not verify")
	}
}

func TestParseTokenGarbage(t *testing.T) {
	svc := tokenService("stocksim", []byte("test-secret"), time.Hour)
	if _, err := svc.ParseToken("not-a-token"); err == nil {
		t.Fatalf("garbage token must not verify")
	}
}

func TestUserScanErrMapsMissingRow(t *testing.T) {
	err := userScanErr(pgx.ErrNoRows)
	if err == nil || err.Error() != "user not found" {
		t.Fatalf("err = %v, want clean user not found", err)
	}
	boom := errors.New("connection reset")
	if got := userScanErr(boom); got != boom {
		t.Fatalf("unrelated error rewritten to %v", got)
	}
}
