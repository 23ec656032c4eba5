package identity

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	pool           *pgxpool.Pool
	issuer         string
	secret         []byte
	ttl            time.Duration
	initialBalance decimal.Decimal
}

type User struct {
	ID       string
	Username string
	Active   bool
}

func NewService(pool *pgxpool.Pool, issuer string, secret []byte, ttl time.Duration, initialBalance decimal.Decimal) *Service {
	return &Service{pool: pool, issuer: issuer, secret: secret, ttl: ttl, initialBalance: initialBalance}
}

// Register creates the user, its credentials and the starting cash
// balance in one transaction.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", errors.New("username and password required")
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, "select exists(select 1 from users where username = $1)", username).Scan(&exists); err != nil {
		return "", err
	}
	if exists {
		return "", errors.New("user already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)
	var userID string
	err = tx.QueryRow(ctx, "insert into users (username, is_active) values ($1, true) returning id", username).Scan(&userID)
	if err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, "insert into user_credentials (user_id, password_hash) values ($1, $2)", userID, string(hash)); err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, "insert into user_balances (user_id, balance) values ($1, $2)", userID, s.initialBalance); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return userID, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	var userID string
	var hash string
	var active bool
	err := s.pool.QueryRow(ctx, "select u.id, u.is_active, c.password_hash from users u join user_credentials c on c.user_id = u.id where u.username = $1", username).Scan(&userID, &active, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", errors.New("invalid credentials")
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}
	if !active {
		return "", errors.New("user is inactive")
	}
	return s.TokenFor(userID)
}

func (s *Service) TokenFor(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *Service) ParseToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Issuer != s.issuer {
		return "", errors.New("invalid issuer")
	}
	if claims.Subject == "" {
		return "", errors.New("invalid subject")
	}
	return claims.Subject, nil
}

func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, "select id, username, is_active from users where id = $1", userID).Scan(&u.ID, &u.Username, &u.Active)
	if err != nil {
		return User{}, userScanErr(err)
	}
	return u, nil
}

// userScanErr keeps driver wording out of API responses: a missing row
// becomes a plain not-found error.
func userScanErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.New("user not found")
	}
	return err
}
