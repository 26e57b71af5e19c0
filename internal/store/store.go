package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

type Store struct {
	DB *sql.DB
}

// New constructs the Store from the DATABASE_URL environment variable, or
// from the individual POSTGRES_* variables when it is unset.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

// APIKey is a per-user credential for an external service, stored one per
// (user, service) pair.
type APIKey struct {
	ID          string    `json:"id"`
	ServiceName string    `json:"service_name"`
	APIKey      string    `json:"api_key"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// API key operations
func (s *Store) ListAPIKeys(ctx context.Context, userID string) ([]APIKey, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, service_name, api_key, created_at, updated_at FROM api_keys WHERE user_id=$1 ORDER BY service_name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.ServiceName, &k.APIKey, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// UpsertAPIKey stores a service credential for the user, replacing any
// previous key for the same service.
func (s *Store) UpsertAPIKey(ctx context.Context, userID, serviceName, apiKey string) (APIKey, error) {
	var k APIKey
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO api_keys (user_id, service_name, api_key)
VALUES ($1,$2,$3)
ON CONFLICT (user_id, service_name)
DO UPDATE SET api_key = EXCLUDED.api_key, updated_at = now()
RETURNING id, service_name, api_key, created_at, updated_at`,
		userID, serviceName, apiKey).
		Scan(&k.ID, &k.ServiceName, &k.APIKey, &k.CreatedAt, &k.UpdatedAt)
	return k, err
}

// GetAPIKey fetches a single service credential for the user.
func (s *Store) GetAPIKey(ctx context.Context, userID, serviceName string) (string, error) {
	var key string
	err := s.DB.QueryRowContext(ctx, `SELECT api_key FROM api_keys WHERE user_id=$1 AND service_name=$2`, userID, serviceName).Scan(&key)
	return key, err
}
