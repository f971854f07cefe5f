// Package gateway is the single data-access handle of the application. It wraps
// the hosted Postgres store with a small table/filter/order/range query API and
// owns session issuing, refreshing and persistence.
package gateway

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Querier is the subset of *sql.DB (or *sql.Tx) used by the gateway.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Options struct {
	// APIKey подписывает access-токены.
	APIKey string

	PersistSession     bool
	AutoRefreshToken   bool
	DetectSessionInURL bool
	StorageKey         string
	SecureCookies      bool

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	// RefreshMargin: токен обновляется заранее, если до истечения осталось меньше.
	RefreshMargin time.Duration
}

func DefaultOptions(apiKey string) Options {
	return Options{
		APIKey:             apiKey,
		PersistSession:     true,
		AutoRefreshToken:   true,
		DetectSessionInURL: true,
		StorageKey:         "sb-auth",
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    30 * 24 * time.Hour,
		RefreshMargin:      60 * time.Second,
	}
}

type Client struct {
	db     Querier
	opts   Options
	logger *slog.Logger

	Auth *Auth
}

// New создаёт клиент один раз на процесс; дальше он передаётся зависимостям явно.
func New(db Querier, opts Options, logger *slog.Logger) *Client {
	if opts.StorageKey == "" {
		opts.StorageKey = "sb-auth"
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{db: db, opts: opts, logger: logger}
	c.Auth = newAuth(&postgresAuthStore{client: c}, opts, logger)
	return c
}

func (c *Client) Options() Options {
	return c.opts
}

func (c *Client) From(table string) *Query {
	return newQuery(c.db, table)
}

func (c *Client) Insert(table string, values Values) *Mutation {
	return newMutation(c.db, mutationInsert, table, values)
}

func (c *Client) Update(table string, values Values) *Mutation {
	return newMutation(c.db, mutationUpdate, table, values)
}

func (c *Client) Delete(table string) *Mutation {
	return newMutation(c.db, mutationDelete, table, nil)
}
