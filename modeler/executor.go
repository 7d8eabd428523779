package modeler

import (
	"context"
	"database/sql"
	"time"

	"github.com/ZenLiuCN/bitfields/breaker"
	"github.com/ZenLiuCN/bitfields/conf"
	mysqlerr "github.com/ZenLiuCN/bitfields/error_db/mysql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrNotFound         Error = "record not found"
	ErrStale            Error = "record changed or removed concurrently"
	ErrUnsupportedValue Error = "unsupported column value"
)

// Executor runs named statements, args bind to :name placeholders.
type Executor interface {
	QueryMaps(ctx context.Context, q string, args map[string]any) ([]map[string]any, error)
	Execute(ctx context.Context, q string, args map[string]any) (sql.Result, error)
	Close(ctx context.Context) error
}

type SqlxExecutor struct {
	*sqlx.DB
}

// Open a database from
//
//	database{ driver: mysql, dsn: "user:pass@tcp(127.0.0.1:3306)/app", maxOpen: 10, maxIdle: 2, lifetime: 5m }
func Open(c conf.Config) (SqlxExecutor, error) {
	db, err := sqlx.Open(c.GetString("driver", "mysql"), c.RequiredString("dsn"))
	if err != nil {
		return SqlxExecutor{}, err
	}
	c.ExistsInt32("maxOpen", func(n int32) { db.SetMaxOpenConns(int(n)) })
	c.ExistsInt32("maxIdle", func(n int32) { db.SetMaxIdleConns(int(n)) })
	c.ExistsDuration("lifetime", func(d time.Duration) { db.SetConnMaxLifetime(d) })
	return SqlxExecutor{db}, nil
}

func (s SqlxExecutor) QueryMaps(ctx context.Context, q string, args map[string]any) (out []map[string]any, err error) {
	var r *sqlx.Rows
	if len(args) == 0 {
		r, err = s.QueryxContext(ctx, q)
	} else {
		r, err = s.NamedQueryContext(ctx, q, args)
	}
	if err != nil {
		conf.Internal().ErrorContext(ctx, "query", "error", err, "query", q, "parameter", args)
		return nil, mysqlerr.Translate(err)
	}
	defer func() { _ = r.Close() }()
	for r.Next() {
		m := make(map[string]any)
		if err = r.MapScan(m); err != nil {
			return nil, mysqlerr.Translate(err)
		}
		out = append(out, m)
	}
	return out, mysqlerr.Translate(r.Err())
}

func (s SqlxExecutor) Execute(ctx context.Context, q string, args map[string]any) (r sql.Result, err error) {
	if len(args) == 0 {
		r, err = s.ExecContext(ctx, q)
	} else {
		r, err = s.NamedExecContext(ctx, q, args)
	}
	if err != nil {
		conf.Internal().ErrorContext(ctx, "execute", "error", err, "query", q, "parameter", args)
		return nil, mysqlerr.Translate(err)
	}
	return r, nil
}

func (s SqlxExecutor) Close(ctx context.Context) error {
	return s.DB.Close()
}

// GuardedExecutor refuses round trips while its breaker is open.
type GuardedExecutor struct {
	Executor
	Breaker *breaker.Breaker
}

func (g GuardedExecutor) QueryMaps(ctx context.Context, q string, args map[string]any) (out []map[string]any, err error) {
	err = g.Breaker.Guard(func() (err error) {
		out, err = g.Executor.QueryMaps(ctx, q, args)
		return
	})
	return
}

func (g GuardedExecutor) Execute(ctx context.Context, q string, args map[string]any) (r sql.Result, err error) {
	err = g.Breaker.Guard(func() (err error) {
		r, err = g.Executor.Execute(ctx, q, args)
		return
	})
	return
}
