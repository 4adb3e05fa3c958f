package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	pgxuuid "github.com/jackc/pgx-gofrs-uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kartrace/kartrace-go/log"
)

type PoolConfigOption func(cfg *pgxpool.Config)

func WithTracer(tracer pgx.QueryTracer) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.Tracer = tracer
	}
}

func WithMaxConns(n int32) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = n
		}
	}
}

// InitWithURL creates a connection pool and checks it with a ping.
func InitWithURL(ctx context.Context, url string, opts ...PoolConfigOption) (
	*pgxpool.Pool, error,
) {
	dbConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	dbConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	for _, opt := range opts {
		opt(dbConfig)
	}
	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewOtlpTracer returns a tracer that emits spans for every query.
func NewOtlpTracer() pgx.QueryTracer {
	return otelpgx.NewTracer()
}

type queryLogTracer struct {
	l     *log.Logger
	level log.Level
}

type traceStartKey struct{}

// NewQueryLogTracer logs every statement with its duration on the given level.
func NewQueryLogTracer(l *log.Logger, level log.Level) pgx.QueryTracer {
	return &queryLogTracer{l: l, level: level}
}

func (t *queryLogTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	_ pgx.TraceQueryStartData,
) context.Context {
	return context.WithValue(ctx, traceStartKey{}, time.Now())
}

func (t *queryLogTracer) TraceQueryEnd(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	ce := t.l.Check(t.level, "query")
	if ce == nil {
		return
	}
	fields := []log.Field{log.String("cmd", data.CommandTag.String())}
	if start, ok := ctx.Value(traceStartKey{}).(time.Time); ok {
		fields = append(fields, log.Duration("duration", time.Since(start)))
	}
	if data.Err != nil {
		fields = append(fields, log.ErrorField(data.Err))
	}
	ce.Write(fields...)
}
