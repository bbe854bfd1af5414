package repos

import (
	"context"
	"log/slog"
	"time"

	"github.com/DataDog/go-sqllexer"
	"github.com/jackc/pgx/v5"
)

// tracer logs failed and slow statements. SQL is normalized before logging so
// literal values never reach the logs.
type tracer struct{}

var normalizer = sqllexer.NewNormalizer(
	sqllexer.WithCollectCommands(true),
	sqllexer.WithCollectTables(true),
)

type ctxKey int

const (
	_ ctxKey = iota
	traceQueryCtxKey
	traceCopyFromCtxKey
	traceConnectCtxKey
)

const slowQueryThreshold = 200 * time.Millisecond

type traceQueryData struct {
	startTime time.Time
	sql       string
	tables    []string
}

func normalizeSQL(sql string) (string, []string) {
	normalized, meta, err := normalizer.Normalize(sql)
	if err != nil {
		slog.Warn("error normalizing SQL", "err", err)
		return sql, nil
	}
	return normalized, meta.Tables
}

func (tl *tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	sql, tables := normalizeSQL(data.SQL)
	return context.WithValue(ctx, traceQueryCtxKey, &traceQueryData{
		startTime: time.Now(),
		sql:       sql,
		tables:    tables,
	})
}

func (tl *tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	queryData, ok := ctx.Value(traceQueryCtxKey).(*traceQueryData)
	if !ok {
		return
	}
	interval := time.Since(queryData.startTime)

	if data.Err != nil {
		slog.Error("query failed", "sql", queryData.sql, "tables", queryData.tables, "err", data.Err, "elapsed", interval)
		return
	}

	if interval > slowQueryThreshold {
		slog.Warn("slow query", "sql", queryData.sql, "tables", queryData.tables,
			"command_tag", data.CommandTag.String(), "elapsed", interval)
	}
}

type traceCopyFromData struct {
	startTime   time.Time
	tableName   pgx.Identifier
	columnNames []string
}

func (tl *tracer) TraceCopyFromStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceCopyFromStartData) context.Context {
	return context.WithValue(ctx, traceCopyFromCtxKey, &traceCopyFromData{
		startTime:   time.Now(),
		tableName:   data.TableName,
		columnNames: data.ColumnNames,
	})
}

func (tl *tracer) TraceCopyFromEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceCopyFromEndData) {
	copyData, ok := ctx.Value(traceCopyFromCtxKey).(*traceCopyFromData)
	if !ok {
		return
	}
	interval := time.Since(copyData.startTime)
	table := copyData.tableName.Sanitize()

	if data.Err != nil {
		slog.Error("copy failed", "table", table, "columns", copyData.columnNames, "err", data.Err, "elapsed", interval)
		return
	}
	slog.Debug("copy", "table", table, "rows", data.CommandTag.RowsAffected(), "elapsed", interval)
}

type traceConnectData struct {
	startTime  time.Time
	connConfig *pgx.ConnConfig
}

func (tl *tracer) TraceConnectStart(ctx context.Context, data pgx.TraceConnectStartData) context.Context {
	return context.WithValue(ctx, traceConnectCtxKey, &traceConnectData{
		startTime:  time.Now(),
		connConfig: data.ConnConfig,
	})
}

func (tl *tracer) TraceConnectEnd(ctx context.Context, data pgx.TraceConnectEndData) {
	connectData, ok := ctx.Value(traceConnectCtxKey).(*traceConnectData)
	if !ok {
		return
	}

	if data.Err != nil {
		cfg := connectData.connConfig
		slog.Error("connect failed", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database,
			"err", data.Err, "elapsed", time.Since(connectData.startTime))
	}
}
