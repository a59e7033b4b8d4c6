// Package postgres reads the external sales_records table:
//
//	sales_records (id bigserial, customer text, entry_date timestamptz,
//	               amount numeric, total_received numeric, remaining_amount numeric)
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/w-h-a/salesbot/records"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
)

var DRIVER string

func init() {
	driver, err := otelsql.Register(
		"postgres",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemPostgreSQL),
	)
	if err != nil {
		detail := "failed to register pg sales source with otel"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	DRIVER = driver
}

const selectColumns = `
	SELECT id, customer, entry_date, amount, total_received, remaining_amount
	FROM sales_records
`

// Newest entries first; id breaks ties between same-day entries so the
// ordering is deterministic.
const orderBy = ` ORDER BY entry_date DESC, id DESC`

type postgresSource struct {
	options records.Options
	conn    *sql.DB
}

func (s *postgresSource) Exact(ctx context.Context, customer string) ([]records.Record, error) {
	return s.lookup(ctx, selectColumns+` WHERE customer = $1`+orderBy, customer)
}

func (s *postgresSource) Fuzzy(ctx context.Context, customer string) ([]records.Record, error) {
	return s.lookup(ctx, selectColumns+` WHERE customer LIKE $1`+orderBy, "%"+customer+"%")
}

func (s *postgresSource) lookup(ctx context.Context, query string, arg string) ([]records.Record, error) {
	rows, err := s.conn.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("sales lookup: %w", err)
	}
	defer rows.Close()

	var recs []records.Record
	for rows.Next() {
		var rec records.Record
		var amount, received, remaining sql.NullFloat64
		if err := rows.Scan(&rec.Id, &rec.Customer, &rec.EntryDate, &amount, &received, &remaining); err != nil {
			return nil, fmt.Errorf("sales scan: %w", err)
		}
		if amount.Valid {
			rec.Amount = &amount.Float64
		}
		if received.Valid {
			rec.TotalReceived = &received.Float64
		}
		if remaining.Valid {
			rec.RemainingAmount = &remaining.Float64
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sales lookup: %w", err)
	}

	return recs, nil
}

func (s *postgresSource) Close() error {
	return s.conn.Close()
}

func NewSource(opts ...records.Option) records.Source {
	options := records.NewOptions(opts...)

	s := &postgresSource{
		options: options,
	}

	conn, err := sql.Open(DRIVER, options.Location)
	if err != nil {
		detail := "failed to connect with postgres sales source"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	if err := conn.Ping(); err != nil {
		detail := "failed to ping with postgres sales source"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	if err := otelsql.RecordStats(conn); err != nil {
		detail := "failed to initialize instrumentation for postgres sales source"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	s.conn = conn

	return s
}
