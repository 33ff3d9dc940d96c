package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/hetcount/internal/cohort"
)

const summaryTable = "cohort_summary"

// ParquetWriter writes cohort summaries as parquet files through an
// in-memory DuckDB database.
type ParquetWriter struct{}

// NewParquetWriter creates a parquet summary writer.
func NewParquetWriter() *ParquetWriter {
	return &ParquetWriter{}
}

// WriteSummary writes s to the cohort's parquet summary path. Age is
// stored as DOUBLE (NULL when missing), Het_Count as BIGINT and every
// other column as VARCHAR.
func (pw *ParquetWriter) WriteSummary(ctx context.Context, c cohort.Cohort, s *cohort.Summary) (string, error) {
	path := c.SummaryPath("parquet")

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return "", fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, createSummarySQL(s.Columns)); err != nil {
		return "", fmt.Errorf("create summary table: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", summaryTable)
		return err
	}); err != nil {
		return "", fmt.Errorf("create appender: %w", err)
	}

	for i := range s.Rows {
		if err := appender.AppendRow(summaryValues(s, i)...); err != nil {
			appender.Close()
			return "", fmt.Errorf("append summary row: %w", err)
		}
	}
	if err := appender.Close(); err != nil {
		return "", fmt.Errorf("flush summary rows: %w", err)
	}

	copySQL := fmt.Sprintf("COPY %s TO '%s' (FORMAT PARQUET)",
		summaryTable, strings.ReplaceAll(path, "'", "''"))
	if _, err := conn.ExecContext(ctx, copySQL); err != nil {
		return "", fmt.Errorf("copy to parquet: %w", err)
	}
	return path, nil
}

func createSummarySQL(columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = quoteIdent(c) + " " + columnType(c)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", summaryTable, strings.Join(defs, ", "))
}

func columnType(name string) string {
	switch name {
	case cohort.ColAge:
		return "DOUBLE"
	case cohort.ColHetCount:
		return "BIGINT"
	default:
		return "VARCHAR"
	}
}

func summaryValues(s *cohort.Summary, i int) []driver.Value {
	r := s.Rows[i]
	values := make([]driver.Value, len(s.Columns))
	for j, c := range s.Columns {
		switch c {
		case cohort.ColAge:
			if r.Sample.HasAge {
				values[j] = r.Sample.Age
			}
		case cohort.ColHetCount:
			values[j] = int64(r.HetCount)
		default:
			values[j] = s.Value(i, c)
		}
	}
	return values
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
