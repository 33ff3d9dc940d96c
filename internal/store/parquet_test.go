package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/hetcount/internal/cohort"
)

func testSummary(t *testing.T) (cohort.Cohort, *cohort.Summary) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Cohort_A")
	c := cohort.New(dir)
	require.NoError(t, os.MkdirAll(c.OutputDir(), 0755))

	meta, err := cohort.ReadMetadata(strings.NewReader(
		"SampleID\tAncestry\tAge\tSite Name\n" +
			"S1\tEUR\t34\tBoston\n" +
			"S2\tAFR\t\tO'Hare\n" +
			"S3\tEAS\t61\tLyon\n"))
	require.NoError(t, err)

	return c, cohort.Merge(meta, cohort.HetCount{"S1": 12, "S2": 7}, c.Label())
}

func TestParquetWriter_RoundTrip(t *testing.T) {
	c, s := testSummary(t)

	path, err := NewParquetWriter().WriteSummary(context.Background(), c, s)
	require.NoError(t, err)
	assert.Equal(t, c.SummaryPath("parquet"), path)

	db := openInMemory(t).DB()
	rows, err := db.Query(fmt.Sprintf(
		`SELECT "SampleID", "Ancestry", "Age", "Site Name", "Cohort", "Het_Count"
		FROM read_parquet('%s') ORDER BY "SampleID"`, path))
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"SampleID", "Ancestry", "Age", "Site Name", "Cohort", "Het_Count"}, cols)

	type row struct {
		id, ancestry, site, cohort string
		age                        sql.NullFloat64
		het                        int64
	}
	var got []row
	for rows.Next() {
		var r row
		require.NoError(t, rows.Scan(&r.id, &r.ancestry, &r.age, &r.site, &r.cohort, &r.het))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())

	require.Len(t, got, 2)
	assert.Equal(t, "S1", got[0].id)
	assert.Equal(t, "EUR", got[0].ancestry)
	assert.True(t, got[0].age.Valid)
	assert.Equal(t, 34.0, got[0].age.Float64)
	assert.Equal(t, "Boston", got[0].site)
	assert.Equal(t, "A", got[0].cohort)
	assert.Equal(t, int64(12), got[0].het)

	assert.Equal(t, "S2", got[1].id)
	assert.False(t, got[1].age.Valid)
	assert.Equal(t, "O'Hare", got[1].site)
	assert.Equal(t, int64(7), got[1].het)
}

func TestParquetWriter_EmptySummary(t *testing.T) {
	c, s := testSummary(t)
	s.Rows = nil

	path, err := NewParquetWriter().WriteSummary(context.Background(), c, s)
	require.NoError(t, err)

	var n int
	db := openInMemory(t).DB()
	require.NoError(t, db.QueryRow(fmt.Sprintf("SELECT count(*) FROM read_parquet('%s')", path)).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestParquetWriter_Overwrites(t *testing.T) {
	c, s := testSummary(t)
	w := NewParquetWriter()

	_, err := w.WriteSummary(context.Background(), c, s)
	require.NoError(t, err)
	s.Rows = s.Rows[:1]
	path, err := w.WriteSummary(context.Background(), c, s)
	require.NoError(t, err)

	var n int
	db := openInMemory(t).DB()
	require.NoError(t, db.QueryRow(fmt.Sprintf("SELECT count(*) FROM read_parquet('%s')", path)).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestCreateSummarySQL(t *testing.T) {
	got := createSummarySQL([]string{"SampleID", "Age", `Odd"Name`, "Het_Count"})
	assert.Equal(t,
		`CREATE TABLE cohort_summary ("SampleID" VARCHAR, "Age" DOUBLE, "Odd""Name" VARCHAR, "Het_Count" BIGINT)`,
		got)
}
