package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// LookupCount returns the cached count for the file at path under the
// given policy key. A changed or missing file is a miss.
func (s *Store) LookupCount(path, key string) (int, bool, error) {
	fp, err := StatFile(path)
	if err != nil {
		return 0, false, nil
	}

	var size, mod, count int64
	err = s.db.QueryRow(`SELECT size, mod_unix_nano, het_count
		FROM sample_counts WHERE path=? AND policy=?`, path, key).
		Scan(&size, &mod, &count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query sample count: %w", err)
	}

	if !fp.Matches(size, mod) {
		return 0, false, nil
	}
	return int(count), true, nil
}

// WriteCount records the count for the file at path under the given
// policy key, replacing any previous entry.
func (s *Store) WriteCount(path, key string, count int) error {
	fp, err := StatFile(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if _, err := s.db.Exec(`INSERT OR REPLACE INTO sample_counts
		(path, size, mod_unix_nano, policy, het_count) VALUES (?, ?, ?, ?, ?)`,
		fp.Path, fp.Size, fp.ModTime.UnixNano(), key, int64(count)); err != nil {
		return fmt.Errorf("write sample count: %w", err)
	}
	return nil
}

// CountEntries returns the number of cached counts.
func (s *Store) CountEntries() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT count(*) FROM sample_counts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count sample counts: %w", err)
	}
	return n, nil
}

// ClearCounts removes all cached counts.
func (s *Store) ClearCounts() error {
	_, err := s.db.Exec("DELETE FROM sample_counts")
	return err
}
