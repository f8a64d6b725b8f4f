// Package cache keeps a local SQLite copy of fetched reports so listing
// and inspection keep working when the backend is unreachable.
package cache

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/plagiaguard/plagctl/internal/report"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding cached reports and the download ledger.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "plagctl.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Reports ---

// ReplacePage stores one server page of reports, replacing whatever was
// cached for that page before, and records the listing totals.
func (s *Store) ReplacePage(page int, perPage, total, pages int, reports []report.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning replace transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM reports WHERE page = ?", page); err != nil {
		return fmt.Errorf("clearing cached page %d: %w", page, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range reports {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding report %s: %w", r.ID, err)
		}
		var score sql.NullFloat64
		if v, ok := r.Score(); ok {
			score = sql.NullFloat64{Float64: v, Valid: true}
		}
		if _, err := tx.Exec(`
			INSERT INTO reports (id, name, report_type, detection_method, status, similarity_score, created_at, page, payload_json, cached_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				report_type = excluded.report_type,
				detection_method = excluded.detection_method,
				status = excluded.status,
				similarity_score = excluded.similarity_score,
				created_at = excluded.created_at,
				page = excluded.page,
				payload_json = excluded.payload_json,
				cached_at = excluded.cached_at`,
			r.ID, r.Name, string(r.Type), string(r.Method), string(r.Status),
			score, r.CreatedAt.UTC().Format(time.RFC3339), page, string(payload), now,
		); err != nil {
			return fmt.Errorf("caching report %s: %w", r.ID, err)
		}
	}

	meta := map[string]string{
		"page":       strconv.Itoa(page),
		"per_page":   strconv.Itoa(perPage),
		"total":      strconv.Itoa(total),
		"pages":      strconv.Itoa(pages),
		"fetched_at": now,
	}
	for k, v := range meta {
		if _, err := tx.Exec(`
			INSERT INTO list_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v,
		); err != nil {
			return fmt.Errorf("recording list meta %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// ListCached returns cached reports, newest first.
func (s *Store) ListCached(limit int) ([]report.Report, error) {
	rows, err := s.db.Query(`
		SELECT payload_json FROM reports ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []report.Report
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r report.Report
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decoding cached report: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetReport returns one cached report by id.
func (s *Store) GetReport(id string) (report.Report, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload_json FROM reports WHERE id = ?", id).Scan(&payload)
	if err == sql.ErrNoRows {
		return report.Report{}, ErrNotFound
	}
	if err != nil {
		return report.Report{}, err
	}
	var r report.Report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return report.Report{}, fmt.Errorf("decoding cached report %s: %w", id, err)
	}
	return r, nil
}

// DeleteReport removes a cached report. Deleting an id that is not cached
// is not an error; the server copy may never have been listed here.
func (s *Store) DeleteReport(id string) error {
	_, err := s.db.Exec("DELETE FROM reports WHERE id = ?", id)
	return err
}

// Meta returns the pagination totals recorded by the last ReplacePage.
func (s *Store) Meta() (PageMeta, error) {
	rows, err := s.db.Query("SELECT key, value FROM list_meta")
	if err != nil {
		return PageMeta{}, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return PageMeta{}, err
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return PageMeta{}, err
	}
	if len(values) == 0 {
		return PageMeta{}, ErrNotFound
	}

	var m PageMeta
	m.Page, _ = strconv.Atoi(values["page"])
	m.PerPage, _ = strconv.Atoi(values["per_page"])
	m.Total, _ = strconv.Atoi(values["total"])
	m.Pages, _ = strconv.Atoi(values["pages"])
	if raw := values["fetched_at"]; raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return PageMeta{}, fmt.Errorf("parsing fetched_at: %w", err)
		}
		m.FetchedAt = t
	}
	return m, nil
}

// --- Download ledger ---

func (s *Store) RecordDownload(d Download) error {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO downloads (id, report_id, filename, path, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.ReportID, d.Filename, d.Path, d.SizeBytes,
		createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) RecentDownloads(limit int) ([]Download, error) {
	rows, err := s.db.Query(`
		SELECT id, report_id, filename, path, size_bytes, created_at
		FROM downloads ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Download
	for rows.Next() {
		var d Download
		var createdAt string
		if err := rows.Scan(&d.ID, &d.ReportID, &d.Filename, &d.Path, &d.SizeBytes, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		d.CreatedAt = t
		results = append(results, d)
	}
	return results, rows.Err()
}
