package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gh-nvat/vdiffchk/src/pkg/models"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var logger = log.WithField("package", "history")

const HISTORY_DB_FILENAME = "history.db"

var ErrBuildNotFound = errors.New("build not found in history")

// Record is one build's entry in the project history
type Record struct {
	BuildID         string
	RecordedAt      time.Time
	Result          models.Result
	MissingApproved int
	Summary         models.ScreenSummary
	Screens         *models.ScreenList
}

// Store keeps the build history of a project in sqlite
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS builds (
  id               INTEGER PRIMARY KEY,
  build_id         TEXT NOT NULL UNIQUE,
  recorded_at      INTEGER NOT NULL, -- unix nanoseconds
  result           TEXT NOT NULL CHECK (result IN ('success','unstable','failure')),
  missing_approved INTEGER NOT NULL DEFAULT 0,
  summary          TEXT NOT NULL,
  snapshot         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_builds_recorded ON builds(recorded_at);
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenForProject opens the history database beside a project's vDiff folder
func OpenForProject(projectRoot string) (*Store, error) {
	return Open(filepath.Join(projectRoot, HISTORY_DB_FILENAME))
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a build, or replaces it when the build id was recorded before
func (s *Store) Record(ctx context.Context, r Record) error {
	if r.Screens == nil {
		r.Screens = models.NewScreenList()
	}
	summary, err := json.Marshal(r.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	snapshot, err := json.Marshal(r.Screens)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO builds (build_id, recorded_at, result, missing_approved, summary, snapshot)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(build_id) DO UPDATE SET
  recorded_at = excluded.recorded_at,
  result = excluded.result,
  missing_approved = excluded.missing_approved,
  summary = excluded.summary,
  snapshot = excluded.snapshot`,
		r.BuildID, r.RecordedAt.UnixNano(), r.Result.String(), r.MissingApproved, string(summary), string(snapshot),
	)
	if err != nil {
		return fmt.Errorf("record build %s: %w", r.BuildID, err)
	}
	logger.WithField("build", r.BuildID).WithField("result", r.Result.String()).Debug("Recorded build")
	return nil
}

// List returns the latest limit builds, oldest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `
SELECT build_id, recorded_at, result, missing_approved, summary, snapshot FROM (
  SELECT * FROM builds ORDER BY recorded_at DESC, id DESC LIMIT ?
) ORDER BY recorded_at ASC, id ASC`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	return records, nil
}

func (s *Store) Get(ctx context.Context, buildID string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT build_id, recorded_at, result, missing_approved, summary, snapshot FROM builds WHERE build_id = ?`, buildID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%s: %w", buildID, ErrBuildNotFound)
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		r                 Record
		recordedAt        int64
		result            string
		summary, snapshot string
	)
	if err := row.Scan(&r.BuildID, &recordedAt, &result, &r.MissingApproved, &summary, &snapshot); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan build: %w", err)
	}
	r.RecordedAt = time.Unix(0, recordedAt).UTC()
	if err := r.Result.UnmarshalText([]byte(result)); err != nil {
		return Record{}, fmt.Errorf("build %s: %w", r.BuildID, err)
	}
	if err := json.Unmarshal([]byte(summary), &r.Summary); err != nil {
		return Record{}, fmt.Errorf("build %s: decode summary: %w", r.BuildID, err)
	}
	r.Screens = models.NewScreenList()
	if err := json.Unmarshal([]byte(snapshot), r.Screens); err != nil {
		return Record{}, fmt.Errorf("build %s: decode snapshot: %w", r.BuildID, err)
	}
	return r, nil
}
