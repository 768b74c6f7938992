// Package report keeps a SQLite record of processing runs and the doses
// they produced.
package report

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"radwaste/internal/models"
	"radwaste/pkg/dataset"
)

// ErrUnknownRun is returned when a run id is not in the report.
var ErrUnknownRun = errors.New("report: unknown run")

// Run describes one processing run.
type Run struct {
	ID        string
	Mode      string
	InputDir  string
	CreatedAt time.Time
}

// DoseRow is one mesh row of a dose result.
type DoseRow struct {
	DecayTime float64
	Voxel     string
	MassGrams float64
	Dose1m    float64
	CDR       float64
}

// Store is a report database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the report database at path.
func Open(path string) (*Store, error) {
	dsn := path
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("error creating report directory: %w", err)
		}
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		dsn += "?_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening report database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating report tables: %w", err)
	}
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	createRunsTable := `
    CREATE TABLE IF NOT EXISTS runs (
        id TEXT PRIMARY KEY,
        mode TEXT NOT NULL,
        input_dir TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );
    `

	createDosesTable := `
    CREATE TABLE IF NOT EXISTS doses (
        run_id TEXT NOT NULL REFERENCES runs(id),
        seq INTEGER NOT NULL,
        decay_time REAL NOT NULL,
        voxel TEXT NOT NULL,
        mass_grams REAL NOT NULL,
        dose_1m REAL NOT NULL,
        cdr REAL NOT NULL,
        PRIMARY KEY (run_id, seq)
    );
    CREATE INDEX IF NOT EXISTS idx_doses_time ON doses(run_id, decay_time);
    `

	if _, err := db.Exec(createRunsTable); err != nil {
		return fmt.Errorf("runs table: %w", err)
	}
	if _, err := db.Exec(createDosesTable); err != nil {
		return fmt.Errorf("doses table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRun records a run and all of its dose rows in one transaction and
// returns the new run id.
func (s *Store) SaveRun(mode, inputDir string, rows []DoseRow) (string, error) {
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("error starting transaction: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO runs (id, mode, input_dir, created_at) VALUES (?, ?, ?, ?)",
		id, mode, inputDir, time.Now().UTC()); err != nil {
		tx.Rollback()
		return "", fmt.Errorf("error inserting run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO doses (run_id, seq, decay_time, voxel, mass_grams, dose_1m, cdr)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return "", fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.Exec(id, i, r.DecayTime, r.Voxel, r.MassGrams, r.Dose1m, r.CDR); err != nil {
			tx.Rollback()
			return "", fmt.Errorf("error inserting dose row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("error committing run: %w", err)
	}
	return id, nil
}

// Runs lists the recorded runs, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query("SELECT id, mode, input_dir, created_at FROM runs ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("error querying runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Mode, &r.InputDir, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Doses returns the dose rows of a run ordered by decay time, then by their
// position in the mesh table.
func (s *Store) Doses(runID string) ([]DoseRow, error) {
	var exists int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("error querying run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRun, runID)
	}

	rows, err := s.db.Query(`SELECT decay_time, voxel, mass_grams, dose_1m, cdr FROM doses
        WHERE run_id = ? ORDER BY decay_time, seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("error querying doses: %w", err)
	}
	defer rows.Close()

	var out []DoseRow
	for rows.Next() {
		var r DoseRow
		if err := rows.Scan(&r.DecayTime, &r.Voxel, &r.MassGrams, &r.Dose1m, &r.CDR); err != nil {
			return nil, fmt.Errorf("error scanning dose row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RowsFromMesh flattens a dose result into report rows.
func RowsFromMesh(decayTime float64, mesh *dataset.MeshActivity) []DoseRow {
	t := mesh.Table()
	mass, _ := t.Column(models.KeyMassGrams)
	dose1m, ok := t.Column(models.KeyDose1Meter)
	if !ok {
		dose1m = make([]float64, t.Len())
	}
	cdr, ok := t.Column(models.KeyCDR)
	if !ok {
		cdr = make([]float64, t.Len())
	}

	out := make([]DoseRow, t.Len())
	for i, v := range mesh.Voxels() {
		out[i] = DoseRow{
			DecayTime: decayTime,
			Voxel:     v.String(),
			MassGrams: mass[i],
			Dose1m:    dose1m[i],
			CDR:       cdr[i],
		}
	}
	return out
}
