// Package telemetry persists simulation runs and their per-cycle samples
// to SQLite.
package telemetry

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"magnav-sim/internal/agent"
	"magnav-sim/internal/config"
	"magnav-sim/internal/nav"
	"magnav-sim/internal/sim"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is wrapped by lookups of runs that were never stored.
var ErrNotFound = errors.New("not found")

// Run describes one stored simulation. Scenario holds the full scenario
// as JSON so a run can be replayed.
type Run struct {
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	DT        float64   `json:"dt"`
	Steps     int       `json:"steps"`
	Scenario  string    `json:"scenario_json"`
}

// Store is a migrated telemetry database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
	lg *slog.Logger
}

// Open opens (creating if needed) the database at path and migrates it to
// the latest schema.
func Open(path string, lg *slog.Logger) (*Store, error) {
	if lg == nil {
		lg = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases coherent.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db, lg: lg}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{lg: s.lg}
	// Closing m would close the shared *sql.DB.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Version reports the applied schema version.
func (s *Store) Version() (uint, bool, error) {
	var version uint
	var dirty bool
	err := s.db.QueryRow(`SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	return version, dirty, err
}

type migrateLogger struct{ lg *slog.Logger }

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.lg.Debug(fmt.Sprintf("[migrate] "+format, v...))
}

func (l *migrateLogger) Verbose() bool { return false }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// NewRun describes a run of sc under a fresh id without storing it.
func NewRun(sc *config.Scenario) (Run, error) {
	b, err := json.Marshal(sc)
	if err != nil {
		return Run{}, fmt.Errorf("encode scenario: %w", err)
	}
	return Run{
		RunID:     uuid.New().String(),
		Name:      sc.Name,
		CreatedAt: time.Now().UTC(),
		DT:        sc.Sim.DT,
		Steps:     sc.Steps(),
		Scenario:  string(b),
	}, nil
}

// CreateRun registers a new run for sc.
func (s *Store) CreateRun(sc *config.Scenario) (Run, error) {
	r, err := NewRun(sc)
	if err != nil {
		return Run{}, err
	}
	if err := insertRun(s.db, r); err != nil {
		return Run{}, err
	}
	return r, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertRun(db execer, r Run) error {
	_, err := db.Exec(`INSERT INTO runs (run_id, name, created_at, dt, steps, scenario_json) VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Name, r.CreatedAt.UnixNano(), r.DT, r.Steps, r.Scenario)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return nil
}

// InsertSamples writes all samples for runID in a single transaction.
func (s *Store) InsertSamples(runID string, samples []sim.Sample) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertSamples(tx, runID, samples); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit samples: %w", err)
	}
	s.lg.Debug("samples stored", slog.String("run_id", runID), slog.Int("count", len(samples)))
	return nil
}

func insertSamples(tx *sql.Tx, runID string, samples []sim.Sample) error {
	stmt, err := tx.Prepare(`
		INSERT INTO samples (
			run_id, step, t, x, y, z, psi, v,
			cmd_speed, cmd_heading, cmd_altitude,
			mode, gps, variance, waypoint_index, warning, field
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		_, err := stmt.Exec(runID, smp.Step, smp.T,
			smp.State.X, smp.State.Y, smp.State.Z, smp.State.Psi, smp.State.V,
			smp.Command.Speed, smp.Command.Heading, smp.Command.Altitude,
			smp.Mode.String(), smp.GPS.String(), smp.Variance, smp.WaypointIndex,
			nullString(smp.Warning), smp.Field)
		if err != nil {
			return fmt.Errorf("insert sample %d: %w", smp.Step, err)
		}
	}
	return nil
}

// Samples returns the samples of runID ordered by step.
func (s *Store) Samples(runID string) ([]sim.Sample, error) {
	rows, err := s.db.Query(`
		SELECT step, t, x, y, z, psi, v,
		       cmd_speed, cmd_heading, cmd_altitude,
		       mode, gps, variance, waypoint_index, warning, field
		FROM samples
		WHERE run_id = ?
		ORDER BY step`, runID)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var out []sim.Sample
	for rows.Next() {
		var (
			smp       sim.Sample
			st        nav.State
			cmd       nav.Command
			mode, gps string
			warning   sql.NullString
		)
		if err := rows.Scan(&smp.Step, &smp.T, &st.X, &st.Y, &st.Z, &st.Psi, &st.V,
			&cmd.Speed, &cmd.Heading, &cmd.Altitude,
			&mode, &gps, &smp.Variance, &smp.WaypointIndex, &warning, &smp.Field); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		var m agent.NavigationMode
		if err := m.UnmarshalText([]byte(mode)); err != nil {
			return nil, err
		}
		var g agent.SensorStatus
		if err := g.UnmarshalText([]byte(gps)); err != nil {
			return nil, err
		}
		smp.State, smp.Command, smp.Mode, smp.GPS = st, cmd, m, g
		if warning.Valid {
			smp.Warning = warning.String
		}
		out = append(out, smp)
	}
	return out, rows.Err()
}

// Run returns the stored run with id runID.
func (s *Store) Run(runID string) (Run, error) {
	var r Run
	var created int64
	err := s.db.QueryRow(`SELECT run_id, name, created_at, dt, steps, scenario_json FROM runs WHERE run_id = ?`, runID).
		Scan(&r.RunID, &r.Name, &created, &r.DT, &r.Steps, &r.Scenario)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT run_id, name, created_at, dt, steps, scenario_json FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var created int64
		if err := rows.Scan(&r.RunID, &r.Name, &created, &r.DT, &r.Steps, &r.Scenario); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// ModeCounts returns the number of stored cycles flown in each mode.
func (s *Store) ModeCounts(runID string) (map[agent.NavigationMode]int, error) {
	rows, err := s.db.Query(`SELECT mode, COUNT(*) FROM samples WHERE run_id = ? GROUP BY mode`, runID)
	if err != nil {
		return nil, fmt.Errorf("count modes: %w", err)
	}
	defer rows.Close()

	out := map[agent.NavigationMode]int{}
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("scan mode count: %w", err)
		}
		var m agent.NavigationMode
		if err := m.UnmarshalText([]byte(name)); err != nil {
			return nil, err
		}
		out[m] = n
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
