// Package store persists clustering runs in SQLite: the parameters and
// statistics of every run plus the per-point cluster labels.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/triplclust/internal/cloud"
	"github.com/banshee-data/triplclust/internal/monitoring"
	"github.com/banshee-data/triplclust/internal/timeutil"
	"github.com/banshee-data/triplclust/internal/triplclust"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// noiseClusterID is stored for points in no cluster.
const noiseClusterID = -1

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Store wraps the database handle.
type Store struct {
	*sql.DB
	clock timeutil.Clock
}

// Run is one stored clustering run.
type Run struct {
	ID        string
	CreatedAt time.Time
	Source    string
	Params    triplclust.Params
	Stats     triplclust.RunStats
}

// Open opens (or creates) the database at path and applies pending
// migrations. ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps per-connection pragmas in force and lets
	// ":memory:" databases survive between statements.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	s := &Store{DB: db, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// SetClock replaces the clock used to timestamp runs.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// MigrateUp applies all pending migrations. Being up to date is not an error.
func (s *Store) MigrateUp() error {
	m, err := s.newMigrate()
	if err != nil {
		return err
	}
	// m is not closed: that would close the shared connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// MigrateVersion returns the current schema version and dirty state, or
// 0, false when no migration has been applied.
func (s *Store) MigrateVersion() (version uint, dirty bool, err error) {
	m, err := s.newMigrate()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.DB, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrateLogger{}
	return m, nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// SaveRun stores a run and its labels in one transaction and returns the
// new run id.
func (s *Store) SaveRun(ctx context.Context, source string, params triplclust.Params, res *triplclust.Result) (string, error) {
	if res == nil || res.Labels == nil || res.Labels.Cloud == nil {
		return "", fmt.Errorf("save run: empty result")
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode params: %w", err)
	}
	statsJSON, err := json.Marshal(res.Stats)
	if err != nil {
		return "", fmt.Errorf("encode stats: %w", err)
	}

	id := uuid.NewString()
	labels := res.Labels

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at, source, is_2d, ordered, params_json, stats_json, points, clusters, noise, threshold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.clock.Now().UnixNano(), source, labels.Cloud.Is2D(), labels.Cloud.Ordered(),
		string(paramsJSON), string(statsJSON),
		labels.Len(), labels.NumClusters(), labels.NoiseCount(), res.Stats.Threshold,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO point_labels (run_id, point_index, seq, source_index, x, y, z, cluster_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare label insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < labels.Len(); i++ {
		p := labels.Cloud.At(i)
		ids := labels.Clusters(i)
		if len(ids) == 0 {
			if _, err := stmt.ExecContext(ctx, id, i, 0, p.Index, p.X, p.Y, p.Z, noiseClusterID); err != nil {
				return "", fmt.Errorf("insert label for point %d: %w", i, err)
			}
			continue
		}
		for seq, cid := range ids {
			if _, err := stmt.ExecContext(ctx, id, i, seq, p.Index, p.X, p.Y, p.Z, int(cid)); err != nil {
				return "", fmt.Errorf("insert label for point %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

const runColumns = `run_id, created_at, source, params_json, stats_json`

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		r                     Run
		createdAt             int64
		paramsJSON, statsJSON string
	)
	if err := row.Scan(&r.ID, &createdAt, &r.Source, &paramsJSON, &statsJSON); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, createdAt)
	if err := json.Unmarshal([]byte(paramsJSON), &r.Params); err != nil {
		return nil, fmt.Errorf("decode params of run %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &r.Stats); err != nil {
		return nil, fmt.Errorf("decode stats of run %s: %w", r.ID, err)
	}
	return &r, nil
}

// LoadLabels rebuilds the labelled cloud of a run.
func (s *Store) LoadLabels(ctx context.Context, id string) (*cloud.ClusterPointCloud, error) {
	var is2D, ordered bool
	var points int
	err := s.QueryRowContext(ctx, `SELECT is_2d, ordered, points FROM runs WHERE run_id = ?`, id).Scan(&is2D, &ordered, &points)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}

	rows, err := s.QueryContext(ctx, `
		SELECT point_index, seq, source_index, x, y, z, cluster_id
		FROM point_labels WHERE run_id = ? ORDER BY point_index, seq`, id)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	defer rows.Close()

	pc := cloud.New(is2D, ordered)
	pc.Reserve(points)
	var memberships [][]cloud.ClusterID
	for rows.Next() {
		var (
			idx, seq, srcIdx, cid int
			x, y, z               float64
		)
		if err := rows.Scan(&idx, &seq, &srcIdx, &x, &y, &z, &cid); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		if seq == 0 {
			if idx != pc.Len() {
				return nil, fmt.Errorf("run %s: missing labels for point %d", id, pc.Len())
			}
			pc.Append(cloud.Point{X: x, Y: y, Z: z, Index: srcIdx})
			memberships = append(memberships, nil)
		}
		if cid != noiseClusterID {
			memberships[idx] = append(memberships[idx], cloud.ClusterID(cid))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	labels := cloud.NewClusterPointCloud(pc)
	for i, ids := range memberships {
		for _, cid := range ids {
			labels.Assign(i, cid)
		}
	}
	return labels, nil
}

// DeleteRun removes a run and its labels.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
