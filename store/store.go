// Package store keeps evaluated scenes in SQLite database for reporting.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/LdDl/rss-go/rss"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Failure is a stored instance failure
type Failure struct {
	Instance   uuid.UUID
	Annotation uuid.UUID
	Message    string
}

// Store is SQLite-backed storage of scene results
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures Store
type Option func(*Store)

// WithLogger sets logger. Default is slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(store *Store) {
		if logger != nil {
			store.logger = logger
		}
	}
}

// Open opens (or creates) database file and brings its schema up to date
func Open(path string, options ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open database '%s'", path)
	}
	// SQLite allows single writer anyway
	db.SetMaxOpenConns(1)
	store := &Store{
		db:     db,
		logger: slog.Default(),
	}
	for _, option := range options {
		option(store)
	}
	if err := store.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (store *Store) migrateUp() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return errors.Wrap(err, "can't read embedded migrations")
	}
	driver, err := sqlite.WithInstance(store.db, &sqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "can't create sqlite driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "can't create migrate instance")
	}
	// Note: m is not closed, closing it would close the underlying database
	m.Log = &migrateLogger{logger: store.logger}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migration up failed")
	}
	return nil
}

// migrateLogger implements migrate.Logger interface
type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf("[migrate] "+format, v...))
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// Close closes database
func (store *Store) Close() error {
	return store.db.Close()
}

const insertRecord = `
INSERT INTO scene_records (
	scene, params, rank, instance, annotation, frame, timestamp_ns, reason, direction,
	score, long_score, lat_score, long_distance, lat_distance, min_long_distance, min_lat_distance,
	ego_long, ego_lat, target_long, target_lat
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertFailure = `
INSERT INTO scene_failures (scene, params, position, instance, annotation, message)
VALUES (?, ?, ?, ?, ?, ?)`

// SaveSceneResult replaces stored ranking and failures of the scene for the parameter set result has been evaluated with
func (store *Store) SaveSceneResult(ctx context.Context, result *rss.SceneResult) error {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "can't begin transaction")
	}
	defer tx.Rollback()

	scene := result.Scene.String()
	if _, err := tx.ExecContext(ctx, `DELETE FROM scene_records WHERE scene = ? AND params = ?`, scene, result.Params); err != nil {
		return errors.Wrapf(err, "can't delete records of scene %s", scene)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scene_failures WHERE scene = ? AND params = ?`, scene, result.Params); err != nil {
		return errors.Wrapf(err, "can't delete failures of scene %s", scene)
	}

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return errors.Wrap(err, "can't prepare record insert")
	}
	defer stmt.Close()
	for rank, record := range result.Ranked() {
		_, err := stmt.ExecContext(ctx,
			scene, result.Params, rank,
			record.Instance.String(), record.Annotation.String(), record.Frame.String(),
			record.Timestamp.UnixNano(), record.Reason.String(), record.Direction.String(),
			record.Score, record.LongScore, record.LatScore,
			record.LongDistance, record.LatDistance, record.MinLongDistance, record.MinLatDistance,
			record.EgoVelocity.Longitudinal, record.EgoVelocity.Lateral,
			record.TargetVelocity.Longitudinal, record.TargetVelocity.Lateral,
		)
		if err != nil {
			return errors.Wrapf(err, "can't insert record of instance %s", record.Instance)
		}
	}
	for i, failure := range result.Failures {
		_, err := tx.ExecContext(ctx, insertFailure,
			scene, result.Params, i,
			failure.Instance.String(), failure.Annotation.String(), failure.Err.Error(),
		)
		if err != nil {
			return errors.Wrapf(err, "can't insert failure of instance %s", failure.Instance)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "can't commit scene result")
	}
	store.logger.Info("scene result saved",
		slog.String("scene", scene),
		slog.String("params", result.Params),
		slog.Int("records", len(result.Order)),
		slog.Int("failures", len(result.Failures)),
	)
	return nil
}

// SceneRecords returns stored records of the scene least safe first
func (store *Store) SceneRecords(ctx context.Context, scene uuid.UUID, params string) ([]rss.ScoreRecord, error) {
	rows, err := store.db.QueryContext(ctx, `
		SELECT instance, annotation, frame, timestamp_ns, reason, direction,
			score, long_score, lat_score, long_distance, lat_distance, min_long_distance, min_lat_distance,
			ego_long, ego_lat, target_long, target_lat
		FROM scene_records
		WHERE scene = ? AND params = ?
		ORDER BY rank`, scene.String(), params)
	if err != nil {
		return nil, errors.Wrapf(err, "can't query records of scene %s", scene)
	}
	defer rows.Close()

	records := make([]rss.ScoreRecord, 0)
	for rows.Next() {
		var (
			instance, annotation, frame string
			timestampNs                 int64
			reason, direction           string
			record                      rss.ScoreRecord
		)
		err := rows.Scan(
			&instance, &annotation, &frame, &timestampNs, &reason, &direction,
			&record.Score, &record.LongScore, &record.LatScore,
			&record.LongDistance, &record.LatDistance, &record.MinLongDistance, &record.MinLatDistance,
			&record.EgoVelocity.Longitudinal, &record.EgoVelocity.Lateral,
			&record.TargetVelocity.Longitudinal, &record.TargetVelocity.Lateral,
		)
		if err != nil {
			return nil, errors.Wrap(err, "can't scan record")
		}
		if record.Instance, err = uuid.Parse(instance); err != nil {
			return nil, errors.Wrapf(err, "bad instance token '%s'", instance)
		}
		if record.Annotation, err = uuid.Parse(annotation); err != nil {
			return nil, errors.Wrapf(err, "bad annotation token '%s'", annotation)
		}
		if record.Frame, err = uuid.Parse(frame); err != nil {
			return nil, errors.Wrapf(err, "bad frame token '%s'", frame)
		}
		if record.Reason, err = rss.ParseReason(reason); err != nil {
			return nil, err
		}
		if record.Direction, err = rss.ParseDirection(direction); err != nil {
			return nil, err
		}
		record.Timestamp = time.Unix(0, timestampNs).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "can't iterate records")
	}
	return records, nil
}

// SceneFailures returns stored instance failures of the scene in order of first encounter
func (store *Store) SceneFailures(ctx context.Context, scene uuid.UUID, params string) ([]Failure, error) {
	rows, err := store.db.QueryContext(ctx, `
		SELECT instance, annotation, message
		FROM scene_failures
		WHERE scene = ? AND params = ?
		ORDER BY position`, scene.String(), params)
	if err != nil {
		return nil, errors.Wrapf(err, "can't query failures of scene %s", scene)
	}
	defer rows.Close()

	failures := make([]Failure, 0)
	for rows.Next() {
		var instance, annotation string
		failure := Failure{}
		if err := rows.Scan(&instance, &annotation, &failure.Message); err != nil {
			return nil, errors.Wrap(err, "can't scan failure")
		}
		if failure.Instance, err = uuid.Parse(instance); err != nil {
			return nil, errors.Wrapf(err, "bad instance token '%s'", instance)
		}
		if failure.Annotation, err = uuid.Parse(annotation); err != nil {
			return nil, errors.Wrapf(err, "bad annotation token '%s'", annotation)
		}
		failures = append(failures, failure)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "can't iterate failures")
	}
	return failures, nil
}
