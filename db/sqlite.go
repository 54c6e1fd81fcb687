package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"burnoutwatch/models"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateUserID = errors.New("user id already registered")
	ErrUnknownUser     = errors.New("daily entry references unknown user")
	ErrNotInitialized  = errors.New("database not initialized")
)

// HistoryLimit is how many recent entries the history view shows.
const HistoryLimit = 30

// Store is the SQLite-backed persistence layer. Every method acquires its
// own connection from the pool and releases it before returning.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	database, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, err
	}
	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	if err := migrate(ctx, database, logger); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	logger.Info("database ready", zap.String("path", path))
	return &Store{db: database, logger: logger}, nil
}

func dsn(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	if s == nil || s.db == nil {
		return ErrNotInitialized
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// UserIDExists reports whether userID is already taken.
func (s *Store) UserIDExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE user_id = ?)`, userID).Scan(&exists)
	})
	return exists, err
}

// CreateUser inserts u and sets its ID. A taken user_id yields
// ErrDuplicateUserID.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
            INSERT INTO users (name, dob, mobile, profession, user_id, password)
            VALUES (?, ?, ?, ?, ?, ?)`,
			u.Name, u.DOB, u.Mobile, u.Profession, u.UserID, u.PasswordHash)
		if err != nil {
			if isConstraint(err, sqlite3.ErrConstraintUnique) {
				return ErrDuplicateUserID
			}
			return err
		}
		u.ID, err = res.LastInsertId()
		return err
	})
}

func (s *Store) GetUserByUserID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `
            SELECT id, name, dob, mobile, profession, user_id, password
            FROM users
            WHERE user_id = ?`, userID).
			Scan(&u.ID, &u.Name, &u.DOB, &u.Mobile, &u.Profession, &u.UserID, &u.PasswordHash)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertDailyEntry appends one entry and sets its ID.
func (s *Store) InsertDailyEntry(ctx context.Context, e *models.DailyEntry) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
            INSERT INTO daily_data (
                user_id, log_date, work_hours, screen_time, meetings, breaks,
                after_hours, sleep, task_rate, burnout_level
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.UserID, e.LogDate, e.WorkHours, e.ScreenTime, e.Meetings, e.Breaks,
			e.AfterHours, e.Sleep, e.TaskRate, e.BurnoutLevel)
		if err != nil {
			if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
				return ErrUnknownUser
			}
			return err
		}
		e.ID, err = res.LastInsertId()
		return err
	})
}

// RecentDailyEntries returns up to limit entries of userID, newest first.
// Entries sharing a date are ordered by insertion, newest first.
func (s *Store) RecentDailyEntries(ctx context.Context, userID string, limit int) ([]models.DailyEntry, error) {
	if limit <= 0 {
		limit = HistoryLimit
	}
	entries := make([]models.DailyEntry, 0)
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
            SELECT id, user_id, log_date, work_hours, screen_time, meetings, breaks,
                   after_hours, sleep, task_rate, burnout_level
            FROM daily_data
            WHERE user_id = ?
            ORDER BY log_date DESC, id DESC
            LIMIT ?`, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e models.DailyEntry
			if err := rows.Scan(&e.ID, &e.UserID, &e.LogDate, &e.WorkHours, &e.ScreenTime,
				&e.Meetings, &e.Breaks, &e.AfterHours, &e.Sleep, &e.TaskRate, &e.BurnoutLevel); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CountDailyEntries returns how many entries userID has logged.
func (s *Store) CountDailyEntries(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM daily_data WHERE user_id = ?`, userID).Scan(&n)
	})
	return n, err
}

func (s *Store) RecordTrainingRun(ctx context.Context, run *models.TrainingRun) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
            INSERT INTO training_log (model_path, accuracy, train_samples, test_samples, trained_at)
            VALUES (?, ?, ?, ?, ?)`,
			run.ModelPath, run.Accuracy, run.TrainSamples, run.TestSamples, run.TrainedAt.UTC())
		if err != nil {
			return err
		}
		run.ID, err = res.LastInsertId()
		return err
	})
}

// LatestTrainingRun returns the most recent training run, or ErrNotFound.
func (s *Store) LatestTrainingRun(ctx context.Context) (*models.TrainingRun, error) {
	var run models.TrainingRun
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `
            SELECT id, model_path, accuracy, train_samples, test_samples, trained_at
            FROM training_log
            ORDER BY trained_at DESC, id DESC
            LIMIT 1`).
			Scan(&run.ID, &run.ModelPath, &run.Accuracy, &run.TrainSamples, &run.TestSamples, &run.TrainedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == code
	}
	return false
}
