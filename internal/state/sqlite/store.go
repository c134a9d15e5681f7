package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anshukrra07/CampusCare-sub001/internal/alert"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

var _ alert.Store = (*Store)(nil)

// Store keeps alerts in a SQLite database at <dir>/campuscare.db.
type Store struct {
	db *sql.DB
}

// Open creates dir if needed, opens the database in WAL mode and applies
// migrations.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "campuscare.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(dbPath, 0o600)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	version, err := userVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS alerts (
		  id          TEXT PRIMARY KEY,
		  severity    TEXT NOT NULL,
		  reason      TEXT NOT NULL,
		  message     TEXT NOT NULL,
		  user_id     TEXT,
		  channel     TEXT NOT NULL,
		  request_id  TEXT,
		  meta_json   TEXT NOT NULL,
		  created_at  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_created
		ON alerts(created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_alerts_user
		ON alerts(user_id, created_at DESC)
		WHERE user_id IS NOT NULL;
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := setUserVersion(db, 1); err != nil {
			return err
		}
	}
	return nil
}

func verifyWALMode(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		return fmt.Errorf("verify journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", mode)
	}
	return nil
}

func userVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&v); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return v, nil
}

func setUserVersion(db *sql.DB, v int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", v)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, a *types.Alert) error {
	meta, err := json.Marshal(a.Meta)
	if err != nil {
		return fmt.Errorf("marshal alert meta: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, severity, reason, message, user_id, channel, request_id, meta_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(a.ID), string(a.Severity), a.Reason, a.Message,
		nullString(a.UserID), string(a.Channel), nullString(string(a.RequestID)),
		string(meta), a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Recent returns alerts newest first. Ties on created_at fall back to the
// ULID, which also sorts by time.
func (s *Store) Recent(ctx context.Context, limit int) ([]*types.Alert, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, severity, reason, message, user_id, channel, request_id, meta_json, created_at
		FROM alerts
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*types.Alert
	for rows.Next() {
		var (
			a                 types.Alert
			id, sev, ch, meta string
			userID, reqID     sql.NullString
			created           int64
		)
		if err := rows.Scan(&id, &sev, &a.Reason, &a.Message, &userID, &ch, &reqID, &meta, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &a.Meta); err != nil {
			return nil, fmt.Errorf("decode alert meta: %w", err)
		}
		a.ID = types.AlertID(id)
		a.Severity = types.RiskLevel(sev)
		a.Channel = types.Channel(ch)
		a.UserID = userID.String
		a.RequestID = types.RequestID(reqID.String)
		a.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
