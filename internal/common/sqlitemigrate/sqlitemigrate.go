package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/KirkDiggler/tabletop/internal/common/clock"
	"github.com/KirkDiggler/tabletop/internal/common/logging"
	"go.uber.org/zap"
)

const migrationTable = "schema_migrations"

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Config holds configuration for a Migrator
type Config struct {
	DB *sql.DB

	// Migrations holds *.sql files under Root, applied in name order
	Migrations fs.FS
	Root       string

	// Clock stamps applied_at, defaults to the system clock
	Clock clock.Clock

	Logger *zap.Logger
}

// Migrator applies and reverts the "-- +migrate Up" / "-- +migrate Down"
// sections of a directory of SQL files. Applied names are recorded in the
// schema_migrations table.
type Migrator struct {
	db         *sql.DB
	migrations fs.FS
	root       string
	clock      clock.Clock
	logger     *zap.Logger
}

// New creates a Migrator
func New(cfg *Config) (*Migrator, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.DB == nil {
		return nil, errors.New("sql db cannot be nil")
	}

	if cfg.Migrations == nil {
		return nil, errors.New("migrations cannot be nil")
	}

	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		root = "."
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Migrator{
		db:         cfg.DB,
		migrations: cfg.Migrations,
		root:       root,
		clock:      clk,
		logger:     logging.OrNop(cfg.Logger),
	}, nil
}

// Up applies every migration not yet recorded and returns how many ran
func (m *Migrator) Up(ctx context.Context) (int, error) {
	files, err := m.files()
	if err != nil {
		return 0, err
	}

	applied, err := m.appliedSet(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, name := range files {
		if applied[name] {
			continue
		}

		content, err := fs.ReadFile(m.migrations, path.Join(m.root, name))
		if err != nil {
			return count, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		err = m.inTx(ctx, name, UpSection(string(content)), func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
				name, m.clock.Now().UnixMilli(),
			)
			return err
		})
		if err != nil {
			return count, err
		}

		m.logger.Info("migration applied", zap.String("migration", name))
		count++
	}

	return count, nil
}

// Down reverts the last steps applied migrations, newest first, and returns
// how many were reverted. A migration must still be present in Migrations to
// be reverted.
func (m *Migrator) Down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return 0, fmt.Errorf("steps must be positive, got %d", steps)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(applied) - 1; i >= 0 && count < steps; i-- {
		name := applied[i]

		content, err := fs.ReadFile(m.migrations, path.Join(m.root, name))
		if err != nil {
			return count, fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		err = m.inTx(ctx, name, DownSection(string(content)), func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM "+migrationTable+" WHERE name = ?", name)
			return err
		})
		if err != nil {
			return count, err
		}

		m.logger.Info("migration reverted", zap.String("migration", name))
		count++
	}

	return count, nil
}

// Applied lists the recorded migrations in name order
func (m *Migrator) Applied(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, "SELECT name FROM "+migrationTable+" ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

func (m *Migrator) appliedSet(ctx context.Context) (map[string]bool, error) {
	names, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}

	return set, nil
}

func (m *Migrator) files() ([]string, error) {
	entries, err := fs.ReadDir(m.migrations, m.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	return files, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	return nil
}

// inTx runs the section and the bookkeeping statement in one transaction.
// An empty section only does the bookkeeping.
func (m *Migrator) inTx(ctx context.Context, name, section string, record func(*sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", name, err)
	}

	if strings.TrimSpace(section) != "" {
		if _, err := tx.ExecContext(ctx, section); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to run migration %s: %w", name, err)
		}
	}

	if err := record(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", name, err)
	}

	return nil
}

// UpSection returns the statements between the Up and Down markers, or the
// whole file when it has no markers
func UpSection(content string) string {
	upIdx := strings.Index(content, upMarker)
	if upIdx == -1 {
		if downIdx := strings.Index(content, downMarker); downIdx != -1 {
			return content[:downIdx]
		}
		return content
	}

	rest := content[upIdx+len(upMarker):]
	if downIdx := strings.Index(rest, downMarker); downIdx != -1 {
		return rest[:downIdx]
	}

	return rest
}

// DownSection returns the statements after the Down marker, or nothing when
// the file has none
func DownSection(content string) string {
	downIdx := strings.Index(content, downMarker)
	if downIdx == -1 {
		return ""
	}

	rest := content[downIdx+len(downMarker):]
	if upIdx := strings.Index(rest, upMarker); upIdx != -1 {
		return rest[:upIdx]
	}

	return rest
}
