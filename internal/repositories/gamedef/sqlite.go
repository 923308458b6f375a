package gamedef

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/KirkDiggler/tabletop/internal/common/sqlitemigrate"
	"github.com/KirkDiggler/tabletop/internal/models"
	"github.com/KirkDiggler/tabletop/internal/repositories/gamedef/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var (
	// ErrGameNotFound is returned when a game definition is not found
	ErrGameNotFound = errors.New("game not found")

	// ErrGameNameTaken is returned when another game already uses the name
	ErrGameNameTaken = errors.New("game name already taken")
)

const selectColumns = `id, name, min_players, max_players, state_schema, created_at, updated_at`

// Config holds configuration for the SQLite game definition repository
type Config struct {
	// DB is an open handle using the modernc "sqlite" driver
	DB *sql.DB
}

// sqliteRepository implements the Repository interface using SQLite
type sqliteRepository struct {
	db *sql.DB
}

// Open opens the SQLite database at path with WAL journaling and a busy timeout
func Open(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	return db, nil
}

// NewMigrator returns a migrator over the embedded game definition migrations
func NewMigrator(db *sql.DB) (*sqlitemigrate.Migrator, error) {
	migrator, err := sqlitemigrate.New(&sqlitemigrate.Config{
		DB:         db,
		Migrations: migrations.FS,
		Root:       ".",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return migrator, nil
}

// NewSQLite creates a SQLite-backed game definition repository and applies
// the embedded migrations
func NewSQLite(cfg *Config) (*sqliteRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.DB == nil {
		return nil, errors.New("sqlite db cannot be nil")
	}

	migrator, err := NewMigrator(cfg.DB)
	if err != nil {
		return nil, err
	}

	if _, err := migrator.Up(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &sqliteRepository{
		db: cfg.DB,
	}, nil
}

// CreateGame inserts a game definition
func (r *sqliteRepository) CreateGame(ctx context.Context, input *CreateGameInput) error {
	if input == nil || input.Game == nil {
		return errors.New("input and game cannot be nil")
	}

	game := input.Game
	if game.ID == "" {
		return errors.New("game ID cannot be empty")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO game_definitions (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		game.ID,
		game.Name,
		game.MinPlayers,
		game.MaxPlayers,
		string(game.StateSchema),
		toMillis(game.CreatedAt),
		toMillis(game.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "game_definitions.name") {
			return ErrGameNameTaken
		}
		return fmt.Errorf("failed to insert game: %w", err)
	}

	return nil
}

// GetGame retrieves a game definition by ID
func (r *sqliteRepository) GetGame(ctx context.Context, input *GetGameInput) (*models.GameDefinition, error) {
	if input == nil || input.GameID == "" {
		return nil, errors.New("input and game ID cannot be empty")
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM game_definitions WHERE id = ?`,
		input.GameID,
	)

	return scanGame(row)
}

// GetGameByName retrieves a game definition by name
func (r *sqliteRepository) GetGameByName(ctx context.Context, input *GetGameByNameInput) (*models.GameDefinition, error) {
	if input == nil || strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("input and game name cannot be empty")
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM game_definitions WHERE name = ?`,
		strings.TrimSpace(input.Name),
	)

	return scanGame(row)
}

// ListGames returns all game definitions ordered by name
func (r *sqliteRepository) ListGames(ctx context.Context, input *ListGamesInput) (*ListGamesOutput, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM game_definitions ORDER BY name, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := []*models.GameDefinition{}
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}

	return &ListGamesOutput{
		Games: games,
	}, nil
}

// UpdateGame replaces name, bounds and schema of an existing definition
func (r *sqliteRepository) UpdateGame(ctx context.Context, input *UpdateGameInput) error {
	if input == nil || input.Game == nil {
		return errors.New("input and game cannot be nil")
	}

	game := input.Game
	res, err := r.db.ExecContext(ctx,
		`UPDATE game_definitions
		SET name = ?, min_players = ?, max_players = ?, state_schema = ?, updated_at = ?
		WHERE id = ?`,
		game.Name,
		game.MinPlayers,
		game.MaxPlayers,
		string(game.StateSchema),
		toMillis(game.UpdatedAt),
		game.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "game_definitions.name") {
			return ErrGameNameTaken
		}
		return fmt.Errorf("failed to update game: %w", err)
	}

	return requireOneRow(res)
}

// DeleteGame removes a game definition
func (r *sqliteRepository) DeleteGame(ctx context.Context, input *DeleteGameInput) error {
	if input == nil || input.GameID == "" {
		return errors.New("input and game ID cannot be empty")
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM game_definitions WHERE id = ?`, input.GameID)
	if err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return requireOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*models.GameDefinition, error) {
	var (
		game      models.GameDefinition
		schema    string
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(&game.ID, &game.Name, &game.MinPlayers, &game.MaxPlayers, &schema, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}

	if schema != "" {
		game.StateSchema = json.RawMessage(schema)
	}
	game.CreatedAt = fromMillis(createdAt)
	game.UpdatedAt = fromMillis(updatedAt)

	return &game, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrGameNotFound
	}

	return nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func isUniqueViolation(err error, column string) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return strings.Contains(err.Error(), column)
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") && strings.Contains(msg, column)
}
