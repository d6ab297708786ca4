package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"rag-tutor/internal/config"
	"rag-tutor/internal/helper"
)

// Quiz is an archived, validated quiz.
type Quiz struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`
	ID            string    `bun:"id,pk"`
	Topic         string    `bun:"topic,notnull"`
	Difficulty    string    `bun:"difficulty,notnull"`
	Language      string    `bun:"language,notnull"`
	Content       string    `bun:"content,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func NewDB(sqldb *sql.DB, driver string, debug bool) *bun.DB {
	var db *bun.DB
	if driver == "postgres" {
		db = bun.NewDB(sqldb, pgdialect.New())
	} else {
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the configured database and creates the schema.
func ConnectDB(ctx context.Context, cfg config.DatabaseConfig) (*bun.DB, error) {
	var sqldb *sql.DB
	switch cfg.Driver {
	case "postgres":
		opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
		if pw := cfg.DatabasePassword(); pw != "" {
			opts = append(opts, pgdriver.WithPassword(pw))
		}
		sqldb = sql.OpenDB(pgdriver.NewConnector(opts...))
	case "sqlite":
		var err error
		if sqldb, err = sql.Open("sqlite3", cfg.DSN); err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", config.ErrConfiguration, cfg.Driver)
	}

	db := NewDB(sqldb, cfg.Driver, cfg.Debug)
	if err := InitDB(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*Quiz)(nil)).IfNotExists().Exec(ctx)
	return err
}

// QuizStore archives generated quizzes.
type QuizStore struct {
	db *bun.DB
}

func NewQuizStore(db *bun.DB) *QuizStore {
	return &QuizStore{db: db}
}

func (s *QuizStore) RecordQuiz(ctx context.Context, topic, difficulty, language, content string) error {
	id, err := helper.GenerateUUID()
	if err != nil {
		return err
	}
	quiz := &Quiz{
		ID:         id,
		Topic:      topic,
		Difficulty: difficulty,
		Language:   language,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(quiz).Exec(ctx); err != nil {
		return fmt.Errorf("failed to store quiz: %w", err)
	}
	return nil
}

// ListQuizzes returns the most recent quizzes first. limit <= 0 means all.
func (s *QuizStore) ListQuizzes(ctx context.Context, limit int) ([]Quiz, error) {
	var quizzes []Quiz
	q := s.db.NewSelect().Model(&quizzes).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *QuizStore) GetQuiz(ctx context.Context, id string) (*Quiz, error) {
	quiz := new(Quiz)
	if err := s.db.NewSelect().Model(quiz).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to get quiz %s: %w", id, err)
	}
	return quiz, nil
}

// ClearQuizzes deletes the whole history and returns how many quizzes it held.
func (s *QuizStore) ClearQuizzes(ctx context.Context) (int64, error) {
	res, err := s.db.NewDelete().Model((*Quiz)(nil)).Where("1 = 1").Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear quizzes: %w", err)
	}
	return res.RowsAffected()
}
