package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"rag-tutor/internal/chromemdb"
	"rag-tutor/internal/chunker"
	"rag-tutor/internal/config"
	"rag-tutor/internal/corpus"
	"rag-tutor/internal/db"
	"rag-tutor/internal/embedding"
	"rag-tutor/internal/llmservice"
	"rag-tutor/internal/tutor"
)

const configFilePath = "./configs/config.yaml"

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

func loadConfig(path string) *config.Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Error loading .env file")
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	setupLogging(cfg.LogLevel)
	log.Debug().Interface("config", cfg).Msg("Loaded config")
	return cfg
}

// app holds the components a command needs. Only what was asked for is built.
type app struct {
	cfg     *config.Config
	store   *chromemdb.VectorDBManager
	corpus  *corpus.Manager
	coll    *chromemdb.Collection
	tutor   *tutor.Tutor
	bunDB   *bun.DB
	quizzes *db.QuizStore
	closers []io.Closer
}

type appOptions struct {
	initCorpus bool
	llm        bool
	history    bool
}

// newApp builds the clients that need credentials before touching the corpus,
// so a missing key fails before any document is embedded.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var llm llmservice.Completer
	if opts.llm {
		if llm, err = llmservice.New(ctx, cfg.LLM); err != nil {
			return nil, fmt.Errorf("failed to initialize completion client: %w", err)
		}
		if c, ok := llm.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
	}

	embed, closer, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.store, err = chromemdb.NewVectorDBManager(cfg.RAG.PersistDir, cfg.RAG.InMemory, cfg.RAG.Compress, cfg.RAG.EncryptionKey, embed)
	if err != nil {
		return nil, err
	}
	a.corpus = corpus.NewManager(a.store, chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap), cfg.RAG.CollectionName, cfg.RAG.CorpusDir)

	if opts.history && cfg.Database.Driver != "" {
		if a.bunDB, err = db.ConnectDB(ctx, cfg.Database); err != nil {
			return nil, err
		}
		a.quizzes = db.NewQuizStore(a.bunDB)
	}

	if opts.initCorpus {
		if a.coll, err = a.corpus.InitializeCorpus(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize corpus: %w", err)
		}
	}

	if llm != nil {
		var tutorOpts []tutor.Option
		if a.quizzes != nil {
			tutorOpts = append(tutorOpts, tutor.WithRecorder(a.quizzes))
		}
		a.tutor = tutor.New(a.coll, llm, cfg.Tutor, cfg.RAG.TopK, tutorOpts...)
	}
	return a, nil
}

func (a *app) Close() {
	if a.bunDB != nil {
		if err := a.bunDB.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing database")
		}
		a.bunDB = nil
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing client")
		}
	}
	a.closers = nil
}
