package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rag-tutor/internal/helper"
	"rag-tutor/internal/prompt"
	"rag-tutor/internal/server"
	"rag-tutor/internal/tui"
)

func main() {
	setupLogging("info")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var configPath string
	rootCmd := &cobra.Command{
		Use:   "tutor",
		Short: "Retrieval-augmented tutoring assistant",
		Long:  "Ingests course documents, answers questions grounded in them and generates multiple-choice quizzes.",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", configFilePath, "Path to the yaml config file")

	rootCmd.AddCommand(
		createInitCommand(&configPath),
		createIngestCommand(&configPath),
		createAskCommand(&configPath),
		createQuizCommand(&configPath),
		createHistoryCommand(&configPath),
		createExportCommand(&configPath),
		createImportCommand(&configPath),
		createChatCommand(&configPath),
		createServeCommand(&configPath),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func createInitCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create or load the collection, ingesting the corpus directory on first run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			a, err := newApp(cmd.Context(), cfg, appOptions{initCorpus: true})
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Printf("Collection %s holds %d chunks\n", a.coll.Name(), a.coll.Count())
			return nil
		},
	}
}

func createIngestCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Add documents to the collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			a, err := newApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			coll, err := a.corpus.Collection()
			if err != nil {
				return err
			}
			for _, path := range args {
				n, err := a.corpus.IngestDocument(cmd.Context(), path, coll)
				if err != nil {
					log.Error().Err(err).Str("file", path).Msg("Error ingesting document")
					continue
				}
				fmt.Printf("%s: %d chunks\n", path, n)
			}
			fmt.Printf("Collection %s holds %d chunks\n", coll.Name(), coll.Count())
			return nil
		},
	}
}

func createAskCommand(configPath *string) *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the course material",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			a, err := newApp(cmd.Context(), cfg, appOptions{initCorpus: true, llm: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if language == "" {
				language = cfg.Tutor.DefaultLanguage
			}
			resp := a.tutor.Respond(cmd.Context(), strings.Join(args, " "), language)
			fmt.Println(resp.Content)
			if len(resp.Sources) > 0 {
				fmt.Printf("\nSources: %s\n", strings.Join(resp.Sources, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "lang", "l", "", "Answer language (fr, en)")
	return cmd
}

func createQuizCommand(configPath *string) *cobra.Command {
	var language, difficulty string
	cmd := &cobra.Command{
		Use:   "quiz <topic>",
		Short: "Generate a three-question multiple-choice quiz",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			a, err := newApp(cmd.Context(), cfg, appOptions{initCorpus: true, llm: true, history: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if language == "" {
				language = cfg.Tutor.DefaultLanguage
			}
			if difficulty == "" {
				difficulty = cfg.Tutor.DefaultDifficulty
			}
			out := a.tutor.GenerateQuiz(cmd.Context(), strings.Join(args, " "), nil, difficulty, language)
			var v any
			if err := json.Unmarshal([]byte(out), &v); err != nil {
				fmt.Println(out)
				return nil
			}
			helper.PrettyPrint(v)
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "lang", "l", "", "Quiz language (fr, en)")
	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", "", "beginner, intermediate or advanced")
	return cmd
}

func createHistoryCommand(configPath *string) *cobra.Command {
	var limit int
	var clearAll bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived quizzes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			if cfg.Database.Driver == "" {
				return fmt.Errorf("quiz history is disabled: set database.driver in %s", *configPath)
			}
			a, err := newApp(cmd.Context(), cfg, appOptions{history: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if clearAll {
				n, err := a.quizzes.ClearQuizzes(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %d quizzes\n", n)
				return nil
			}

			quizzes, err := a.quizzes.ListQuizzes(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, q := range quizzes {
				fmt.Printf("%s  %s  %-12s %s  %s\n", q.CreatedAt.Local().Format("2006-01-02 15:04"), q.ID, q.Difficulty, q.Language, q.Topic)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of quizzes to list (0 = all)")
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete the whole history")
	return cmd
}

func createExportCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file> [collection]...",
		Short: "Back up collections to a file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			a, err := newApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.Export(args[0], args[1:]...); err != nil {
				return err
			}
			fmt.Printf("Exported to %s\n", args[0])
			return nil
		},
	}
}

func createImportCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file> [collection]...",
		Short: "Restore collections from a backup file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			a, err := newApp(cmd.Context(), cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.store.Import(args[0], args[1:]...); err != nil {
				return err
			}
			coll, err := a.corpus.Collection()
			if err != nil {
				return err
			}
			fmt.Printf("Imported %s: collection %s holds %d chunks\n", args[0], coll.Name(), coll.Count())
			return nil
		},
	}
}

func createChatCommand(configPath *string) *cobra.Command {
	var language, difficulty string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive tutoring session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			a, err := newApp(cmd.Context(), cfg, appOptions{initCorpus: true, llm: true, history: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if language == "" {
				language = cfg.Tutor.DefaultLanguage
			}
			if difficulty == "" {
				difficulty = cfg.Tutor.DefaultDifficulty
			}
			lang, err := prompt.ParseLanguage(language)
			if err != nil {
				return err
			}
			level, err := prompt.ParseDifficulty(difficulty)
			if err != nil {
				return err
			}

			// Log lines would corrupt the alternate screen.
			zerolog.SetGlobalLevel(zerolog.Disabled)
			return tui.Run(cmd.Context(), a.tutor, lang, level)
		},
	}
	cmd.Flags().StringVarP(&language, "lang", "l", "", "Session language (fr, en)")
	cmd.Flags().StringVarP(&difficulty, "difficulty", "d", "", "Quiz difficulty")
	return cmd
}

func createServeCommand(configPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tutor over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(*configPath)
			a, err := newApp(cmd.Context(), cfg, appOptions{initCorpus: true, llm: true, history: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = cfg.Server.Addr
			}
			srv := server.New(a.tutor, a.corpus, cfg.RAG.CorpusDir, cfg.Tutor.DefaultLanguage)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (defaults to server.addr)")
	return cmd
}
