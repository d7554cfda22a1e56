package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/NicolasHaas/quizline/pkg/content"
	"github.com/NicolasHaas/quizline/pkg/contentstore"
	"github.com/NicolasHaas/quizline/pkg/logging"
	"github.com/NicolasHaas/quizline/pkg/version"
)

func main() {
	addr := pflag.StringP("listen", "l", ":5000", "HTTP bind address")
	dbPath := pflag.String("db", "questions.db", "SQLite database file path (empty keeps questions in memory)")
	seedFile := pflag.String("seed", "", "YAML question bank to import on startup")
	noDefaults := pflag.Bool("no-defaults", false, "Do not load the built-in questions into an empty database")
	logLevel := pflag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := pflag.String("log-format", "text", "Log format: text or json")
	showVersion := pflag.BoolP("version", "v", false, "Print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version.Banner("quizline-contentstore"))
		return
	}

	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	if err := run(*addr, *dbPath, *seedFile, !*noDefaults); err != nil {
		slog.Error("content store error", "err", err)
		os.Exit(1)
	}
}

func run(addr, dbPath, seedFile string, defaults bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo contentstore.Repository = contentstore.NewMemory()
	if dbPath != "" {
		st, err := contentstore.Open(dbPath)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		repo = st
	}

	if defaults {
		n, err := contentstore.SeedDefaults(ctx, repo)
		if err != nil {
			return err
		}
		if n > 0 {
			slog.Info("loaded built-in questions", "count", n)
		}
	}
	if seedFile != "" {
		qs, err := content.FileSource{Path: seedFile}.Questions(ctx)
		if err != nil {
			return err
		}
		n, err := repo.Import(ctx, qs)
		if err != nil {
			return err
		}
		slog.Info("imported questions", "file", seedFile, "added", n, "skipped", len(qs)-n)
	}

	return contentstore.NewAPI(repo).ListenAndServe(ctx, addr)
}
