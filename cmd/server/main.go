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
	"github.com/NicolasHaas/quizline/pkg/logging"
	"github.com/NicolasHaas/quizline/pkg/server"
	"github.com/NicolasHaas/quizline/pkg/version"
)

// bindFlags registers every config flag on fs, writing into cfg.
func bindFlags(fs *pflag.FlagSet, cfg *server.Config) {
	fs.StringVarP(&cfg.ListenAddr, "listen", "l", cfg.ListenAddr, "TCP bind address for game clients")
	fs.StringVar(&cfg.WSAddr, "ws", cfg.WSAddr, "WebSocket bind address (empty to disable)")
	fs.StringVar(&cfg.WSPath, "ws-path", cfg.WSPath, "WebSocket upgrade path")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "HTTP bind address for Prometheus /metrics (empty to disable)")
	fs.StringVar(&cfg.Passphrase, "passphrase", cfg.Passphrase, "Pre-shared secret for the line cipher")
	fs.StringVar(&cfg.CipherSuite, "cipher", cfg.CipherSuite, "Line cipher: aes-cbc or xchacha20poly1305")
	fs.IntVar(&cfg.MinPlayers, "min-players", cfg.MinPlayers, "Players needed before the owner can start")
	fs.IntVar(&cfg.MaxPlayers, "max-players", cfg.MaxPlayers, "Players per game")
	fs.IntVar(&cfg.AttemptCap, "attempts", cfg.AttemptCap, "Wrong answers allowed per question")
	fs.IntVar(&cfg.MinQuestions, "min-questions", cfg.MinQuestions, "Questions required before the server starts")
	fs.StringVar(&cfg.ContentURL, "content", cfg.ContentURL, "Content store base URL, or \""+server.BuiltinContent+"\" for the embedded bank")
	fs.StringVar(&cfg.QuestionsFile, "questions", cfg.QuestionsFile, "YAML question bank (overrides --content)")
	fs.DurationVar(&cfg.HandshakeTimeout, "handshake-timeout", cfg.HandshakeTimeout, "Time a new connection has to send its account info")
	fs.DurationVar(&cfg.WriteTimeout, "write-timeout", cfg.WriteTimeout, "Deadline for one line written to a TCP client")
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "Game loop tick")
	fs.IntVar(&cfg.MaxBadFrames, "max-bad-frames", cfg.MaxBadFrames, "Consecutive undecodable lines before disconnect")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: "+logging.LevelNames())
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
}

// loadConfig layers defaults, the optional YAML file and explicit flags.
func loadConfig(args []string) (server.Config, bool, error) {
	cfg := server.DefaultConfig()
	fs := pflag.NewFlagSet("quizline-server", pflag.ContinueOnError)
	bindFlags(fs, &cfg)
	configPath := fs.StringP("config", "c", "", "YAML config file")
	showVersion := fs.BoolP("version", "v", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return cfg, false, err
	}
	if *showVersion || *configPath == "" {
		return cfg, *showVersion, nil
	}

	fileCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		return cfg, false, err
	}
	overrides := pflag.NewFlagSet("overrides", pflag.ContinueOnError)
	bindFlags(overrides, &fileCfg)
	var setErr error
	fs.Visit(func(f *pflag.Flag) {
		if overrides.Lookup(f.Name) == nil || setErr != nil {
			return
		}
		setErr = overrides.Set(f.Name, f.Value.String())
	})
	return fileCfg, false, setErr
}

func main() {
	cfg, showVersion, err := loadConfig(os.Args[1:])
	if err == pflag.ErrHelp {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid arguments: %v\n", err)
		os.Exit(2)
	}
	if showVersion {
		fmt.Println(version.Banner("quizline-server"))
		return
	}

	if err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seed, err := content.Bootstrap(ctx, cfg.ContentSource(), content.BootstrapOptions{MinQuestions: cfg.MinQuestions})
	if err != nil {
		slog.Error("load questions", "err", err)
		os.Exit(1)
	}

	srv, err := server.New(cfg, server.Dependencies{Seed: seed})
	if err != nil {
		slog.Error("configure server", "err", err)
		os.Exit(1)
	}
	slog.Info("starting", "version", version.String())
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
