package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abrezinsky/galajudge/internal/app"
	"github.com/abrezinsky/galajudge/internal/auth"
	"github.com/abrezinsky/galajudge/internal/config"
	"github.com/abrezinsky/galajudge/internal/logger"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	green  = "\033[32m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var (
	version = "dev"
)

func showBanner() {
	fmt.Printf("\n%s%s  GalaJudge %s%s\n", bold, cyan, version, reset)
	fmt.Printf("  %sJudge evaluations for award galas%s\n\n", cyan, reset)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	noKeyboard := flag.Bool("nokeyboard", false, "Disable keyboard shortcuts")
	showVersion := flag.Bool("version", false, "Show version and exit")
	cfg.BindFlags(flag.CommandLine)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `GalaJudge - judge evaluations for award galas

Usage:
  galajudge [options]

Options:
  -port int          HTTP server port (default 8080, GALAJUDGE_PORT)
  -db string         SQLite database path (default "galajudge.db", GALAJUDGE_DB)
  -adminpw str       Admin password, auto-generated if not set (GALAJUDGE_ADMIN_PASSWORD)
  -loglevel str      Log level: debug, info, warn, error (GALAJUDGE_LOG_LEVEL)
  -debounce dur      Quiet period before a note is saved (default 2s, GALAJUDGE_DEBOUNCE)
  -busyretry dur     Retry delay for queued saves (default 250ms, GALAJUDGE_BUSY_RETRY)
  -sessionttl dur    Session lifetime (default 24h, GALAJUDGE_SESSION_TTL)
  -seed              Load demo data into an empty database (GALAJUDGE_SEED)
  -nokeyboard        Disable keyboard shortcuts
  -version           Show version and exit

Flags take precedence over environment variables.

Examples:
  galajudge -seed                    # Try it out with demo judges
  galajudge -port 80 -db gala.db     # Production example

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("galajudge %s\n", version)
		os.Exit(0)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	showBanner()

	password := cfg.AdminPassword
	if password == "" {
		password = auth.GeneratePassword()
	}
	sessions := auth.New(password, cfg.SessionTTL)

	appLog := logger.NewWithLevel(logger.ParseLevel(cfg.LogLevel))

	a, err := app.New(appLog, cfg, sessions)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer a.Close()

	appLog.Info("Admin password", "password", password)
	appLog.Info("Judge client save timings", "debounce", cfg.Debounce, "busy_retry", cfg.BusyRetry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restore := func() {}
	if !*noKeyboard {
		restore = keyMode(os.Stdin, appLog)
		printKeyboardHelp()
		go listenForKeyboard(os.Stdin, appLog, stop)
	}

	err = a.Run(ctx, cfg.Addr())
	restore()
	if err != nil {
		log.Fatal(err)
	}
}
