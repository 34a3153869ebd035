package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/abrezinsky/galajudge/internal/logger"
)

// keyMode switches a terminal on f to single-key input without echo and
// returns the function that restores it. Anything but a terminal is left
// line-buffered.
func keyMode(f *os.File, appLog *logger.SlogLogger) (restore func()) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return func() {}
	}
	saved, err := term.GetState(fd)
	if err != nil {
		appLog.Debug("Keyboard stays line-buffered", "error", err)
		return func() {}
	}
	if err := setKeyMode(fd); err != nil {
		appLog.Debug("Keyboard stays line-buffered", "error", err)
		return func() {}
	}
	return func() {
		if err := term.Restore(fd, saved); err != nil {
			appLog.Warn("Failed to restore terminal", "error", err)
		}
	}
}

// listenForKeyboard reads single-key commands until input ends or quit is
// requested. Whitespace is ignored so line-buffered input works too.
func listenForKeyboard(in io.Reader, appLog *logger.SlogLogger, quit func()) {
	r := bufio.NewReader(in)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		key := string(b)
		if strings.TrimSpace(key) == "" {
			continue
		}
		if !handleKey(key, appLog) {
			fmt.Printf("%sShutting down server...%s\n", yellow, reset)
			quit()
			return
		}
	}
}

// handleKey runs one command and reports whether to keep listening
func handleKey(key string, appLog *logger.SlogLogger) bool {
	switch strings.ToLower(key) {
	case "h":
		if appLog.IsHTTPLoggingEnabled() {
			appLog.DisableHTTPLogging()
			fmt.Printf("%sHTTP logging disabled%s\n", yellow, reset)
		} else {
			appLog.EnableHTTPLogging()
			fmt.Printf("%sHTTP logging enabled%s\n", green, reset)
		}
	case "l":
		cycleLogLevel(appLog)
	case "q", "\x03": // Ctrl+C arrives as a key when the terminal is raw
		return false
	case "?":
		printKeyboardHelp()
	}
	return true
}

// cycleLogLevel cycles through debug -> info -> warn -> error
func cycleLogLevel(appLog *logger.SlogLogger) {
	var next string
	switch appLog.GetLevel().String() {
	case "DEBUG":
		next = "info"
	case "INFO":
		next = "warn"
	case "WARN":
		next = "error"
	case "ERROR":
		next = "debug"
	default:
		next = "info"
	}
	appLog.SetLevel(logger.ParseLevel(next))
	fmt.Printf("%sLog level: %s%s%s\n", green, yellow, next, reset)
}

// printKeyboardHelp displays all available keyboard shortcuts
func printKeyboardHelp() {
	fmt.Printf("\n%s%s  Keyboard Shortcuts:%s\n", bold, green, reset)
	fmt.Printf("    %sh%s      - Toggle HTTP request logging\n", cyan, reset)
	fmt.Printf("    %sl%s      - Cycle log level (debug → info → warn → error)\n", cyan, reset)
	fmt.Printf("    %sq%s      - Quit server\n", cyan, reset)
	fmt.Printf("    %s?%s      - Show this help\n\n", cyan, reset)
}
