package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	appanalysis "github.com/bryanwahyu/aishield/internal/application/analysis"
	"github.com/bryanwahyu/aishield/internal/config"
	domain "github.com/bryanwahyu/aishield/internal/domain/analysis"
	"github.com/bryanwahyu/aishield/internal/domain/notification"
	"github.com/bryanwahyu/aishield/internal/infra/ai"
	"github.com/bryanwahyu/aishield/internal/presenter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "check":
		os.Exit(runCheckCommand(os.Args[2:]))
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("shield - check a message for scams and phishing")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  shield check [options] [message]   Analyze a message (reads stdin when no message is given)")
	fmt.Println("")
	fmt.Println("Run 'shield check --help' for options.")
}

func runCheckCommand(args []string) int {
	checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
	var (
		configPath = checkFlags.String("config", envOr("CONFIG_PATH", "config.yaml"), "Path to config.yaml")
		asJSON     = checkFlags.Bool("json", false, "Print the session view as JSON")
		plain      = checkFlags.Bool("plain", false, "Disable colors")
	)
	checkFlags.Parse(args)

	message := strings.Join(checkFlags.Args(), " ")
	if strings.TrimSpace(message) == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			return 1
		}
		message = string(data)
	}
	if strings.TrimSpace(message) == "" {
		fmt.Fprintln(os.Stderr, "Error: message is empty, nothing to analyze")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	client, err := ai.New(ai.Options{
		Provider:         cfg.Analyzer.Provider,
		Endpoint:         cfg.Analyzer.Endpoint,
		APIKey:           cfg.Analyzer.APIKey,
		Model:            cfg.Analyzer.Model,
		Timeout:          cfg.Analyzer.Timeout,
		MaxResponseBytes: cfg.Analyzer.MaxResponseBytes,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var (
		mu     sync.Mutex
		events []notification.Event
	)
	notifier := notification.NotifierFunc(func(_ context.Context, ev notification.Event) error {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		return nil
	})

	ctrl := appanalysis.NewController(client, appanalysis.Options{
		SessionID: "cli",
		Timeout:   cfg.Analyzer.Timeout,
		Notifier:  notifier,
	})
	defer ctrl.Close()

	fmt.Fprintln(os.Stderr, "🔍 Analyzing message...")
	state := runOnce(ctrl, message)

	r := newRenderer(os.Stdout, *plain)
	mu.Lock()
	for _, ev := range events {
		r.Notification(ev)
	}
	mu.Unlock()

	if *asJSON {
		view := struct {
			State        domain.State          `json:"state"`
			Presentation *presenter.Descriptor `json:"presentation,omitempty"`
		}{State: state}
		if state.Result != nil {
			d := presenter.Present(*state.Result)
			view.Presentation = &d
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			return 1
		}
	} else if state.Phase == domain.PhaseSucceeded {
		r.Descriptor(presenter.Present(*state.Result))
	} else if state.Error != nil {
		r.Error(state.Error)
	}

	if state.Phase != domain.PhaseSucceeded {
		return 2
	}
	return 0
}

// runOnce submits message and blocks until the cycle settles.
func runOnce(ctrl *appanalysis.Controller, message string) domain.State {
	states, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	if !ctrl.Submit(message) {
		return ctrl.State()
	}
	for s := range states {
		if s.Phase.Settled() {
			// notifikasi dikirim setelah state settle, tunggu goroutine selesai
			ctrl.Wait()
			return s
		}
	}
	return ctrl.State()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
