package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fieldtone/fieldtone/internal/config"
	"github.com/fieldtone/fieldtone/internal/roundware"
	"github.com/fieldtone/fieldtone/internal/session"
	"github.com/fieldtone/fieldtone/internal/store"
	"github.com/fieldtone/fieldtone/internal/tui"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("fieldtone %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := config.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = config.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting fieldtone", "version", Version)

	// Check if configured
	if !cfg.IsConfigured() {
		return runSetupFlow(cfg)
	}

	// Open the local store
	st, err := store.New(config.DataPath())
	if err != nil {
		return fmt.Errorf("failed to open data store: %w", err)
	}
	defer st.Close()

	// Create the streaming client and the session controller
	client := roundware.NewClient(cfg.Server.URL, config.DataPath(), st, logger)
	ctrl := session.New(client, st, session.Config{
		ProjectID:        cfg.Server.ProjectID,
		ResetTagDefaults: cfg.Preferences.ResetTagDefaults,
		ContentPage:      cfg.UI.ContentPage,
		TagType:          cfg.UI.TagType,
		Preferences:      cfg.StreamPreferences(),
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	// Run the TUI
	model := tui.NewModel(ctrl, cfg.UI.TagType, "exhibit")
	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	ctrl.Teardown()
	logger.Info("shutting down")
	return nil
}

// runSetupFlow handles the initial setup when not configured
func runSetupFlow(cfg *config.Config) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("no configuration found; set server.url and server.project_id in the config file")
	}

	fmt.Println()
	fmt.Println("Welcome to Fieldtone!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("Enter the platform API URL (e.g., https://audio.example.org/api/1): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		input = strings.TrimSpace(input)
		if input == "" {
			fmt.Println("URL cannot be empty. Please try again.")
			continue
		}
		cfg.Server.URL = input
		break
	}

	for {
		fmt.Print("Enter the project id: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		id, err := strconv.Atoi(strings.TrimSpace(input))
		if err != nil || id <= 0 {
			fmt.Println("Project id must be a positive number. Please try again.")
			continue
		}
		cfg.Server.ProjectID = id
		break
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run fieldtone again to start the application.")

	return nil
}
