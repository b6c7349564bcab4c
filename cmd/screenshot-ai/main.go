// Package main runs the screenshot-ai assistant: a browser capture session,
// an analysis coordinator backed by Gemini or a local LM Studio model, and
// a terminal chat surface over a persistent conversation log.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Tranthanh98/screenshot-ai/pkg/analyzer"
	"github.com/Tranthanh98/screenshot-ai/pkg/analyzer/gemini"
	"github.com/Tranthanh98/screenshot-ai/pkg/analyzer/lmstudio"
	"github.com/Tranthanh98/screenshot-ai/pkg/bus"
	"github.com/Tranthanh98/screenshot-ai/pkg/capture"
	appconfig "github.com/Tranthanh98/screenshot-ai/pkg/config"
	"github.com/Tranthanh98/screenshot-ai/pkg/conversation"
	"github.com/Tranthanh98/screenshot-ai/pkg/coordinator"
	"github.com/Tranthanh98/screenshot-ai/pkg/logging"
	"github.com/Tranthanh98/screenshot-ai/pkg/settings"
	"github.com/Tranthanh98/screenshot-ai/pkg/surface/popup"
	"github.com/Tranthanh98/screenshot-ai/pkg/surface/sidepanel"
	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

const version = "0.1.0"

// Config holds the command line configuration.
type Config struct {
	ConfigPath  string
	StartURL    string
	APIKey      string
	Headless    bool
	NoBrowser   bool
	ShowStatus  bool
	ShowVersion bool
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("screenshot-ai v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, config); err != nil {
		cancel()
		log.Fatalf("Application error: %v", err)
	}
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.ConfigPath, "config", "", "Path to config file (default: ~/.screenshot-ai/config.yaml)")
	flag.StringVar(&config.StartURL, "url", "", "Page to open in the capture browser")
	flag.StringVar(&config.APIKey, "api-key", os.Getenv("GEMINI_API_KEY"), "Gemini API key (or set GEMINI_API_KEY env var)")
	flag.BoolVar(&config.Headless, "headless", false, "Run the capture browser headless")
	flag.BoolVar(&config.NoBrowser, "no-browser", false, "Skip the capture browser (text questions only)")
	flag.BoolVar(&config.ShowStatus, "status", false, "Print current status and exit")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "screenshot-ai - capture a page region and ask AI about it\n\n")
		fmt.Fprintf(os.Stderr, "Usage: screenshot-ai [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  GEMINI_API_KEY     Gemini API key\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  screenshot-ai -url https://example.com/quiz\n")
		fmt.Fprintf(os.Stderr, "  screenshot-ai -no-browser           # text questions only\n")
		fmt.Fprintf(os.Stderr, "  screenshot-ai -status\n")
	}

	flag.Parse()
	return config
}

func run(ctx context.Context, config *Config) error {
	configPath := config.ConfigPath
	if configPath == "" {
		var err error
		configPath, err = appconfig.DefaultPath()
		if err != nil {
			return err
		}
	}
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("main")
	if err != nil {
		log.Printf("Warning: file logging unavailable: %v", err)
	}
	defer logger.Close()

	settingsPath, err := settings.DefaultPath()
	if err != nil {
		return err
	}
	store, err := settings.NewStore(settingsPath)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}

	// The stored key wins over flag and environment so /key updates stick;
	// a flag or env key only seeds an empty store.
	if stored, err := store.APIKey(); (err != nil || stored == "") && config.APIKey != "" {
		if err := store.SetAPIKey(config.APIKey); err != nil {
			logger.Warnf("failed to persist API key: %v", err)
		}
	}

	if config.ShowStatus {
		return printStatus(ctx, store)
	}

	convPath, err := defaultConversationPath()
	if err != nil {
		return err
	}
	conv, err := conversation.Open(convPath)
	if err != nil {
		return fmt.Errorf("failed to open conversation log: %w", err)
	}
	defer conv.Close()

	b := bus.New()
	defer b.Close()

	var driver coordinator.CaptureDriver
	var session *capture.Session
	if !config.NoBrowser {
		startURL := config.StartURL
		if startURL == "" {
			startURL = cfg.Capture.StartURL
		}
		session, err = capture.NewSession(b, logger, capture.SessionOptions{
			Headless:       config.Headless || cfg.Capture.Headless,
			ViewportWidth:  cfg.Viewport.Width,
			ViewportHeight: cfg.Viewport.Height,
			AllowedURLs:    cfg.Capture.AllowedURLs,
			StartURL:       startURL,
		})
		if err != nil {
			return err
		}
		if err := session.Start(ctx); err != nil {
			return err
		}
		defer session.Close()
		driver = session
	}

	if _, err := coordinator.New(coordinator.Config{
		Bus:      b,
		Settings: store,
		Clients:  buildClients(cfg, store),
		Capture:  driver,
		Logger:   logger,
	}); err != nil {
		return err
	}

	logger.Infof("screenshot-ai v%s started, session %s", version, logger.SessionID())

	surface := sidepanel.New(b, conv, store, logger)
	return surface.Run(ctx)
}

func buildClients(cfg *appconfig.Config, store *settings.Store) map[types.Model]analyzer.Client {
	return map[types.Model]analyzer.Client{
		// The key comes from the settings store on every call, so a key
		// saved through /key takes effect without a restart.
		types.ModelGemini: gemini.New("",
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithKeySource(store.APIKey),
		),
		types.ModelQwenLocal: lmstudio.New(
			lmstudio.WithBaseURL(cfg.LMStudio.BaseURL),
			lmstudio.WithModel(cfg.LMStudio.Model),
		),
	}
}

// printStatus renders the popup view from persisted state. The running
// process owns the live screenshot, so outside it only durable state is
// visible.
func printStatus(ctx context.Context, store *settings.Store) error {
	analyzing, err := store.IsAnalyzing()
	if err != nil {
		return err
	}
	model, err := store.SelectedModel()
	if err != nil {
		return err
	}
	overlay, err := store.ShowAnswerOverlay()
	if err != nil {
		return err
	}

	fmt.Println(popup.Render(popup.Status{
		IsAnalyzing: analyzing,
		Model:       model,
		OverlayOn:   overlay,
	}))
	return nil
}

func defaultConversationPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".screenshot-ai", "conversation.db"), nil
}
