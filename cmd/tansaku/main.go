// Package main is the Tansaku host harness: a minimal reading view with the
// instant-search overlay wired in, the way a host application embeds it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/snipshelf/tansaku/internal/client"
	"github.com/snipshelf/tansaku/internal/config"
	"github.com/snipshelf/tansaku/internal/history"
	"github.com/snipshelf/tansaku/internal/models"
	"github.com/snipshelf/tansaku/internal/overlay"
	"github.com/snipshelf/tansaku/internal/saved"
	"github.com/snipshelf/tansaku/internal/storage"
	"github.com/snipshelf/tansaku/internal/watcher"
	"github.com/snipshelf/tansaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = ".config/tansaku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. A missing default config falls back to built-in defaults rather
// than erroring.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return config.Default(), "", nil
		}
		resolved := filepath.Join(home, path)
		if _, statErr := os.Stat(resolved); statErr != nil {
			return config.Default(), "", nil
		}
		cfg, err := config.Load(resolved)
		if err != nil {
			return nil, "", err
		}
		return cfg, resolved, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "config file path")
	debug := flag.Bool("debug", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tansaku version %s\n", version)
		return
	}

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewSessionLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	store := openHistoryStore(cfg, logger)
	defer store.Close()

	api := client.New(cfg.Collaborator.BaseURL, cfg.Collaborator.AuthToken, cfg.Collaborator.Timeout(), logger)
	ov := overlay.New(overlay.Deps{
		API:     api,
		Saved:   saved.New(api, logger),
		History: history.New(store, cfg.History.MaxEntries, logger),
		Logger:  logger,
		Settings: overlay.Settings{
			Debounce:  cfg.Search.Debounce(),
			PageLimit: cfg.Search.PageLimit,
		},
	})

	program := tea.NewProgram(newHost(ov), tea.WithAltScreen(), tea.WithMouseCellMotion())

	if resolvedConfigPath != "" {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watch := watcher.New(resolvedConfigPath, func() {
			reloaded, reloadErr := config.Load(resolvedConfigPath)
			if reloadErr != nil {
				logger.Warn("config reload failed", zap.Error(reloadErr))
				return
			}
			program.Send(overlay.SettingsMsg{
				Debounce:  reloaded.Search.Debounce(),
				PageLimit: reloaded.Search.PageLimit,
			})
		}, watchOpts...)
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		if err := watch.Start(watchCtx); err != nil {
			logger.Warn("config watcher unavailable", zap.Error(err))
		} else {
			defer watch.Stop()
		}
	}

	if _, err := program.Run(); err != nil {
		logger.Error("program failed", zap.Error(err))
		os.Exit(1)
	}
}

// openHistoryStore opens the configured recent-search backend, degrading to
// an in-memory store when the backend cannot be opened: history is a
// convenience and must never block startup.
func openHistoryStore(cfg *config.Config, logger *zap.Logger) storage.Store {
	var (
		store storage.Store
		err   error
	)
	switch cfg.History.Backend {
	case "sqlite":
		store, err = storage.NewSQLiteStore(cfg.History.Path)
	default:
		store, err = storage.NewFileStore(cfg.History.Path)
	}
	if err != nil {
		logger.Warn("history store unavailable, using in-memory",
			zap.String("backend", cfg.History.Backend),
			zap.String("path", cfg.History.Path),
			zap.Error(err))
		return storage.NewMemoryStore()
	}
	return store
}

var (
	hostTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).Bold(true)
	hostDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// host is the demo shell around the overlay: it renders the last committed
// snippet and hands every message to the overlay.
type host struct {
	overlay    *overlay.Overlay
	lastCommit *models.ResultItem
}

func newHost(ov *overlay.Overlay) *host {
	return &host{overlay: ov}
}

func (h *host) Init() tea.Cmd {
	return h.overlay.Init()
}

func (h *host) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return h, tea.Quit
		}
		if !h.overlay.IsOpen() && msg.String() == "q" {
			return h, tea.Quit
		}
	case overlay.CommitMsg:
		item := msg.Item
		h.lastCommit = &item
		return h, nil
	}

	var cmd tea.Cmd
	h.overlay, cmd = h.overlay.Update(msg)
	return h, cmd
}

func (h *host) View() string {
	if h.overlay.IsOpen() {
		return h.overlay.View()
	}

	var b strings.Builder
	b.WriteString(hostTitleStyle.Render("tansaku"))
	b.WriteString("\n\n")
	if h.lastCommit != nil {
		b.WriteString(hostDimStyle.Render(h.lastCommit.BookName))
		b.WriteString("\n")
		b.WriteString(h.lastCommit.TextSnippet)
		if h.lastCommit.Thoughts != "" {
			b.WriteString("\n\n")
			b.WriteString(hostDimStyle.Render(h.lastCommit.Thoughts))
		}
		b.WriteString("\n\n")
	} else {
		b.WriteString("No snippet open.\n\n")
	}
	b.WriteString(hostDimStyle.Render("/ or ctrl+k: search · q: quit"))
	return b.String()
}
