// Package cli wires the command line to the modpack, workspace and server
// packages.
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Gojibodev/keklauncher/internal/config"
	"github.com/Gojibodev/keklauncher/internal/logging"
	"github.com/Gojibodev/keklauncher/pkg/catalog"
	"github.com/Gojibodev/keklauncher/pkg/downloader"
	"github.com/Gojibodev/keklauncher/pkg/modpack"
	"github.com/Gojibodev/keklauncher/pkg/workspace"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "keklauncher",
	Short:         "Install, sync and author Minecraft modpacks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: <base>/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.GlobalLogger.Error(err.Error())
		os.Exit(1)
	}
}

type app struct {
	cfg        config.KekConfig
	downloader *downloader.Downloader
	catalog    *catalog.CurseForge
	modpacks   *modpack.Manager
	workspaces *workspace.Store
}

func loadConfig() (config.KekConfig, error) {
	path := configPath
	allowMissing := false
	if path == "" {
		path = filepath.Join(config.Default().Paths.Base, "config.yaml")
		if home := os.Getenv("KEK_HOME"); home != "" {
			path = filepath.Join(home, "config.yaml")
		}
		allowMissing = true
	}
	cfg, err := config.Load(path, allowMissing)
	if err != nil {
		return config.KekConfig{}, err
	}
	config.Config = cfg
	level := logging.ParseLevel(cfg.Logging.Level)
	if verbose {
		level = logging.LevelDebug
	}
	logging.GlobalLogger.SetLevel(level)
	return cfg, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dl := downloader.NewDownloader(downloader.OptionsFromConfig(cfg))
	cf := catalog.FromConfig(cfg)
	modpacks, err := modpack.NewManager(cfg, dl, cf)
	if err != nil {
		return nil, err
	}
	workspaces, err := workspace.NewStore(cfg, dl, cf)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, downloader: dl, catalog: cf, modpacks: modpacks, workspaces: workspaces}, nil
}
