package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Gojibodev/keklauncher/internal/server"
	"github.com/Gojibodev/keklauncher/pkg/watcher"
)

var (
	serveListen  string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and websocket event stream",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(ctx, a.modpacks, a.workspaces, a.catalog)
		defer srv.Hub.Close()

		if !serveNoWatch {
			patterns, err := watcher.LoadIgnorePatterns(a.workspaces.Root)
			if err != nil {
				return err
			}
			w, err := watcher.NewWatcher(a.workspaces.Root, patterns, a.cfg.DebounceDelay())
			if err != nil {
				return err
			}
			go w.Start(ctx)
			go srv.WatchWorkspaces(ctx, w)
		}

		addr := a.cfg.Server.Listen
		if serveListen != "" {
			addr = serveListen
		}
		defer a.modpacks.CancelAll()
		return server.ListenAndServe(ctx, addr, srv.Handler())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveListen, "listen", "l", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not watch workspaces for changes")
	rootCmd.AddCommand(serveCmd)
}
