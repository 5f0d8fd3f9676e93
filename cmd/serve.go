package cmd

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/markd/internal/config"
	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/server"
	"github.com/conneroisu/markd/internal/version"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve [path]",
	Short: "Serve markdown files with live preview",
	Long: `Start a local preview server for a markdown file or directory.

With a directory, the server renders a browsable listing and watches
the whole tree. With a single file, only that file is served and
watched. Connected browsers reload automatically when sources change.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "Port to bind (1024-65535)")
	serveCmd.Flags().String("host", config.DefaultHost, "Host interface to bind")
	serveCmd.Flags().StringP("theme", "t", config.DefaultTheme, "UI theme (light, dark, catppuccin-mocha, catppuccin-latte)")
	serveCmd.Flags().Bool("no-open", false, "Do not open the browser automatically")
	serveCmd.Flags().Bool("no-reload", false, "Disable file watching and live reload")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("render.theme", serveCmd.Flags().Lookup("theme"))
	_ = viper.BindPFlag("server.no-open", serveCmd.Flags().Lookup("no-open"))
	_ = viper.BindPFlag("watcher.no-reload", serveCmd.Flags().Lookup("no-reload"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return exitErr(exitConfig, err)
	}

	cfg.ServePath = "."
	if len(args) > 0 {
		cfg.ServePath = args[0]
	}

	log := newLogger()
	srv, err := server.New(cfg, log)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return exitErr(exitMissingPath, fmt.Errorf("path not found: %s", cfg.ServePath))
		}
		return err
	}

	printBanner(cfg, srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start(ctx)
	}()

	select {
	case <-sigChan:
		fmt.Println("\nServer stopped")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn(ctx, err, "shutdown incomplete")
		}
		<-serveErr
		return nil
	case err := <-serveErr:
		if err == nil {
			return nil
		}
		if goerrors.Is(err, syscall.EADDRINUSE) {
			return exitErr(exitPortInUse, fmt.Errorf("port %d is already in use", cfg.Server.Port))
		}
		return err
	}
}

func printBanner(cfg *config.Config, srv *server.PreviewServer) {
	fmt.Printf("markd %s - Markdown Preview Server\n\n", version.GetShortVersion())
	target := srv.Root()
	if name := srv.SingleFile(); name != "" {
		target = filepath.Join(srv.Root(), name)
	}
	fmt.Printf("  Serving:  %s\n", target)
	fmt.Printf("  URL:      %s\n", cfg.Server.URL())
	fmt.Printf("  Theme:    %s\n", cfg.Render.Theme)
	reload := "enabled"
	if !cfg.Watcher.Enabled {
		reload = "disabled"
	}
	fmt.Printf("  Reload:   %s\n", reload)
	fmt.Println("\nPress Ctrl+C to stop")
}
