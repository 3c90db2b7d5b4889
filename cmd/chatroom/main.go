package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yousefmohseen/chatroom/internal/app"
	"github.com/yousefmohseen/chatroom/internal/cli"
	"github.com/yousefmohseen/chatroom/internal/client"
	"github.com/yousefmohseen/chatroom/internal/config"
	applog "github.com/yousefmohseen/chatroom/internal/log"
	"github.com/yousefmohseen/chatroom/internal/session"
	"github.com/yousefmohseen/chatroom/internal/socket"
	"github.com/yousefmohseen/chatroom/internal/store/pebble"
)

var rootCmd = &cobra.Command{
	Use:           "chatroom",
	Short:         "Single-room real-time chat server and terminal client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat server",
	RunE:  runServe,
}

var joinCmd = &cobra.Command{
	Use:   "join [username]",
	Short: "Join the room from this terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJoin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored username",
	RunE:  runLogout,
}

var (
	flagConfig     string
	flagAddr       string
	flagDBPath     string
	flagLogLevel   string
	flagServerURL  string
	flagDataDir    string
	flagAckTimeout time.Duration
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "config file path (default ./config.yaml)")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&flagDataDir, "data-dir", "", "client data directory holding the stored username")

	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address")
	serveCmd.Flags().StringVar(&flagDBPath, "db-path", "", "SQLite database path")

	joinCmd.Flags().StringVar(&flagServerURL, "server-url", "", "chat server WebSocket URL")
	joinCmd.Flags().DurationVar(&flagAckTimeout, "ack-timeout", 0, "how long to wait for the server to acknowledge a request")

	rootCmd.AddCommand(serveCmd, joinCmd, logoutCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chatroom:", err)
		os.Exit(1)
	}
}

// loadConfig resolves defaults < file < env < flags.
func loadConfig() (config.Config, error) {
	boot := applog.New("warn", os.Stderr)
	cfg, _, err := config.Load(boot, flagConfig)
	if err != nil {
		return cfg, err
	}
	cfg.UpdateFrom(config.Config{
		Addr:         flagAddr,
		DatabasePath: flagDBPath,
		LogLevel:     flagLogLevel,
		Client: config.ClientConfig{
			ServerURL:  flagServerURL,
			DataDir:    flagDataDir,
			AckTimeout: flagAckTimeout,
		},
	})
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := applog.New(cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting chatroom server")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func runJoin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ids, err := pebble.Open(identityDir(cfg))
	if err != nil {
		return err
	}
	defer ids.Close()

	logger, logFile, err := applog.NewFile(cfg.LogLevel, filepath.Join(cfg.Client.DataDir, "client.log"))
	if err != nil {
		return err
	}
	defer logFile.Close()

	store := session.New(ids, logger)
	if len(args) == 1 {
		if err := store.SetIdentity(args[0]); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sock := socket.New(cfg.Client.ServerURL, logger)
	mgr := client.New(store, sock, cfg.Client.AckTimeout, logger)
	defer mgr.Close()

	return cli.New(mgr, store, cmd.OutOrStdout(), logger).Run(ctx, cmd.InOrStdin())
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ids, err := pebble.Open(identityDir(cfg))
	if err != nil {
		return err
	}
	defer ids.Close()

	if err := ids.Remove(); err != nil {
		return fmt.Errorf("forget username: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "stored username removed")
	return nil
}

func identityDir(cfg config.Config) string {
	return filepath.Join(cfg.Client.DataDir, "identity")
}
