package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"evacumate/internal/config"
	"evacumate/internal/shared/logging"
)

type options struct {
	baseURL  string
	timeout  time.Duration
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	defaults := restDefaults()

	root := &cobra.Command{
		Use:           "evacuctl",
		Short:         "Operator tools for the Evacu-Mate backend",
		Long:          `List shelters and request vehicle dispatches against the backend the dashboard uses.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Logs go to stderr so command output stays pipeable.
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), logging.Config{Level: opts.logLevel}))
		},
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", defaults.BaseURL, "backend base URL (REST_BASE_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaults.Timeout, "per-request timeout")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(newSheltersCmd(opts), newDispatchCmd(opts))
	return root
}

// restDefaults reads REST_* from the environment and .env, falling back to
// the built-in defaults when the environment does not parse.
func restDefaults() config.RESTConfig {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return config.RESTConfig{BaseURL: "http://localhost:8000", Timeout: 10 * time.Second}
	}
	return cfg.REST
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
