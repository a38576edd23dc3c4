// Package cli wires configuration, logging and the pipeline into the
// docdigest command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgallion1/docdigest/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"log.level":                    "log-level",
	"log.format":                   "log-format",
	"embedding.provider":           "provider",
	"embedding_model_name":         "model",
	"embedding.endpoint":           "embedding-endpoint",
	"input_folder":                 "input",
	"input_patterns":               "pattern",
	"output_file":                  "output",
	"persona":                      "persona",
	"job_to_be_done":               "job",
	"top_k_sections":               "top-k-sections",
	"top_k_paragraphs_per_section": "top-k-paragraphs",
	"extract.workers":              "workers",
	"server.port":                  "port",
}

// app holds state shared by the commands of one invocation.
type app struct {
	v        *viper.Viper
	cfgFile  string
	envFile  string
	progress bool
	cfg      *config.Config
}

// NewRootCmd builds the command tree. The root command behaves like run.
func NewRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "docdigest",
		Short: "Rank document sections against a persona and job-to-be-done",
		Long: `docdigest reads a folder of documents, ranks every substantial text block
by semantic similarity to "<persona>: <job>", and writes the top sections with
their most substantial paragraphs as a JSON digest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags are bound per invoked command; absent flags are skipped.
			bindFlags(a.v, cmd.Flags(), flagKeys)
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./docdigest.yaml)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: json or text")
	pf.String("provider", "", "embedding provider: ollama, openai, tfidf, hash")
	pf.String("model", "", "embedding model name")
	pf.String("embedding-endpoint", "", "embedding service base URL")

	addRunFlags(a, root)
	root.AddCommand(newRunCmd(a), newServeCmd(a), newConfigCmd(a))
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func (a *app) loadConfig() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// bindFlags binds viper keys to flags so that only flags set on the
// command line override env and file values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := flags.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	level, err := lc.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
