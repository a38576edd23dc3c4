package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docdigest/internal/config"
	"github.com/dgallion1/docdigest/internal/embed"
	"github.com/dgallion1/docdigest/internal/pipeline"
	"github.com/spf13/cobra"
)

// noDocumentsMessage is printed when discovery finds nothing to digest.
const noDocumentsMessage = "No PDF files found in the input folder."

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Digest the input folder and write the JSON artifact (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd)
		},
	}
	addRunFlags(a, cmd)
	return cmd
}

// addRunFlags registers run options on cmd. They exist on both the root and
// the run subcommand, so each command binds its own flag set.
func addRunFlags(a *app, cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("input", "i", "", "input folder")
	f.StringSlice("pattern", nil, "file name globs to include (default *.pdf)")
	f.StringP("output", "o", "", "output file")
	f.String("persona", "", "persona")
	f.String("job", "", "job to be done")
	f.Int("top-k-sections", 0, "number of sections to keep")
	f.Int("top-k-paragraphs", 0, "paragraphs kept per section")
	f.Int("workers", 0, "concurrent document extractions")
	f.BoolVar(&a.progress, "progress", false, "show progress bars on stderr")
}

func (a *app) run(cmd *cobra.Command) error {
	cfg := *a.cfg
	log := newLogger(cmd.ErrOrStderr(), cfg.Log)

	provider, err := buildProvider(cfg, log, nil)
	if err != nil {
		return err
	}
	defer provider.Close()

	deps := pipeline.Deps{Provider: provider, Log: log}
	if a.progress {
		deps.Progress = newProgressReporter(cmd.ErrOrStderr())
	}

	res, err := pipeline.New(cfg, deps).Run(cmd.Context())
	if errors.Is(err, pipeline.ErrNoInputDocuments) {
		fmt.Fprintln(cmd.OutOrStdout(), noDocumentsMessage)
		return nil
	}
	if err != nil {
		log.Error("run failed", "error", err)
		return err
	}

	for _, f := range res.Failed {
		log.Warn("document skipped", "run_id", res.RunID, "document", f.Document, "error", f.Err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[✓] Output written to %s\n", res.OutputFile)
	return nil
}

// buildProvider creates the process-wide embedding provider. stats may be nil.
func buildProvider(cfg config.Config, log *slog.Logger, stats *embed.Stats) (embed.Provider, error) {
	start := time.Now()
	p, err := embed.NewProvider(cfg.EmbedConfig(), log, stats)
	if err != nil {
		return nil, &pipeline.EmbeddingError{Err: err}
	}
	log.Info("embedding provider ready", "provider", p.Name(), "elapsed_ms", time.Since(start).Milliseconds())
	return p, nil
}
