package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/modelsync/internal/codec"
	"github.com/roach88/modelsync/internal/journal"
	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/testutil"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Language string
}

// ReplayResult holds the rebuilt partition.
type ReplayResult struct {
	Partition string `json:"partition"`
	Entries   int    `json:"entries"`
	Nodes     int    `json:"nodes"`
	Tree      any    `json:"tree"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <partition>",
		Short: "Rebuild a partition from its journal",
		Long: `Rebuild a journaled partition by applying its recorded notifications,
in sequence order, to the snapshot it started from. Prints the result.

Exit codes:
  0 - Partition rebuilt
  1 - Replay failed (tampered entry, entry that does not apply, etc.)
  2 - Command error (database not found, invalid language, etc.)

Examples:
  modelsync replay --db ./journal.db --language shapes.cue geo
  modelsync replay --db ./journal.db --language shapes.cue geo --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVarP(&opts.Language, "language", "l", "", "path to the CUE language definition (required)")
	_ = cmd.MarkFlagRequired("language")

	return cmd
}

func runReplay(opts *ReplayOptions, partition string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	lang, err := language.LoadFile(opts.Language)
	if err != nil {
		_ = formatter.Error(ErrCodeLanguage, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load language", err)
	}

	j, err := openJournal(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return err
	}
	defer j.Close()

	entries, err := j.Entries(ctx, partition)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entries", err)
	}
	formatter.VerboseLog("Replaying %d entries of %s", len(entries), partition)

	rep, err := j.Replay(ctx, lang, partition)
	if err != nil {
		if errors.Is(err, journal.ErrUnknownPartition) {
			_ = formatter.Error(ErrCodePartition, fmt.Sprintf("partition %q is not journaled", partition), nil)
			return WrapExitError(ExitCommandError, "unknown partition", err)
		}
		_ = formatter.Error(ErrCodeReplay, err.Error(), nil)
		return WrapExitError(ExitFailure, "replay failed", err)
	}
	defer rep.Close()

	if formatter.Format == "json" {
		return formatter.Success(ReplayResult{
			Partition: partition,
			Entries:   len(entries),
			Nodes:     rep.Registry().Len(),
			Tree:      codec.Tree(rep.Root()),
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Replayed %d entries of %s (%d nodes)\n\n", len(entries), partition, rep.Registry().Len())
	fmt.Fprint(w, testutil.Dump(rep.Root()))
	return nil
}
