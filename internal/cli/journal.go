package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/modelsync/internal/journal"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Kind     string // optional - filter entries to one kind
}

// PartitionSummary describes one journaled partition.
type PartitionSummary struct {
	ID         string `json:"id"`
	Language   string `json:"language"`
	Version    string `json:"version"`
	Classifier string `json:"classifier"`
	Seq        int64  `json:"seq"`
}

// EntrySummary describes one journal entry.
type EntrySummary struct {
	Seq      int64  `json:"seq"`
	Kind     string `json:"kind"`
	Cause    string `json:"cause"`
	Verified bool   `json:"verified"`
	Body     any    `json:"body,omitempty"`
}

// JournalResult holds the journal listing.
type JournalResult struct {
	Partitions []PartitionSummary `json:"partitions,omitempty"`
	Partition  string             `json:"partition,omitempty"`
	Entries    []EntrySummary     `json:"entries,omitempty"`
	Tampered   int                `json:"tampered"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal [partition]",
		Short: "List journaled partitions or the entries of one",
		Long: `List the partitions recorded in a notification journal, or the entries
recorded for one partition in sequence order. Every entry is checked
against its content hash.

Exit codes:
  0 - Listing succeeded and every entry verified
  1 - One or more entries failed verification
  2 - Command error (database not found, unknown partition, etc.)

Examples:
  modelsync journal --db ./journal.db
  modelsync journal --db ./journal.db geo
  modelsync journal --db ./journal.db geo --kind ChildAdded --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			partition := ""
			if len(args) == 1 {
				partition = args[0]
			}
			return runJournal(opts, partition, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only list entries of this notification kind")

	return cmd
}

// openJournal opens an existing journal. Open would create a missing one.
func openJournal(path string) (*journal.Journal, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "journal not found", err)
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, nil
}

func runJournal(opts *JournalOptions, partition string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	j, err := openJournal(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return err
	}
	defer j.Close()

	if partition == "" {
		return listPartitions(ctx, j, formatter)
	}
	return listEntries(ctx, j, partition, opts.Kind, formatter)
}

func listPartitions(ctx context.Context, j *journal.Journal, formatter *OutputFormatter) error {
	parts, err := j.Partitions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list partitions", err)
	}

	result := JournalResult{Partitions: make([]PartitionSummary, 0, len(parts))}
	for _, p := range parts {
		result.Partitions = append(result.Partitions, PartitionSummary{
			ID:         p.ID,
			Language:   p.Language,
			Version:    p.Version,
			Classifier: p.Classifier,
			Seq:        p.Seq,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	w := formatter.Writer
	if len(result.Partitions) == 0 {
		fmt.Fprintln(w, "No partitions found in journal.")
		return nil
	}
	fmt.Fprintf(w, "Partitions (%d):\n", len(result.Partitions))
	for _, p := range result.Partitions {
		fmt.Fprintf(w, "  %s  %s  %s@%s  from seq %d\n", p.ID, p.Classifier, p.Language, p.Version, p.Seq)
	}
	return nil
}

func listEntries(ctx context.Context, j *journal.Journal, partition, kind string, formatter *OutputFormatter) error {
	if _, err := j.Partition(ctx, partition); err != nil {
		if errors.Is(err, journal.ErrUnknownPartition) {
			_ = formatter.Error(ErrCodePartition, fmt.Sprintf("partition %q is not journaled", partition), nil)
			return WrapExitError(ExitCommandError, "unknown partition", err)
		}
		return WrapExitError(ExitCommandError, "failed to read partition", err)
	}
	entries, err := j.Entries(ctx, partition)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entries", err)
	}

	result := JournalResult{Partition: partition, Entries: make([]EntrySummary, 0, len(entries))}
	for _, e := range entries {
		if kind != "" && e.Kind.String() != kind {
			continue
		}
		verr := e.Verify()
		if verr != nil {
			result.Tampered++
			formatter.VerboseLog("entry %d: %v", e.Seq, verr)
		}
		s := EntrySummary{
			Seq:      e.Seq,
			Kind:     e.Kind.String(),
			Cause:    string(e.Cause),
			Verified: verr == nil,
		}
		if formatter.Verbose || formatter.Format == "json" {
			s.Body = json.RawMessage(e.Body)
		}
		result.Entries = append(result.Entries, s)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputEntriesText(formatter, result)
	}
	if result.Tampered > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d entr(ies) failed verification", result.Tampered))
	}
	return nil
}

func outputEntriesText(formatter *OutputFormatter, result JournalResult) {
	w := formatter.Writer
	fmt.Fprintf(w, "Partition %s: %d entries\n", result.Partition, len(result.Entries))
	for _, e := range result.Entries {
		mark := "✓"
		if !e.Verified {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s [%d] %s (cause %s)\n", mark, e.Seq, e.Kind, e.Cause)
		if e.Body != nil {
			fmt.Fprintf(w, "      %s\n", e.Body)
		}
	}
}
