package journal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/modelsync/internal/codec"
	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/pipeline"
	"github.com/roach88/modelsync/internal/replicator"
)

// Replay rebuilds a journaled partition: it decodes the snapshot, starts a
// replicator on it and applies every entry in sequence order. Each entry
// is checked against its stored hash first.
//
// The returned replicator owns a fresh pipeline; its root is the rebuilt
// partition.
func (j *Journal) Replay(ctx context.Context, lang *language.Language, partition string, opts ...replicator.Option) (*replicator.Replicator, error) {
	p, err := j.Partition(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if p.Language != lang.Key {
		return nil, fmt.Errorf("replay %s: journaled with language %s, not %s", partition, p.Language, lang.Key)
	}
	if p.Version != lang.Version {
		slog.Warn("replaying with a different language version",
			"partition", partition,
			"journaled", p.Version,
			"current", lang.Version,
		)
	}

	dec := codec.Decoder{Language: lang}
	root, err := dec.DecodeTree(p.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("replay %s: snapshot: %w", partition, err)
	}
	rep, err := replicator.New(lang, root, pipeline.New(), opts...)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", partition, err)
	}

	entries, err := j.Entries(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", partition, err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("replay %s: %w", partition, err)
		}
		if err := e.Verify(); err != nil {
			return nil, fmt.Errorf("replay %s: %w", partition, err)
		}
		n, err := dec.Unmarshal(e.Body)
		if err != nil {
			return nil, fmt.Errorf("replay %s: entry %d: %w", partition, e.Seq, err)
		}
		if err := rep.Apply(n); err != nil {
			return nil, fmt.Errorf("replay %s: entry %d: %w", partition, e.Seq, err)
		}
	}

	slog.Info("replay complete",
		"partition", partition,
		"entries", len(entries),
		"nodes", rep.Registry().Len(),
	)
	return rep, nil
}
