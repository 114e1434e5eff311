package journal

import (
	"context"
	"fmt"

	"github.com/roach88/modelsync/internal/codec"
	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/model"
)

// Begin records root's current subtree as the starting point of its
// partition's journal. Returns inserted=false when the partition is
// already journaled; the stored snapshot is kept.
func (j *Journal) Begin(ctx context.Context, root *model.Node) (inserted bool, err error) {
	if root.Parent() != nil || !root.Classifier().Partition {
		return false, fmt.Errorf("begin %s: not a partition root", root)
	}
	snapshot := codec.Tree(root)
	body, err := ir.MarshalCanonical(snapshot)
	if err != nil {
		return false, fmt.Errorf("begin %s: %w", root, err)
	}
	hash, err := ir.Digest(ir.DomainSnapshot, snapshot)
	if err != nil {
		return false, fmt.Errorf("begin %s: %w", root, err)
	}

	var lang, version string
	if l := root.Classifier().Language; l != nil {
		lang, version = l.Key, l.Version
	}
	res, err := j.db.ExecContext(ctx, `
		INSERT INTO partitions
		(id, language, version, classifier, snapshot, snapshot_hash, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		root.ID(),
		lang,
		version,
		root.Classifier().Key,
		string(body),
		hash,
		j.clock.Current(),
	)
	if err != nil {
		return false, fmt.Errorf("begin %s: %w", root, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("begin %s: %w", root, err)
	}
	return n > 0, nil
}

// Append stores n under the partition named by its context and returns its
// sequence number. Composites are stored as one entry. The partition must
// have been started with Begin.
func (j *Journal) Append(ctx context.Context, n model.Notification) (int64, error) {
	obj, err := codec.Encode(n)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", n.Kind(), err)
	}
	body, err := ir.MarshalCanonical(obj)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", n.Kind(), err)
	}
	hash, err := ir.Digest(ir.DomainNotification, obj)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", n.Kind(), err)
	}

	seq := j.clock.Next()
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO notifications
		(seq, partition_id, kind, cause, body, body_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		seq,
		n.ContextNodeID(),
		n.Kind().String(),
		string(n.Cause()),
		string(body),
		hash,
	)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", n.Kind(), err)
	}
	return seq, nil
}
