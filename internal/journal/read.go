package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/model"
)

// Partition is a journaled partition and the snapshot it started from.
type Partition struct {
	ID           string
	Language     string
	Version      string
	Classifier   string
	Snapshot     ir.Object
	SnapshotHash string
	// Seq is the clock position when the partition was begun.
	Seq int64
}

// Entry is one stored notification.
type Entry struct {
	Seq       int64
	Partition string
	Kind      model.Kind
	Cause     model.CausalID
	Body      []byte
	Hash      string
}

// ErrUnknownPartition is returned for partitions that were never begun.
var ErrUnknownPartition = errors.New("unknown partition")

// Partitions lists every journaled partition ordered by id.
func (j *Journal) Partitions(ctx context.Context) ([]Partition, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, language, version, classifier, snapshot, snapshot_hash, seq
		FROM partitions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query partitions: %w", err)
	}
	defer rows.Close()

	partitions := []Partition{}
	for rows.Next() {
		p, err := scanPartition(rows)
		if err != nil {
			return nil, err
		}
		partitions = append(partitions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partitions: %w", err)
	}
	return partitions, nil
}

// Partition returns one journaled partition.
func (j *Journal) Partition(ctx context.Context, id string) (Partition, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, language, version, classifier, snapshot, snapshot_hash, seq
		FROM partitions
		WHERE id = ?
	`, id)
	p, err := scanPartition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Partition{}, fmt.Errorf("partition %s: %w", id, ErrUnknownPartition)
	}
	return p, err
}

// Entries returns the notifications of a partition in sequence order.
// Returns an empty slice (not nil) if there are none.
func (j *Journal) Entries(ctx context.Context, partition string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, partition_id, kind, cause, body, body_hash
		FROM notifications
		WHERE partition_id = ?
		ORDER BY seq ASC
	`, partition)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e     Entry
			kind  string
			cause string
			body  string
		)
		if err := rows.Scan(&e.Seq, &e.Partition, &kind, &cause, &body, &e.Hash); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Kind = model.ParseKind(kind)
		e.Cause = model.CausalID(cause)
		e.Body = []byte(body)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Verify checks that the entry's body still matches its stored hash.
func (e Entry) Verify() error {
	v, err := ir.Unmarshal(e.Body)
	if err != nil {
		return fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	hash, err := ir.Digest(ir.DomainNotification, v)
	if err != nil {
		return fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	if hash != e.Hash {
		return fmt.Errorf("entry %d: body hash %s does not match stored %s", e.Seq, hash, e.Hash)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPartition(s scanner) (Partition, error) {
	var (
		p        Partition
		snapshot string
	)
	if err := s.Scan(&p.ID, &p.Language, &p.Version, &p.Classifier, &snapshot, &p.SnapshotHash, &p.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Partition{}, err
		}
		return Partition{}, fmt.Errorf("scan partition: %w", err)
	}
	var obj ir.Object
	if err := obj.UnmarshalJSON([]byte(snapshot)); err != nil {
		return Partition{}, fmt.Errorf("partition %s: snapshot: %w", p.ID, err)
	}
	p.Snapshot = obj
	return p, nil
}
