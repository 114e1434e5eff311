package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/model"
	"github.com/roach88/modelsync/internal/pipeline"
	"github.com/roach88/modelsync/internal/testutil"
)

func openTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

// session is a journaled partition with a pipeline and a recorder tapped on it.
type session struct {
	s    *testutil.Shapes
	root *model.Node
	pipe *pipeline.Pipeline
	rec  *Recorder
}

func startSession(t *testing.T, j *Journal, build func(s *testutil.Shapes, root *model.Node)) *session {
	t.Helper()
	ctx := context.Background()
	s := testutil.NewShapes()
	root := model.NewNode("geo", s.Geometry)
	if build != nil {
		build(s, root)
	}
	inserted, err := j.Begin(ctx, root)
	require.NoError(t, err)
	require.True(t, inserted)

	pipe := pipeline.New(pipeline.WithGenerator(testutil.NewSequenceGenerator("j")))
	require.NoError(t, root.AttachNotifier(pipe))
	rec := j.Recorder(ctx, root.ID())
	pipe.Tap(rec)
	return &session{s: s, root: root, pipe: pipe, rec: rec}
}

func TestOpen_CreatesDatabase(t *testing.T) {
	j, path := openTestJournal(t)

	_, err := os.Stat(path)
	require.NoError(t, err)

	mode, err := j.pragma("journal_mode")
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)
	fk, err := j.pragma("foreign_keys")
	require.NoError(t, err)
	assert.Equal(t, "1", fk)
	assert.Equal(t, int64(0), j.Seq())
}

func TestOpen_Options(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path, WithBusyTimeout(250), WithSynchronous("FULL"))
	require.NoError(t, err)
	defer j.Close()

	timeout, err := j.pragma("busy_timeout")
	require.NoError(t, err)
	assert.Equal(t, "250", timeout)
	mode, err := j.pragma("synchronous")
	require.NoError(t, err)
	assert.Equal(t, "2", mode, "FULL")
}

func TestOpen_ResumesClock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	sess := startSession(t, j, nil)
	require.NoError(t, sess.root.AddChildren(sess.s.GeometryShapes, []*model.Node{model.NewNode("c", sess.s.Circle)}))
	require.NoError(t, sess.rec.Err())
	require.Equal(t, int64(1), j.Seq())
	require.NoError(t, j.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, int64(1), again.Seq(), "clock resumes after the last entry")
}

func TestBegin(t *testing.T) {
	j, _ := openTestJournal(t)
	ctx := context.Background()
	s := testutil.NewShapes()

	root := model.NewNode("geo", s.Geometry)
	inserted, err := j.Begin(ctx, root)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = j.Begin(ctx, root)
	require.NoError(t, err)
	assert.False(t, inserted, "second Begin keeps the first snapshot")

	_, err = j.Begin(ctx, model.NewNode("c", s.Circle))
	assert.Error(t, err, "only partitions are journaled")

	p, err := j.Partition(ctx, "geo")
	require.NoError(t, err)
	assert.Equal(t, "shapes", p.Language)
	assert.Equal(t, "1", p.Version)
	assert.Equal(t, "Geometry", p.Classifier)
	assert.Equal(t, ir.String("geo"), p.Snapshot["id"])
	assert.Equal(t, ir.MustDigest(ir.DomainSnapshot, p.Snapshot), p.SnapshotHash)

	_, err = j.Partition(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownPartition)
}

func TestAppend_Entries(t *testing.T) {
	j, _ := openTestJournal(t)
	ctx := context.Background()
	sess := startSession(t, j, nil)
	s := sess.s

	c := model.NewNode("c", s.Circle)
	require.NoError(t, sess.root.AddChildren(s.GeometryShapes, []*model.Node{c}))
	require.NoError(t, c.SetProperty(s.CircleR, ir.Int(3)))
	require.NoError(t, c.SetProperty(s.CircleR, ir.Int(4)))
	require.NoError(t, sess.rec.Err())
	assert.Equal(t, 3, sess.rec.Appended())

	entries, err := j.Entries(ctx, "geo")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	kinds := []model.Kind{model.KindChildAdded, model.KindPropertyAdded, model.KindPropertyChanged}
	for i, e := range entries {
		assert.Equal(t, int64(i+1), e.Seq)
		assert.Equal(t, "geo", e.Partition)
		assert.Equal(t, kinds[i], e.Kind)
		assert.Equal(t, model.CausalID([]string{"j-1", "j-2", "j-3"}[i]), e.Cause)
		assert.NoError(t, e.Verify())
	}

	empty, err := j.Entries(ctx, "nothing")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	partitions, err := j.Partitions(ctx)
	require.NoError(t, err)
	require.Len(t, partitions, 1)
	assert.Equal(t, "geo", partitions[0].ID)
}

func TestAppend_RequiresBegin(t *testing.T) {
	j, _ := openTestJournal(t)
	s := testutil.NewShapes()
	orphan := &model.PropertyAdded{
		Header:   model.Header{ID: "x", Context: "never-begun"},
		Node:     model.NewNode("c", s.Circle),
		Property: s.CircleR,
		New:      ir.Int(1),
	}
	_, err := j.Append(context.Background(), orphan)
	assert.Error(t, err)
}

func TestRecorder_IgnoresOtherPartitions(t *testing.T) {
	j, _ := openTestJournal(t)
	rec := j.Recorder(context.Background(), "geo")
	s := testutil.NewShapes()
	rec.Handle(&model.PropertyAdded{
		Header:   model.Header{ID: "x", Context: "other"},
		Node:     model.NewNode("c", s.Circle),
		Property: s.CircleR,
		New:      ir.Int(1),
	})
	assert.Equal(t, 0, rec.Appended())
	assert.NoError(t, rec.Err())
}

func TestReplay_RebuildsPartition(t *testing.T) {
	j, _ := openTestJournal(t)
	ctx := context.Background()
	var seed *model.Node
	sess := startSession(t, j, func(s *testutil.Shapes, root *model.Node) {
		seed = model.NewNode("seed", s.Circle)
		_ = seed.SetProperty(s.CircleR, ir.Int(1))
		_ = root.AddChildren(s.GeometryShapes, []*model.Node{seed})
	})
	s := sess.s
	geo := sess.root

	comp := model.NewNode("comp", s.CompositeShape)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{comp}))
	require.NoError(t, comp.AddChildren(s.Parts, []*model.Node{seed}))
	require.NoError(t, sess.pipe.Transaction(func() error {
		dup := model.NewNode("dup", s.OffsetDuplicate)
		if err := geo.AddChildren(s.GeometryShapes, []*model.Node{dup}); err != nil {
			return err
		}
		return dup.SetReference(s.Source, model.RefTo(seed))
	}))
	require.NoError(t, comp.AddAnnotations([]*model.Node{model.NewNode("doc", s.Documentation)}))
	require.NoError(t, seed.SetProperty(s.CircleR, ir.Int(9)))
	require.NoError(t, sess.rec.Err())

	mirror := testutil.NewShapes()
	rep, err := j.Replay(ctx, mirror.Language, "geo")
	require.NoError(t, err)
	assert.Equal(t, testutil.Dump(geo), testutil.Dump(rep.Root()))
	assert.Same(t, mirror.Geometry, rep.Root().Classifier())

	dup, err := rep.Registry().Lookup("dup")
	require.NoError(t, err)
	refs, err := dup.References(mirror.Source)
	require.NoError(t, err)
	assert.Same(t, rep.Registry().LookupOptional("seed"), refs[0].Target)
}

func TestReplay_DetectsTampering(t *testing.T) {
	j, _ := openTestJournal(t)
	sess := startSession(t, j, nil)
	c := model.NewNode("c", sess.s.Circle)
	require.NoError(t, sess.root.AddChildren(sess.s.GeometryShapes, []*model.Node{c}))
	require.NoError(t, c.SetProperty(sess.s.CircleR, ir.Int(1)))

	_, err := j.db.Exec(`UPDATE notifications SET body = replace(body, '"new":1', '"new":2') WHERE seq = 2`)
	require.NoError(t, err)

	_, err = j.Replay(context.Background(), testutil.NewShapes().Language, "geo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestReplay_Errors(t *testing.T) {
	j, _ := openTestJournal(t)
	ctx := context.Background()
	startSession(t, j, nil)

	_, err := j.Replay(ctx, testutil.NewShapes().Language, "missing")
	assert.ErrorIs(t, err, ErrUnknownPartition)

	_, err = j.Replay(ctx, language.NewLanguage("other", "1"), "geo")
	assert.Error(t, err)
}
