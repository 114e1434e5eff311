package replicator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelsync/internal/ir"
	"github.com/roach88/modelsync/internal/model"
	"github.com/roach88/modelsync/internal/pipeline"
	"github.com/roach88/modelsync/internal/registry"
	"github.com/roach88/modelsync/internal/replicator"
	"github.com/roach88/modelsync/internal/testutil"
)

type collector struct {
	got []model.Notification
}

func (c *collector) Handle(n model.Notification) { c.got = append(c.got, n) }

// side is one end of a replicated partition. Each side has its own copy of
// the shapes language, so features travel by key.
type side struct {
	s         *testutil.Shapes
	root      *model.Node
	pipe      *pipeline.Pipeline
	rep       *replicator.Replicator
	delivered *collector
	sent      []model.Notification
}

func newSide(t *testing.T, prefix string, build func(s *testutil.Shapes, root *model.Node)) *side {
	t.Helper()
	s := testutil.NewShapes()
	root := model.NewNode("geo", s.Geometry)
	if build != nil {
		build(s, root)
	}
	pipe := pipeline.New(pipeline.WithGenerator(testutil.NewSequenceGenerator(prefix)))
	rep, err := replicator.New(s.Language, root, pipe)
	require.NoError(t, err)
	sd := &side{s: s, root: root, pipe: pipe, rep: rep, delivered: &collector{}}
	pipe.Subscribe(pipeline.All, sd.delivered)
	return sd
}

// connect makes a and b forward to each other, recording what each sends.
func connect(t *testing.T, a, b *side) {
	t.Helper()
	a.rep.SetSender(replicator.SenderFunc(func(n model.Notification) error {
		a.sent = append(a.sent, n)
		return b.rep.Apply(n)
	}))
	b.rep.SetSender(replicator.SenderFunc(func(n model.Notification) error {
		b.sent = append(b.sent, n)
		return a.rep.Apply(n)
	}))
}

func ids(kids []*model.Node) []string {
	out := make([]string, len(kids))
	for i, k := range kids {
		out[i] = k.ID()
	}
	return out
}

func TestApply_ChildAddedToMirror(t *testing.T) {
	s := testutil.NewShapes()
	r := model.NewNode("R", s.Geometry)
	x := model.NewNode("X", s.Circle)
	require.NoError(t, r.AddChildren(s.GeometryShapes, []*model.Node{x}))
	rep, err := replicator.New(s.Language, r, pipeline.New())
	require.NoError(t, err)

	remoteR := model.NewNode("R", s.Geometry)
	remoteY := model.NewNode("Y", s.Circle)
	require.NoError(t, remoteY.SetProperty(s.CircleR, ir.Int(7)))
	err = rep.Apply(&model.ChildAdded{
		Header:      model.Header{ID: "remote-1", Context: "R"},
		Parent:      remoteR,
		Containment: s.GeometryShapes,
		Index:       1,
		NewChild:    remoteY,
	})
	require.NoError(t, err)

	kids, err := r.Children(s.GeometryShapes)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, ids(kids))

	y, err := rep.Registry().Lookup("Y")
	require.NoError(t, err)
	assert.Same(t, kids[1], y)
	assert.NotSame(t, remoteY, y, "embedded nodes are copied, never stolen")
	radius, err := y.Property(s.CircleR)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(7), radius)
}

func TestMoveInSameContainment_Replicates(t *testing.T) {
	build := func(s *testutil.Shapes, root *model.Node) {
		_ = root.AddChildren(s.GeometryShapes, []*model.Node{model.NewNode("X", s.Circle), model.NewNode("Y", s.Circle)})
	}
	a := newSide(t, "a", build)
	b := newSide(t, "b", build)
	connect(t, a, b)

	x, err := a.rep.Registry().Lookup("X")
	require.NoError(t, err)
	require.NoError(t, a.root.InsertChildren(a.s.GeometryShapes, 1, []*model.Node{x}))

	require.Len(t, a.sent, 1)
	moved, ok := a.sent[0].(*model.ChildMovedInSameContainment)
	require.True(t, ok, "got %T", a.sent[0])
	assert.Equal(t, 0, moved.OldIndex)
	assert.Equal(t, 1, moved.NewIndex)

	kids, err := b.root.Children(b.s.GeometryShapes)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y", "X"}, ids(kids))
	assert.Same(t, b.root, kids[1].Parent())
}

func TestEchoSuppression(t *testing.T) {
	a := newSide(t, "a", nil)
	b := newSide(t, "b", nil)
	connect(t, a, b)

	y := model.NewNode("Y", a.s.Circle)
	require.NoError(t, a.root.AddChildren(a.s.GeometryShapes, []*model.Node{y}))

	require.Len(t, a.sent, 1)
	assert.Empty(t, b.sent, "the mirror must not echo the change back")
	assert.Empty(t, b.delivered.got, "applied changes are suppressed on the mirror")
	assert.Len(t, a.delivered.got, 1)

	_, err := b.rep.Registry().Lookup("Y")
	assert.NoError(t, err, "the registry hook sees suppressed notifications")
	assert.False(t, b.pipe.Filter().Suppressed(a.sent[0].Cause()), "suppression scope ends with Apply")

	// The other direction works the same way.
	mirrored := b.rep.Registry().LookupOptional("Y")
	require.NotNil(t, mirrored)
	require.NoError(t, b.root.RemoveChildren(b.s.GeometryShapes, []*model.Node{mirrored}))
	require.Len(t, b.sent, 1)
	assert.Len(t, a.sent, 1)
	assert.Equal(t, 0, a.root.Count(a.s.GeometryShapes))
	assert.Equal(t, model.CausalID("b-1"), b.sent[0].Cause())
}

// TestMirrorConvergence walks every notification kind and checks after each
// step that the mirror matches the origin.
func TestMirrorConvergence(t *testing.T) {
	a := newSide(t, "a", nil)
	b := newSide(t, "b", nil)
	connect(t, a, b)
	s := a.s
	geo := a.root

	circle := func(id string, r int64) *model.Node {
		c := model.NewNode(id, s.Circle)
		require.NoError(t, c.SetProperty(s.CircleR, ir.Int(r)))
		return c
	}
	c1 := circle("c1", 1)
	p1 := model.NewNode("p1", s.Coord)
	require.NoError(t, p1.SetProperty(s.CoordX, ir.Int(1)))
	require.NoError(t, p1.SetProperty(s.CoordY, ir.Int(2)))
	require.NoError(t, c1.SetChild(s.CircleCenter, p1))
	doc1 := model.NewNode("doc1", s.Documentation)
	require.NoError(t, doc1.SetProperty(s.DocText, ir.String("hello")))
	require.NoError(t, c1.AddAnnotations([]*model.Node{doc1}))

	comp := model.NewNode("comp", s.CompositeShape)
	c2 := circle("c2", 2)
	require.NoError(t, comp.AddChildren(s.Parts, []*model.Node{c2}))
	c3 := circle("c3", 3)
	c4 := model.NewNode("c4", s.Line)
	require.NoError(t, c4.SetChild(s.LineStart, model.NewNode("p4", s.Coord)))
	c5 := circle("c5", 5)
	bom1 := model.NewNode("bom1", s.BillOfMaterials)
	bom2 := model.NewNode("bom2", s.BillOfMaterials)
	doc2 := model.NewNode("doc2", s.Documentation)
	doc3 := model.NewNode("doc3", s.Documentation)
	doc4 := model.NewNode("doc4", s.Documentation)
	dup := model.NewNode("dup", s.OffsetDuplicate)

	steps := []struct {
		name string
		do   func() error
		want model.Kind
	}{
		{"add subtree", func() error { return geo.AddChildren(s.GeometryShapes, []*model.Node{c1}) }, model.KindChildAdded},
		{"property added", func() error { return c1.SetProperty(s.Name, ir.String("disc")) }, model.KindPropertyAdded},
		{"property changed", func() error { return c1.SetProperty(s.CircleR, ir.Int(5)) }, model.KindPropertyChanged},
		{"property deleted", func() error { return c1.SetProperty(s.Name, nil) }, model.KindPropertyDeleted},
		{"add composite", func() error { return geo.AddChildren(s.GeometryShapes, []*model.Node{comp}) }, model.KindChildAdded},
		{"move from other parent", func() error { return comp.InsertChildren(s.Parts, 0, []*model.Node{c1}) }, model.KindChildMovedFromOtherContainment},
		{"move within parent", func() error { return comp.AddChildren(s.DisabledParts, []*model.Node{c2}) }, model.KindChildMovedFromOtherContainmentInSameParent},
		{"add sibling", func() error { return comp.AddChildren(s.Parts, []*model.Node{c3}) }, model.KindChildAdded},
		{"move in same containment", func() error { return comp.InsertChildren(s.Parts, 2, []*model.Node{c1}) }, model.KindChildMovedInSameContainment},
		{"replace child", func() error { return comp.ReplaceChild(s.Parts, 0, c4) }, model.KindChildReplaced},
		{"move and replace within parent", func() error { return comp.ReplaceChild(s.Parts, 0, c2) }, model.KindChildMovedAndReplacedFromOtherContainmentInSameParent},
		{"move and replace in same containment", func() error { return comp.ReplaceChild(s.Parts, 1, c2) }, model.KindChildMovedAndReplacedInSameContainment},
		{"add c5", func() error { return geo.AddChildren(s.GeometryShapes, []*model.Node{c5}) }, model.KindChildAdded},
		{"move and replace from other parent", func() error { return comp.ReplaceChild(s.Parts, 0, c5) }, model.KindChildMovedAndReplacedFromOtherContainment},
		{"annotation added", func() error { return comp.AddAnnotations([]*model.Node{bom1}) }, model.KindAnnotationAdded},
		{"annotate c5", func() error { return c5.AddAnnotations([]*model.Node{doc2}) }, model.KindAnnotationAdded},
		{"annotation moved from other parent", func() error { return comp.AddAnnotations([]*model.Node{doc2}) }, model.KindAnnotationMovedFromOtherParent},
		{"annotation moved in same parent", func() error { return comp.InsertAnnotations(0, []*model.Node{doc2}) }, model.KindAnnotationMovedInSameParent},
		{"annotation replaced", func() error { return comp.ReplaceAnnotation(1, doc3) }, model.KindAnnotationReplaced},
		{"annotation moved and replaced in same parent", func() error { return comp.ReplaceAnnotation(0, doc3) }, model.KindAnnotationMovedAndReplacedInSameParent},
		{"annotate c5 again", func() error { return c5.AddAnnotations([]*model.Node{doc4}) }, model.KindAnnotationAdded},
		{"annotation moved and replaced from other parent", func() error { return comp.ReplaceAnnotation(0, doc4) }, model.KindAnnotationMovedAndReplacedFromOtherParent},
		{"annotation deleted", func() error { return comp.RemoveAnnotations([]*model.Node{doc4}) }, model.KindAnnotationDeleted},
		{"add bill of materials", func() error { return c5.AddAnnotations([]*model.Node{bom2}) }, model.KindAnnotationAdded},
		{"add duplicate", func() error { return geo.AddChildren(s.GeometryShapes, []*model.Node{dup}) }, model.KindChildAdded},
		{"references added", func() error {
			return bom2.AddReferences(s.Materials, []model.ReferenceTarget{model.RefTo(c5), model.RefTo(comp), model.RefTo(c5)})
		}, model.KindReferenceAdded},
		{"reference changed", func() error { return bom2.ReplaceReference(s.Materials, 1, model.RefTo(dup)) }, model.KindReferenceChanged},
		{"resolve info added", func() error { return bom2.SetResolveInfo(s.Materials, 0, "first") }, model.KindReferenceResolveInfoAdded},
		{"resolve info changed", func() error { return bom2.SetResolveInfo(s.Materials, 0, "second") }, model.KindReferenceResolveInfoChanged},
		{"resolve info deleted", func() error { return bom2.SetResolveInfo(s.Materials, 0, "") }, model.KindReferenceResolveInfoDeleted},
		{"entry moved in same reference", func() error { return bom2.MoveReference(s.Materials, 0, bom2, s.Materials, 3) }, model.KindEntryMovedInSameReference},
		{"entry moved and replaced in same reference", func() error {
			return bom2.MoveAndReplaceReference(s.Materials, 0, bom2, s.Materials, 2)
		}, model.KindEntryMovedAndReplacedInSameReference},
		{"entry moved from other reference", func() error { return bom2.MoveReference(s.Materials, 1, dup, s.AltSource, 0) }, model.KindEntryMovedFromOtherReference},
		{"entry moved within parent", func() error { return dup.MoveReference(s.AltSource, 0, dup, s.Source, 0) }, model.KindEntryMovedFromOtherReferenceInSameParent},
		{"single reference added", func() error { return dup.SetReference(s.AltSource, model.RefTo(comp)) }, model.KindReferenceAdded},
		{"entry moved and replaced within parent", func() error {
			return dup.MoveAndReplaceReference(s.AltSource, 0, dup, s.Source, 0)
		}, model.KindEntryMovedAndReplacedFromOtherReferenceInSameParent},
		{"entry moved and replaced from other reference", func() error {
			return bom2.MoveAndReplaceReference(s.Materials, 0, dup, s.Source, 0)
		}, model.KindEntryMovedAndReplacedFromOtherReference},
		{"reference deleted", func() error { return dup.SetReference(s.Source, model.ReferenceTarget{}) }, model.KindReferenceDeleted},
		{"child deleted", func() error { return geo.RemoveChildren(s.GeometryShapes, []*model.Node{comp}) }, model.KindChildDeleted},
	}

	for _, step := range steps {
		before := len(a.delivered.got)
		require.NoError(t, step.do(), step.name)
		require.Greater(t, len(a.delivered.got), before, step.name)
		assert.Equal(t, step.want, a.delivered.got[len(a.delivered.got)-1].Kind(), step.name)
		require.NoError(t, b.rep.Desynchronized(), step.name)
		require.Equal(t, testutil.Dump(a.root), testutil.Dump(b.root), step.name)
	}

	assert.Empty(t, b.sent)
	assert.Empty(t, b.delivered.got)
	for _, id := range []string{"comp", "c5", "bom2"} {
		_, err := b.rep.Registry().Lookup(id)
		assert.True(t, registry.IsUnknownNode(err), id)
	}
	_, err := b.rep.Registry().Lookup("dup")
	assert.NoError(t, err)
}

func TestApply_UnknownNodeDesynchronizes(t *testing.T) {
	s := testutil.NewShapes()
	root := model.NewNode("geo", s.Geometry)
	rep, err := replicator.New(s.Language, root, pipeline.New())
	require.NoError(t, err)

	ghost := model.NewNode("ghost", s.Circle)
	err = rep.Apply(&model.PropertyAdded{
		Header:   model.Header{ID: "r-1", Context: "geo"},
		Node:     ghost,
		Property: s.CircleR,
		New:      ir.Int(1),
	})
	assert.True(t, replicator.IsDesynchronized(err))
	assert.True(t, registry.IsUnknownNode(err), "cause is kept in the chain")
	assert.Error(t, rep.Desynchronized())

	err = rep.Apply(&model.ChildAdded{
		Header:      model.Header{ID: "r-2", Context: "geo"},
		Parent:      root,
		Containment: s.GeometryShapes,
		NewChild:    model.NewNode("fresh", s.Circle),
	})
	assert.True(t, replicator.IsDesynchronized(err), "a desynchronized replica refuses input")
	assert.Equal(t, 0, root.Count(s.GeometryShapes))
}

func TestApply_IndexOutOfRangeDesynchronizes(t *testing.T) {
	s := testutil.NewShapes()
	root := model.NewNode("geo", s.Geometry)
	rep, err := replicator.New(s.Language, root, pipeline.New())
	require.NoError(t, err)

	err = rep.Apply(&model.ChildAdded{
		Header:      model.Header{ID: "r-1", Context: "geo"},
		Parent:      root,
		Containment: s.GeometryShapes,
		Index:       3,
		NewChild:    model.NewNode("late", s.Circle),
	})
	assert.True(t, replicator.IsDesynchronized(err))
	assert.True(t, model.IsIndexOutOfRange(err))
}

type bogus struct {
	model.Header
}

func (*bogus) Kind() model.Kind { return model.KindUnknown }
func (*bogus) AffectedNodes() []*model.Node { return nil }

func TestApply_UnknownNotification(t *testing.T) {
	s := testutil.NewShapes()
	root := model.NewNode("geo", s.Geometry)
	rep, err := replicator.New(s.Language, root, pipeline.New())
	require.NoError(t, err)

	err = rep.Apply(&bogus{Header: model.Header{ID: "r-1", Context: "geo"}})
	assert.True(t, replicator.IsUnknownNotification(err))
	assert.NoError(t, rep.Desynchronized(), "protocol violations do not poison the replica")

	other := testutil.NewShapes()
	foreign := other.Circle.Property("radius2", nil)
	err = rep.Apply(&model.PropertyAdded{
		Header:   model.Header{ID: "r-2", Context: "geo"},
		Node:     root,
		Property: foreign,
		New:      ir.Int(1),
	})
	assert.True(t, replicator.IsUnknownNotification(err))
}

func TestApply_ChildReplacedKeepsInsertThenRemove(t *testing.T) {
	s := testutil.NewShapes()
	root := model.NewNode("geo", s.Geometry)
	require.NoError(t, root.AddChildren(s.GeometryShapes, []*model.Node{
		model.NewNode("A", s.Circle), model.NewNode("B", s.Circle), model.NewNode("C", s.Circle),
	}))
	rep, err := replicator.New(s.Language, root, pipeline.New())
	require.NoError(t, err)

	// The origin replaced B at index 0, so this replica is already out of
	// step; the replace still removes whatever follows the insert.
	err = rep.Apply(&model.ChildReplaced{
		Header:        model.Header{ID: "r-1", Context: "geo"},
		Parent:        root,
		Containment:   s.GeometryShapes,
		Index:         0,
		NewChild:      model.NewNode("N", s.Circle),
		ReplacedChild: model.NewNode("B", s.Circle),
	})
	require.NoError(t, err)

	kids, err := root.Children(s.GeometryShapes)
	require.NoError(t, err)
	assert.Equal(t, []string{"N", "B", "C"}, ids(kids))
	assert.Nil(t, rep.Registry().LookupOptional("A"))
}

func TestApply_Composite(t *testing.T) {
	a := newSide(t, "a", nil)
	b := newSide(t, "b", nil)
	connect(t, a, b)

	err := a.pipe.Transaction(func() error {
		c := model.NewNode("c", a.s.Circle)
		if err := a.root.AddChildren(a.s.GeometryShapes, []*model.Node{c}); err != nil {
			return err
		}
		return c.SetProperty(a.s.CircleR, ir.Int(9))
	})
	require.NoError(t, err)

	require.Len(t, a.sent, 1)
	assert.Equal(t, model.KindComposite, a.sent[0].Kind())
	assert.Equal(t, testutil.Dump(a.root), testutil.Dump(b.root))
	assert.Empty(t, b.sent)
}

func TestApply_CompositeForwardsSubtreesAsProduced(t *testing.T) {
	a := newSide(t, "a", nil)
	b := newSide(t, "b", nil)
	connect(t, a, b)
	s := a.s

	err := a.pipe.Transaction(func() error {
		p1 := model.NewNode("p1", s.Circle)
		cs := model.NewNode("cs", s.CompositeShape)
		if err := cs.AddChildren(s.Parts, []*model.Node{p1}); err != nil {
			return err
		}
		if err := a.root.AddChildren(s.GeometryShapes, []*model.Node{cs}); err != nil {
			return err
		}
		if err := cs.AddChildren(s.Parts, []*model.Node{model.NewNode("p2", s.Line)}); err != nil {
			return err
		}
		if err := a.root.AddChildren(s.GeometryShapes, []*model.Node{p1}); err != nil {
			return err
		}
		bom := model.NewNode("bom", s.BillOfMaterials)
		if err := cs.AddAnnotations([]*model.Node{bom}); err != nil {
			return err
		}
		return bom.AddReferences(s.Materials, []model.ReferenceTarget{model.RefTo(p1)})
	})
	require.NoError(t, err)

	require.Len(t, a.sent, 1)
	require.NoError(t, b.rep.Desynchronized())
	assert.Equal(t, testutil.Dump(a.root), testutil.Dump(b.root))

	bom, err := b.rep.Registry().Lookup("bom")
	require.NoError(t, err)
	refs, err := bom.References(b.s.Materials)
	require.NoError(t, err)
	assert.Len(t, refs, 1, "the reference is not applied twice")
}

func TestApply_CompositeRouting(t *testing.T) {
	circle := func(s *testutil.Shapes, id string, r int64) (*model.Node, error) {
		c := model.NewNode(id, s.Circle)
		return c, c.SetProperty(s.CircleR, ir.Int(r))
	}
	tests := []struct {
		name string
		edit func(s *testutil.Shapes, g1, g2 *model.Node) error
		sent map[string]int
	}{
		{
			name: "one partition",
			edit: func(s *testutil.Shapes, g1, _ *model.Node) error {
				c, _ := circle(s, "c1", 1)
				if err := g1.AddChildren(s.GeometryShapes, []*model.Node{c}); err != nil {
					return err
				}
				return c.SetProperty(s.Name, ir.String("one"))
			},
			sent: map[string]int{"g1": 1, "g2": 0},
		},
		{
			name: "two partitions",
			edit: func(s *testutil.Shapes, g1, g2 *model.Node) error {
				c1, _ := circle(s, "c1", 1)
				c2, _ := circle(s, "c2", 2)
				if err := g1.AddChildren(s.GeometryShapes, []*model.Node{c1}); err != nil {
					return err
				}
				if err := g2.AddChildren(s.GeometryShapes, []*model.Node{c2}); err != nil {
					return err
				}
				return c1.SetProperty(s.Name, ir.String("first"))
			},
			sent: map[string]int{"g1": 1, "g2": 1},
		},
		{
			name: "two partitions with distinct causes",
			edit: func(s *testutil.Shapes, g1, g2 *model.Node) error {
				c1, _ := circle(s, "c1", 1)
				c2, _ := circle(s, "c2", 2)
				if err := g2.AddChildren(s.GeometryShapes, []*model.Node{c2}, model.WithCause("x")); err != nil {
					return err
				}
				if err := g1.AddChildren(s.GeometryShapes, []*model.Node{c1}, model.WithCause("y")); err != nil {
					return err
				}
				return c2.SetProperty(s.CircleR, ir.Int(5), model.WithCause("z"))
			},
			sent: map[string]int{"g1": 1, "g2": 1},
		},
		{
			name: "move across partitions",
			edit: func(s *testutil.Shapes, g1, g2 *model.Node) error {
				c, _ := circle(s, "c", 1)
				if err := g1.AddChildren(s.GeometryShapes, []*model.Node{c}); err != nil {
					return err
				}
				return g2.AddChildren(s.GeometryShapes, []*model.Node{c})
			},
			sent: map[string]int{"g1": 1, "g2": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewShapes()
			pipe := pipeline.New(pipeline.WithGenerator(testutil.NewSequenceGenerator("o")))
			roots := []*model.Node{model.NewNode("g1", s.Geometry), model.NewNode("g2", s.Geometry)}
			mirrors := make(map[string]*replicator.Replicator)
			sent := make(map[string][]model.Notification)

			for _, root := range roots {
				id := root.ID()
				ms := testutil.NewShapes()
				mirror, err := replicator.New(ms.Language, model.NewNode(id, ms.Geometry), pipeline.New())
				require.NoError(t, err)
				mirrors[id] = mirror
				_, err = replicator.New(s.Language, root, pipe,
					replicator.WithSender(replicator.SenderFunc(func(n model.Notification) error {
						sent[id] = append(sent[id], n)
						return mirror.Apply(n)
					})))
				require.NoError(t, err)
			}

			require.NoError(t, pipe.Transaction(func() error { return tt.edit(s, roots[0], roots[1]) }))

			for _, root := range roots {
				id := root.ID()
				assert.Len(t, sent[id], tt.sent[id], id)
				for _, n := range sent[id] {
					for _, part := range model.Unwrap(n) {
						assert.Equal(t, id, part.ContextNodeID(), "%s forwarded %s", id, part.Kind())
					}
				}
				require.NoError(t, mirrors[id].Desynchronized(), id)
				assert.Equal(t, testutil.Dump(root), testutil.Dump(mirrors[id].Root()), id)
			}
		})
	}
}

func TestApply_RejectsOtherPartition(t *testing.T) {
	s := testutil.NewShapes()
	geo := model.NewNode("geo", s.Geometry)
	rep, err := replicator.New(s.Language, geo, pipeline.New())
	require.NoError(t, err)

	other := model.NewNode("other", s.Geometry)
	err = rep.Apply(model.NewComposite(
		&model.ChildAdded{
			Header:      model.Header{ID: "r-1", Context: "geo"},
			Parent:      model.NewNode("geo", s.Geometry),
			Containment: s.GeometryShapes,
			NewChild:    model.NewNode("c1", s.Circle),
		},
		&model.ChildAdded{
			Header:      model.Header{ID: "r-1", Context: "other"},
			Parent:      other,
			Containment: s.GeometryShapes,
			NewChild:    model.NewNode("c2", s.Circle),
		},
	))
	require.Error(t, err)
	assert.True(t, replicator.IsUnknownNotification(err))
	assert.Contains(t, err.Error(), `partition "other"`)

	assert.NoError(t, rep.Desynchronized())
	assert.Zero(t, geo.Count(s.GeometryShapes), "nothing of a misrouted unit is applied")
	assert.Nil(t, rep.Registry().LookupOptional("c1"))
}

func TestApply_ReferenceToUnknownNodeKeepsPlaceholder(t *testing.T) {
	a := newSide(t, "a", nil)
	b := newSide(t, "b", nil)
	connect(t, a, b)
	s := a.s

	outside := model.NewNode("outside", s.Circle)
	dup := model.NewNode("dup", s.OffsetDuplicate)
	require.NoError(t, dup.SetReference(s.Source, model.ReferenceTarget{Target: outside, TargetID: "outside", ResolveInfo: "far away"}))
	require.NoError(t, a.root.AddChildren(s.GeometryShapes, []*model.Node{dup}))

	mirrored, err := b.rep.Registry().Lookup("dup")
	require.NoError(t, err)
	refs, err := mirrored.References(b.s.Source)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Nil(t, refs[0].Target, "foreign-language nodes are not embedded")
	assert.Equal(t, "outside", refs[0].TargetID)
	assert.Equal(t, "far away", refs[0].ResolveInfo)
}

func TestNew_Validation(t *testing.T) {
	s := testutil.NewShapes()

	_, err := replicator.New(s.Language, model.NewNode("c", s.Circle), pipeline.New())
	assert.Error(t, err, "only partitions replicate")

	root := model.NewNode("geo", s.Geometry)
	require.NoError(t, root.AttachNotifier(&testutil.Recorder{}))
	_, err = replicator.New(s.Language, root, pipeline.New())
	assert.Error(t, err, "root already has a different notifier")

	other := testutil.NewShapes()
	_, err = replicator.New(other.Language, model.NewNode("geo", s.Geometry), pipeline.New())
	assert.Error(t, err, "root classifier must belong to the language")
}

func TestRegistryShared(t *testing.T) {
	s := testutil.NewShapes()
	reg := registry.New()
	pipe := pipeline.New()

	geo := model.NewNode("geo", s.Geometry)
	refs := model.NewNode("refs", s.ReferenceGeometry)
	_, err := replicator.New(s.Language, geo, pipe, replicator.WithRegistry(reg))
	require.NoError(t, err)
	_, err = replicator.New(s.Language, refs, pipe, replicator.WithRegistry(reg))
	require.NoError(t, err)

	c := model.NewNode("c", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{c}))
	require.NoError(t, refs.AddReferences(s.RefShapes, []model.ReferenceTarget{model.RefTo(c)}))

	for _, id := range []string{"geo", "refs", "c"} {
		_, err := reg.Lookup(id)
		assert.NoError(t, err, id)
	}
}
