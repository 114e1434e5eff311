package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelsync/internal/model"
	"github.com/roach88/modelsync/internal/testutil"
)

func ids(nodes []*model.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID()
	}
	return out
}

func children(t *testing.T, n *model.Node, s *testutil.Shapes) []string {
	t.Helper()
	f := s.GeometryShapes
	if n.Classifier() == s.CompositeShape {
		f = s.Parts
	}
	cs, err := n.Children(f)
	require.NoError(t, err)
	return ids(cs)
}

func TestInsertChildren_OneNotificationPerChild(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	a := model.NewNode("a", s.Circle)
	b := model.NewNode("b", s.Line)

	require.NoError(t, geo.InsertChildren(s.GeometryShapes, 0, []*model.Node{a, b}))

	assert.Equal(t, []string{"a", "b"}, children(t, geo, s))
	require.Len(t, rec.Notifications, 2)
	first := rec.Notifications[0].(*model.ChildAdded)
	second := rec.Notifications[1].(*model.ChildAdded)
	assert.Equal(t, 0, first.Index)
	assert.Same(t, a, first.NewChild)
	assert.Equal(t, 1, second.Index)
	assert.Same(t, b, second.NewChild)
	assert.Equal(t, first.Cause(), second.Cause(), "one call, one causal id")
	assert.Same(t, geo, a.Parent())
	assert.Equal(t, s.GeometryShapes, a.ContainingFeature())
}

func TestInsertChildren_Bounds(t *testing.T) {
	s := testutil.NewShapes()

	tests := []struct {
		name     string
		existing int
		index    int
		wantErr  bool
	}{
		{"empty at zero", 0, 0, false},
		{"empty negative", 0, -1, true},
		{"empty past end", 0, 1, true},
		{"front", 2, 0, false},
		{"middle", 2, 1, false},
		{"end", 2, 2, false},
		{"past end", 2, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo, rec := partition(t, s, "geo")
			for i := 0; i < tt.existing; i++ {
				require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{model.NewNode(string(rune('a'+i)), s.Circle)}))
			}
			rec.Reset()

			err := geo.InsertChildren(s.GeometryShapes, tt.index, []*model.Node{model.NewNode("x", s.Circle)})
			if tt.wantErr {
				assert.True(t, model.IsIndexOutOfRange(err))
				assert.Equal(t, tt.existing, geo.Count(s.GeometryShapes), "no partial insert")
				assert.Empty(t, rec.Notifications)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.existing+1, geo.Count(s.GeometryShapes))
		})
	}
}

func TestSingleOwnership_AttachElsewhereDetaches(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	p1 := model.NewNode("p1", s.CompositeShape)
	p2 := model.NewNode("p2", s.CompositeShape)
	x := model.NewNode("x", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{p1, p2}))
	require.NoError(t, p1.AddChildren(s.Parts, []*model.Node{x}))
	rec.Reset()

	require.NoError(t, p2.AddChildren(s.Parts, []*model.Node{x}))

	assert.Same(t, p2, x.Parent())
	assert.Equal(t, 0, p1.Count(s.Parts))
	assert.Equal(t, []string{"x"}, children(t, p2, s))

	require.Len(t, rec.Notifications, 1)
	moved := rec.Notifications[0].(*model.ChildMovedFromOtherContainment)
	assert.Same(t, p1, moved.OldParent)
	assert.Same(t, p2, moved.NewParent)
	assert.Equal(t, 0, moved.OldIndex)
	assert.Equal(t, 0, moved.NewIndex)
	assert.Equal(t, []*model.Node{p2, p1}, moved.AffectedNodes())
}

func TestSingleOwnership_OtherFeatureOfSameParent(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	p := model.NewNode("p", s.CompositeShape)
	x := model.NewNode("x", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{p}))
	require.NoError(t, p.AddChildren(s.Parts, []*model.Node{x}))
	rec.Reset()

	require.NoError(t, p.AddChildren(s.DisabledParts, []*model.Node{x}))

	assert.Equal(t, 0, p.Count(s.Parts))
	assert.Equal(t, 1, p.Count(s.DisabledParts))
	assert.Equal(t, s.DisabledParts, x.ContainingFeature())
	require.Len(t, rec.Notifications, 1)
	moved := rec.Notifications[0].(*model.ChildMovedFromOtherContainmentInSameParent)
	assert.Equal(t, s.Parts, moved.OldContainment)
	assert.Equal(t, s.DisabledParts, moved.NewContainment)
}

func TestMoveInSameContainment(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	x := model.NewNode("X", s.Circle)
	y := model.NewNode("Y", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{x, y}))
	rec.Reset()

	require.NoError(t, geo.InsertChildren(s.GeometryShapes, 1, []*model.Node{x}))

	assert.Equal(t, []string{"Y", "X"}, children(t, geo, s))
	assert.Same(t, geo, x.Parent())
	require.Len(t, rec.Notifications, 1)
	moved := rec.Notifications[0].(*model.ChildMovedInSameContainment)
	assert.Equal(t, 0, moved.OldIndex)
	assert.Equal(t, 1, moved.NewIndex)
	assert.Same(t, x, moved.MovedChild)
}

func TestInsertChildren_BatchWithMemberAheadOfIndex(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	a := model.NewNode("A", s.Circle)
	b := model.NewNode("B", s.Circle)
	x := model.NewNode("X", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{a, b}))
	rec.Reset()

	require.NoError(t, geo.InsertChildren(s.GeometryShapes, 1, []*model.Node{x, a}))

	assert.Equal(t, []string{"X", "B", "A"}, children(t, geo, s))
	require.Len(t, rec.Notifications, 2)
	added := rec.Notifications[0].(*model.ChildAdded)
	assert.Equal(t, 1, added.Index)
	moved := rec.Notifications[1].(*model.ChildMovedInSameContainment)
	assert.Equal(t, 0, moved.OldIndex)
	assert.Equal(t, 2, moved.NewIndex)
}

func TestMoveInSameContainment_ToCurrentPositionIsNoop(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	x := model.NewNode("X", s.Circle)
	y := model.NewNode("Y", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{x, y}))
	rec.Reset()

	require.NoError(t, geo.InsertChildren(s.GeometryShapes, 0, []*model.Node{x}))
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{y}))

	assert.Equal(t, []string{"X", "Y"}, children(t, geo, s))
	assert.Empty(t, rec.Notifications)
}

func TestMove_ThereAndBackRestoresOrder(t *testing.T) {
	s := testutil.NewShapes()
	geo, _ := partition(t, s, "geo")
	p1 := model.NewNode("p1", s.CompositeShape)
	p2 := model.NewNode("p2", s.CompositeShape)
	a := model.NewNode("a", s.Circle)
	c := model.NewNode("c", s.Circle)
	b := model.NewNode("b", s.Circle)
	z := model.NewNode("z", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{p1, p2}))
	require.NoError(t, p1.AddChildren(s.Parts, []*model.Node{a, c, b}))
	require.NoError(t, p2.AddChildren(s.Parts, []*model.Node{z}))

	require.NoError(t, p2.InsertChildren(s.Parts, 0, []*model.Node{c}))
	assert.Equal(t, []string{"a", "b"}, children(t, p1, s))
	assert.Equal(t, []string{"c", "z"}, children(t, p2, s))

	require.NoError(t, p1.InsertChildren(s.Parts, 1, []*model.Node{c}))
	assert.Same(t, p1, c.Parent())
	assert.Equal(t, []string{"a", "c", "b"}, children(t, p1, s))
	assert.Equal(t, []string{"z"}, children(t, p2, s))
}

func TestMove_AcrossPartitions(t *testing.T) {
	s := testutil.NewShapes()
	src, srcRec := partition(t, s, "src")
	dst, dstRec := partition(t, s, "dst")
	x := model.NewNode("x", s.Circle)
	require.NoError(t, src.AddChildren(s.GeometryShapes, []*model.Node{x}))
	srcRec.Reset()

	require.NoError(t, dst.AddChildren(s.GeometryShapes, []*model.Node{x}))

	require.Len(t, srcRec.Notifications, 1)
	del := srcRec.Notifications[0].(*model.ChildDeleted)
	assert.Same(t, x, del.DeletedChild)
	assert.Equal(t, "src", del.ContextNodeID())

	require.Len(t, dstRec.Notifications, 1)
	add := dstRec.Notifications[0].(*model.ChildAdded)
	assert.Same(t, x, add.NewChild)
	assert.Equal(t, "dst", add.ContextNodeID())
	assert.Equal(t, del.Cause(), add.Cause())
}

func TestRemoveChildren(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	a := model.NewNode("a", s.Circle)
	b := model.NewNode("b", s.Circle)
	stranger := model.NewNode("s", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{a, b}))
	rec.Reset()

	require.NoError(t, geo.RemoveChildren(s.GeometryShapes, []*model.Node{b, stranger}))

	assert.Nil(t, b.Parent())
	assert.Equal(t, []string{"a"}, children(t, geo, s))
	require.Len(t, rec.Notifications, 1, "removing an absent child is a no-op")
	del := rec.Notifications[0].(*model.ChildDeleted)
	assert.Equal(t, 1, del.Index)
	assert.Same(t, b, del.DeletedChild)
}

func TestReplaceChild(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	a := model.NewNode("a", s.Circle)
	b := model.NewNode("b", s.Circle)
	n := model.NewNode("n", s.Line)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{a, b}))
	rec.Reset()

	require.NoError(t, geo.ReplaceChild(s.GeometryShapes, 1, n))

	assert.Equal(t, []string{"a", "n"}, children(t, geo, s))
	assert.Nil(t, b.Parent())
	require.Len(t, rec.Notifications, 1)
	rep := rec.Notifications[0].(*model.ChildReplaced)
	assert.Equal(t, 1, rep.Index)
	assert.Same(t, n, rep.NewChild)
	assert.Same(t, b, rep.ReplacedChild)

	err := geo.ReplaceChild(s.GeometryShapes, 2, model.NewNode("z", s.Circle))
	assert.True(t, model.IsIndexOutOfRange(err))
}

func TestReplaceChild_MoveWithinContainment(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	a := model.NewNode("a", s.Circle)
	b := model.NewNode("b", s.Circle)
	c := model.NewNode("c", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{a, b, c}))
	rec.Reset()

	require.NoError(t, geo.ReplaceChild(s.GeometryShapes, 2, a))

	assert.Equal(t, []string{"b", "a"}, children(t, geo, s))
	assert.Nil(t, c.Parent())
	require.Len(t, rec.Notifications, 1)
	moved := rec.Notifications[0].(*model.ChildMovedAndReplacedInSameContainment)
	assert.Equal(t, 0, moved.OldIndex)
	assert.Equal(t, 1, moved.NewIndex)
	assert.Same(t, c, moved.ReplacedChild)
}

func TestReplaceChild_MoveFromOtherParent(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	p := model.NewNode("p", s.CompositeShape)
	x := model.NewNode("x", s.Circle)
	old := model.NewNode("old", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{p, old}))
	require.NoError(t, p.AddChildren(s.Parts, []*model.Node{x}))
	rec.Reset()

	require.NoError(t, geo.ReplaceChild(s.GeometryShapes, 1, x))

	assert.Equal(t, []string{"p", "x"}, children(t, geo, s))
	assert.Equal(t, 0, p.Count(s.Parts))
	require.Len(t, rec.Notifications, 1)
	moved := rec.Notifications[0].(*model.ChildMovedAndReplacedFromOtherContainment)
	assert.Same(t, p, moved.OldParent)
	assert.Same(t, geo, moved.NewParent)
	assert.Equal(t, 1, moved.NewIndex)
	assert.Same(t, old, moved.ReplacedChild)
}

func TestSingleContainment_Multiplicity(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	line := model.NewNode("l", s.Line)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{line}))

	_, err := line.Child(s.LineStart)
	assert.True(t, model.IsUnsetFeature(err))

	p1 := model.NewNode("p1", s.Coord)
	p2 := model.NewNode("p2", s.Coord)
	require.NoError(t, line.SetChild(s.LineStart, p1))

	err = line.InsertChildren(s.LineStart, 0, []*model.Node{p2})
	assert.True(t, model.IsInvalidValue(err), "single slot is full")
	assert.Nil(t, p2.Parent())

	err = line.AddChildren(s.LineEnd, []*model.Node{p2, model.NewNode("p3", s.Coord)})
	assert.True(t, model.IsInvalidValue(err))
	assert.Equal(t, 0, line.Count(s.LineEnd))

	rec.Reset()
	require.NoError(t, line.SetChild(s.LineStart, p2))
	assert.Nil(t, p1.Parent())
	assert.Equal(t, []model.Kind{model.KindChildReplaced}, rec.Kinds())

	require.NoError(t, line.SetChild(s.LineStart, nil))
	_, err = line.Child(s.LineStart)
	assert.True(t, model.IsUnsetFeature(err))
}

func TestInsertChildren_Validation(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	p := model.NewNode("p", s.CompositeShape)
	inner := model.NewNode("inner", s.CompositeShape)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{p}))
	require.NoError(t, p.AddChildren(s.Parts, []*model.Node{inner}))
	rec.Reset()

	tests := []struct {
		name  string
		node  *model.Node
		nodes []*model.Node
	}{
		{"wrong classifier", inner, []*model.Node{model.NewNode("pt", s.Coord)}},
		{"partition root", p, []*model.Node{model.NewNode("g2", s.Geometry)}},
		{"ancestor", inner, []*model.Node{p}},
		{"itself", inner, []*model.Node{inner}},
		{"notifying root", p, []*model.Node{geo}},
		{"duplicate", p, func() []*model.Node { c := model.NewNode("d", s.Circle); return []*model.Node{c, c} }()},
		{"nil", p, []*model.Node{nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := s.Parts
			err := tt.node.AddChildren(f, tt.nodes)
			assert.True(t, model.IsInvalidValue(err), "got %v", err)
		})
	}
	assert.Empty(t, rec.Notifications)
	assert.Same(t, geo, p.Parent())
	assert.Same(t, p, inner.Parent())
}

func TestDescendants(t *testing.T) {
	s := testutil.NewShapes()
	geo, _ := partition(t, s, "geo")
	p := model.NewNode("p", s.CompositeShape)
	c := model.NewNode("c", s.Circle)
	doc := model.NewNode("doc", s.Documentation)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{p}))
	require.NoError(t, p.AddChildren(s.Parts, []*model.Node{c}))
	require.NoError(t, c.AddAnnotations([]*model.Node{doc}))

	assert.Equal(t, []string{"geo", "p", "c", "doc"}, ids(geo.Descendants(true)))
	assert.Equal(t, []string{"c", "doc"}, ids(p.Descendants(false)))
	assert.Same(t, geo, doc.Root())
	assert.True(t, geo.IsAncestorOf(doc))
	assert.False(t, c.IsAncestorOf(p))
}

func TestAttachNotifier_RootOnly(t *testing.T) {
	s := testutil.NewShapes()
	geo, _ := partition(t, s, "geo")
	c := model.NewNode("c", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{c}))

	err := c.AttachNotifier(&testutil.Recorder{})
	assert.True(t, model.IsInvalidValue(err))
}
