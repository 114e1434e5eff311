package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelsync/internal/model"
	"github.com/roach88/modelsync/internal/testutil"
)

func TestAnnotations_AddRemove(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	c := model.NewNode("c", s.Circle)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{c}))
	rec.Reset()

	doc := model.NewNode("doc", s.Documentation)
	bom := model.NewNode("bom", s.BillOfMaterials)
	require.NoError(t, c.AddAnnotations([]*model.Node{doc, bom}))

	assert.Equal(t, []string{"doc", "bom"}, ids(c.Annotations()))
	assert.Same(t, c, doc.Parent())
	assert.True(t, doc.IsAnnotation())
	assert.Nil(t, doc.ContainingFeature())

	require.NoError(t, c.RemoveAnnotations([]*model.Node{doc, model.NewNode("other", s.Documentation)}))
	assert.Nil(t, doc.Parent())
	assert.Equal(t, []string{"bom"}, ids(c.Annotations()))

	assert.Equal(t, []model.Kind{
		model.KindAnnotationAdded,
		model.KindAnnotationAdded,
		model.KindAnnotationDeleted,
	}, rec.Kinds())
	added := rec.Notifications[1].(*model.AnnotationAdded)
	assert.Equal(t, 1, added.Index)
	assert.Same(t, bom, added.NewAnnotation)
}

func TestAnnotations_TargetValidated(t *testing.T) {
	s := testutil.NewShapes()
	pt := model.NewNode("pt", s.Coord)

	err := pt.AddAnnotations([]*model.Node{model.NewNode("doc", s.Documentation)})
	assert.True(t, model.IsInvalidValue(err), "Documentation annotates shapes only")

	err = pt.AddAnnotations([]*model.Node{model.NewNode("c", s.Circle)})
	assert.True(t, model.IsInvalidValue(err), "concepts are not annotations")

	require.NoError(t, pt.AddAnnotations([]*model.Node{model.NewNode("bom", s.BillOfMaterials)}))

	err = pt.InsertAnnotations(3, []*model.Node{model.NewNode("bom2", s.BillOfMaterials)})
	assert.True(t, model.IsIndexOutOfRange(err))
}

func TestAnnotations_Moves(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	a := model.NewNode("a", s.Circle)
	b := model.NewNode("b", s.Circle)
	d1 := model.NewNode("d1", s.Documentation)
	d2 := model.NewNode("d2", s.Documentation)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{a, b}))
	require.NoError(t, a.AddAnnotations([]*model.Node{d1, d2}))
	rec.Reset()

	require.NoError(t, a.InsertAnnotations(2, []*model.Node{d1}))
	assert.Equal(t, []string{"d2", "d1"}, ids(a.Annotations()))

	require.NoError(t, b.AddAnnotations([]*model.Node{d2}))
	assert.Same(t, b, d2.Parent())
	assert.Equal(t, []string{"d1"}, ids(a.Annotations()))

	require.Len(t, rec.Notifications, 2)
	same := rec.Notifications[0].(*model.AnnotationMovedInSameParent)
	assert.Equal(t, 0, same.OldIndex)
	assert.Equal(t, 1, same.NewIndex)
	other := rec.Notifications[1].(*model.AnnotationMovedFromOtherParent)
	assert.Same(t, a, other.OldParent)
	assert.Same(t, b, other.NewParent)
}

func TestReplaceAnnotation(t *testing.T) {
	s := testutil.NewShapes()
	geo, rec := partition(t, s, "geo")
	a := model.NewNode("a", s.Circle)
	b := model.NewNode("b", s.Circle)
	d1 := model.NewNode("d1", s.Documentation)
	d2 := model.NewNode("d2", s.Documentation)
	d3 := model.NewNode("d3", s.Documentation)
	require.NoError(t, geo.AddChildren(s.GeometryShapes, []*model.Node{a, b}))
	require.NoError(t, a.AddAnnotations([]*model.Node{d1}))
	require.NoError(t, b.AddAnnotations([]*model.Node{d2}))
	rec.Reset()

	require.NoError(t, a.ReplaceAnnotation(0, d3))
	require.NoError(t, a.ReplaceAnnotation(0, d2))

	assert.Equal(t, []string{"d2"}, ids(a.Annotations()))
	assert.Empty(t, b.Annotations())
	assert.Nil(t, d1.Parent())
	assert.Nil(t, d3.Parent())

	require.Len(t, rec.Notifications, 2)
	rep := rec.Notifications[0].(*model.AnnotationReplaced)
	assert.Same(t, d3, rep.NewAnnotation)
	assert.Same(t, d1, rep.ReplacedAnnotation)
	moved := rec.Notifications[1].(*model.AnnotationMovedAndReplacedFromOtherParent)
	assert.Same(t, b, moved.OldParent)
	assert.Same(t, d3, moved.ReplacedAnnotation)
}
