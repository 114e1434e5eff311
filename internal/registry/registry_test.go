package registry_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/modelsync/internal/model"
	"github.com/roach88/modelsync/internal/registry"
	"github.com/roach88/modelsync/internal/testutil"
)

func TestRegistry_SubtreeConsistency(t *testing.T) {
	s := testutil.NewShapes()
	root := model.NewNode("root", s.Geometry)
	group := model.NewNode("group", s.CompositeShape)
	leaf := model.NewNode("leaf", s.Circle)
	center := model.NewNode("center", s.Coord)
	doc := model.NewNode("doc", s.Documentation)
	require.NoError(t, root.AddChildren(s.GeometryShapes, []*model.Node{group}))
	require.NoError(t, group.AddChildren(s.Parts, []*model.Node{leaf}))
	require.NoError(t, leaf.SetChild(s.CircleCenter, center))
	require.NoError(t, leaf.AddAnnotations([]*model.Node{doc}))

	// outside lives in another tree and is only referenced from the subtree.
	other := model.NewNode("other", s.Geometry)
	outside := model.NewNode("outside", s.Circle)
	require.NoError(t, other.AddChildren(s.GeometryShapes, []*model.Node{outside}))
	bom := model.NewNode("bom", s.BillOfMaterials)
	require.NoError(t, bom.AddReferences(s.Materials, []model.ReferenceTarget{model.RefTo(outside)}))
	require.NoError(t, group.AddAnnotations([]*model.Node{bom}))

	r := registry.New()
	r.RegisterNode(root)
	r.RegisterNode(outside)

	for _, id := range []string{"root", "group", "leaf", "center", "doc", "bom", "outside"} {
		n, err := r.Lookup(id)
		require.NoError(t, err, id)
		assert.Equal(t, id, n.ID())
	}

	r.UnregisterNode(root)
	for _, id := range []string{"root", "group", "leaf", "center", "doc", "bom"} {
		_, err := r.Lookup(id)
		assert.True(t, registry.IsUnknownNode(err), id)
		assert.Nil(t, r.LookupOptional(id))
	}
	n, err := r.Lookup("outside")
	require.NoError(t, err, "reference targets stay registered")
	assert.Same(t, outside, n)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_UnregisterKeepsRebinding(t *testing.T) {
	s := testutil.NewShapes()
	first := model.NewNode("x", s.Circle)
	second := model.NewNode("x", s.Circle)

	r := registry.New()
	r.RegisterNode(first)
	r.RegisterNode(second)
	r.UnregisterNode(first)

	n, err := r.Lookup("x")
	require.NoError(t, err)
	assert.Same(t, second, n)
}

func TestUnknownNodeError(t *testing.T) {
	_, err := registry.New().Lookup("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN_NODE")
	assert.True(t, registry.IsUnknownNode(fmt.Errorf("apply: %w", err)))
	assert.False(t, registry.IsUnknownNode(fmt.Errorf("other")))
}
