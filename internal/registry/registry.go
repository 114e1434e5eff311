// Package registry maps node identities to the node instances that embody
// them within one replication session.
package registry

import (
	"errors"
	"fmt"

	"github.com/roach88/modelsync/internal/model"
)

// ErrCodeUnknownNode indicates a lookup of an id that is not registered.
const ErrCodeUnknownNode = "UNKNOWN_NODE"

// UnknownNodeError is returned by Lookup for unregistered ids.
type UnknownNodeError struct {
	Code   string
	NodeID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("%s: node %q is not registered", e.Code, e.NodeID)
}

// IsUnknownNode returns true if err is an UNKNOWN_NODE error.
func IsUnknownNode(err error) bool {
	var ue *UnknownNodeError
	return errors.As(err, &ue)
}

// Registry is a session-scoped id → node map. Entries follow ownership:
// registering a node registers its containment and annotation subtree,
// unregistering removes the same subtree. Nodes reachable only through
// references are never touched.
//
// Registry is not safe for concurrent use. Sessions sharing a registry
// across goroutines must serialize access.
type Registry struct {
	nodes map[string]*model.Node
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{nodes: make(map[string]*model.Node)}
}

// RegisterNode registers n and its current containment and annotation
// subtree. An id already registered is rebound to the new instance.
func (r *Registry) RegisterNode(n *model.Node) {
	for _, d := range n.Descendants(true) {
		r.nodes[d.ID()] = d
	}
}

// UnregisterNode removes n and its containment and annotation subtree. Ids
// bound to a different instance are left alone.
func (r *Registry) UnregisterNode(n *model.Node) {
	for _, d := range n.Descendants(true) {
		if r.nodes[d.ID()] == d {
			delete(r.nodes, d.ID())
		}
	}
}

// Lookup returns the node registered under id.
func (r *Registry) Lookup(id string) (*model.Node, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, &UnknownNodeError{Code: ErrCodeUnknownNode, NodeID: id}
	}
	return n, nil
}

// LookupOptional returns the node registered under id, or nil.
func (r *Registry) LookupOptional(id string) *model.Node {
	return r.nodes[id]
}

// Len returns the number of registered ids.
func (r *Registry) Len() int { return len(r.nodes) }
