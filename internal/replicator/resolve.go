package replicator

import (
	"fmt"

	"github.com/roach88/modelsync/internal/language"
	"github.com/roach88/modelsync/internal/model"
)

// node maps a node named by an inbound notification to the local instance.
// The node must already be registered.
func (r *Replicator) node(remote *model.Node) (*model.Node, error) {
	if remote == nil {
		return nil, protocolf("notification names no node")
	}
	local, err := r.reg.Lookup(remote.ID())
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", remote, err)
	}
	return local, nil
}

// adopt maps a node that may be new to this side: the registered instance
// when there is one, otherwise a local copy of the embedded subtree.
func (r *Replicator) adopt(remote *model.Node) (*model.Node, error) {
	if remote == nil {
		return nil, protocolf("notification names no node")
	}
	if local := r.reg.LookupOptional(remote.ID()); local != nil {
		return local, nil
	}
	return r.clone(remote)
}

// feature maps a remote feature to the local language by key.
func (r *Replicator) feature(remote *language.Feature, kind language.FeatureKind) (*language.Feature, error) {
	if remote == nil {
		return nil, protocolf("notification names no feature")
	}
	f := r.lang.Feature(remote.Key)
	if f == nil {
		return nil, protocolf("feature %s is not part of language %s", remote.Key, r.lang.Key)
	}
	if f.Kind != kind {
		return nil, protocolf("feature %s is a %s, not a %s", f.Key, f.Kind, kind)
	}
	return f, nil
}

// slot resolves a containment owner and feature.
func (r *Replicator) slot(remote *model.Node, remoteF *language.Feature) (*model.Node, *language.Feature, error) {
	f, err := r.feature(remoteF, language.Containment)
	if err != nil {
		return nil, nil, err
	}
	parent, err := r.node(remote)
	if err != nil {
		return nil, nil, err
	}
	return parent, f, nil
}

// ref resolves a reference owner and feature.
func (r *Replicator) ref(remote *model.Node, remoteF *language.Feature) (*model.Node, *language.Feature, error) {
	f, err := r.feature(remoteF, language.Reference)
	if err != nil {
		return nil, nil, err
	}
	parent, err := r.node(remote)
	if err != nil {
		return nil, nil, err
	}
	return parent, f, nil
}

// target maps a reference entry. Targets unknown locally are kept as the
// remote object when it speaks the local language, and as an id with its
// resolve info otherwise.
func (r *Replicator) target(t model.ReferenceTarget) model.ReferenceTarget {
	id := t.ID()
	if id != "" {
		if local := r.reg.LookupOptional(id); local != nil {
			return model.ReferenceTarget{Target: local, TargetID: id, ResolveInfo: t.ResolveInfo}
		}
	}
	if t.Target != nil && r.lang.Classifier(t.Target.Classifier().Key) == t.Target.Classifier() {
		return t
	}
	return model.RefInfo(id, t.ResolveInfo)
}

// clone builds a detached local copy of a remote subtree. References inside
// the subtree point at the copies; the others are mapped with target.
func (r *Replicator) clone(remote *model.Node) (*model.Node, error) {
	copies := make(map[*model.Node]*model.Node)
	var order []*model.Node

	var build func(x *model.Node) (*model.Node, error)
	build = func(x *model.Node) (*model.Node, error) {
		c := r.lang.Classifier(x.Classifier().Key)
		if c == nil {
			return nil, protocolf("classifier %s is not part of language %s", x.Classifier().Key, r.lang.Key)
		}
		local := model.NewNode(x.ID(), c)
		copies[x] = local
		order = append(order, x)

		for _, rf := range x.SetFeatures() {
			if rf.Kind == language.Reference {
				continue
			}
			f, err := r.feature(rf, rf.Kind)
			if err != nil {
				return nil, err
			}
			if rf.Kind == language.Property {
				v, err := x.Property(rf)
				if err != nil {
					return nil, err
				}
				if err := local.SetProperty(f, v); err != nil {
					return nil, err
				}
				continue
			}
			kids, err := x.Children(rf)
			if err != nil {
				return nil, err
			}
			localKids := make([]*model.Node, 0, len(kids))
			for _, k := range kids {
				lk, err := build(k)
				if err != nil {
					return nil, err
				}
				localKids = append(localKids, lk)
			}
			if err := local.AddChildren(f, localKids); err != nil {
				return nil, err
			}
		}

		anns := x.Annotations()
		localAnns := make([]*model.Node, 0, len(anns))
		for _, a := range anns {
			la, err := build(a)
			if err != nil {
				return nil, err
			}
			localAnns = append(localAnns, la)
		}
		if len(localAnns) > 0 {
			if err := local.AddAnnotations(localAnns); err != nil {
				return nil, err
			}
		}
		return local, nil
	}

	root, err := build(remote)
	if err != nil {
		return nil, fmt.Errorf("copy %s: %w", remote, err)
	}

	for _, x := range order {
		local := copies[x]
		for _, rf := range x.SetFeatures() {
			if rf.Kind != language.Reference {
				continue
			}
			f, err := r.feature(rf, language.Reference)
			if err != nil {
				return nil, err
			}
			entries, err := x.References(rf)
			if err != nil {
				return nil, err
			}
			mapped := make([]model.ReferenceTarget, len(entries))
			for i, e := range entries {
				if c, ok := copies[e.Target]; ok && e.Target != nil {
					mapped[i] = model.ReferenceTarget{Target: c, TargetID: c.ID(), ResolveInfo: e.ResolveInfo}
					continue
				}
				mapped[i] = r.target(e)
			}
			if err := local.AddReferences(f, mapped); err != nil {
				return nil, fmt.Errorf("copy %s: %w", remote, err)
			}
		}
	}
	return root, nil
}
