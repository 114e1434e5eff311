package model

// InsertAnnotations attaches annotations to n starting at index, which must
// lie in [0, count]. Each annotation must be an instance of an annotation
// classifier that annotates n's classifier.
func (n *Node) InsertAnnotations(index int, anns []*Node, opts ...MutationOption) error {
	count := len(n.annotations)
	if index < 0 || index > count {
		return n.outOfRange(nil, index, 0, count)
	}
	if err := n.distinct(nil, anns); err != nil {
		return err
	}
	for _, a := range anns {
		if err := n.validateAnnotation(a); err != nil {
			return err
		}
	}

	m := newMutation(opts)
	for i, a := range anns {
		n.place(m, nil, index+i, a)
	}
	return nil
}

// AddAnnotations appends annotations to n.
func (n *Node) AddAnnotations(anns []*Node, opts ...MutationOption) error {
	return n.InsertAnnotations(len(n.annotations), anns, opts...)
}

// RemoveAnnotations detaches the given annotations. Nodes that do not
// annotate n are ignored.
func (n *Node) RemoveAnnotations(anns []*Node, opts ...MutationOption) error {
	n.unplace(newMutation(opts), nil, anns)
	return nil
}

// ReplaceAnnotation puts a in place of the annotation at index, which must
// lie in [0, count).
func (n *Node) ReplaceAnnotation(index int, a *Node, opts ...MutationOption) error {
	count := len(n.annotations)
	if index < 0 || index >= count {
		return n.outOfRange(nil, index, 0, count-1)
	}
	if n.annotations[index] == a {
		return nil
	}
	if err := n.validateAnnotation(a); err != nil {
		return err
	}
	n.replace(newMutation(opts), nil, index, a)
	return nil
}

func (n *Node) validateAnnotation(a *Node) error {
	if err := n.validateOwned(nil, a); err != nil {
		return err
	}
	if !a.classifier.AnnotationAccepts(n.classifier) {
		return n.fail(ErrCodeInvalidValue, nil, "%s cannot annotate %s", a, n.classifier.Name)
	}
	return nil
}
