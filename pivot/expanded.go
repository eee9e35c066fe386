package pivot

// ExpandedSet holds the keys of expanded tree nodes. The zero value is usable: nothing expanded.
type ExpandedSet map[string]struct{}

func (expanded ExpandedSet) Contains(key string) bool {
	_, ok := expanded[key]
	return ok
}

func (expanded *ExpandedSet) Expand(key string) {
	if *expanded == nil {
		*expanded = make(ExpandedSet)
	}
	(*expanded)[key] = struct{}{}
}

// Collapse hides the node's subtree. Expansion state below it is kept, so re-expanding restores
// the previous view.
func (expanded ExpandedSet) Collapse(key string) {
	delete(expanded, key)
}

func (expanded *ExpandedSet) Toggle(key string) {
	if expanded.Contains(key) {
		expanded.Collapse(key)
	} else {
		expanded.Expand(key)
	}
}

// ExpandAll expands every group in the tree.
func (expanded *ExpandedSet) ExpandAll(tree *Tree) {
	tree.Walk(func(node *Node) {
		if !node.IsLeaf {
			expanded.Expand(node.Key)
		}
	})
}
