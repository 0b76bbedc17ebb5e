package tree

import "iter"

// Node is one element of a forest. Only Expanded is ever mutated after
// construction, and only by the Model that owns the forest.
type Node[T Drawable] struct {
	Value    T
	Children []*Node[T]
	Expanded bool
}

// NewNode returns a collapsed node.
func NewNode[T Drawable](value T, children ...*Node[T]) *Node[T] {
	return &Node[T]{Value: value, Children: children}
}

// IsLeaf reports whether the node has no children. A leaf stays a leaf
// whatever its Expanded flag says.
func (n *Node[T]) IsLeaf() bool {
	return len(n.Children) == 0
}

// Toggle flips the expanded flag.
func (n *Node[T]) Toggle() {
	n.Expanded = !n.Expanded
}

// glyph is the character shown between the row brackets.
func (n *Node[T]) glyph() string {
	switch {
	case n.IsLeaf():
		return " "
	case n.Expanded:
		return "-"
	default:
		return "+"
	}
}

// Visible yields (depth, node) for every node eligible for display, depth-first
// in pre-order. Children of collapsed nodes are skipped. The sequence is a pure
// function of the forest and can be ranged over any number of times.
func Visible[T Drawable](roots []*Node[T]) iter.Seq2[int, *Node[T]] {
	return func(yield func(int, *Node[T]) bool) {
		walkVisible(roots, 0, yield)
	}
}

func walkVisible[T Drawable](nodes []*Node[T], depth int, yield func(int, *Node[T]) bool) bool {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if !yield(depth, n) {
			return false
		}
		if n.Expanded && !walkVisible(n.Children, depth+1, yield) {
			return false
		}
	}
	return true
}

// CountVisible returns the length of the visible sequence.
func CountVisible[T Drawable](roots []*Node[T]) int {
	count := 0
	for range Visible(roots) {
		count++
	}
	return count
}

// VisibleAt returns the entry at index i of the visible sequence.
func VisibleAt[T Drawable](roots []*Node[T], i int) (int, *Node[T], bool) {
	if i < 0 {
		return 0, nil, false
	}
	index := 0
	for depth, n := range Visible(roots) {
		if index == i {
			return depth, n, true
		}
		index++
	}
	return 0, nil, false
}

// setExpandedRecursive sets the expanded state for a node and all descendants.
func setExpandedRecursive[T Drawable](node *Node[T], expanded bool) {
	if node == nil {
		return
	}
	node.Expanded = expanded
	for _, child := range node.Children {
		setExpandedRecursive(child, expanded)
	}
}
