// Package rbtree implements an intrusive red-black index: insert/find/
// remove/update-key in O(log n), a non-recursive bulk-free pass, and an
// invariant verifier used by tests.
//
// The original (C-kern/platform/shared/index/redblacktree.c) embeds a node
// struct directly inside the caller's record and recovers the owning record
// from a node pointer via offsetof/container_of, packing the node's colour
// into the low bit of its parent pointer to avoid a separate byte. Go has
// neither offsetof-on-generics nor a safe way to steal a bit from a live
// pointer (the garbage collector requires every pointer-typed field to hold
// a valid reference between safepoints). This package keeps the shape of
// the original's API — an intrusive Node type the caller embeds, navigated
// by the tree via left/right/parent links, with colour read and written only
// through accessor methods — and replaces the offsetof trick with an
// explicit owner back-link recorded once, at node construction.
package rbtree

// Node is the intrusive tree link a caller embeds in the type it wants to
// index. Call NewNode to initialise one before it is ever passed to a
// Tree's Insert method.
type Node[T any] struct {
	left, right, parent *Node[T]
	owner               *T
	black               bool
}

// NewNode returns a fresh, unattached Node owned by owner. owner must not be
// nil, and must remain valid for as long as the node stays in a tree.
func NewNode[T any](owner *T) *Node[T] {
	return &Node[T]{owner: owner, black: true}
}

// Owner returns the record this node was constructed for.
func (n *Node[T]) Owner() *T { return n.owner }

func (n *Node[T]) isBlack() bool { return n == nil || n.black }
func (n *Node[T]) isRed() bool   { return n != nil && !n.black }
func (n *Node[T]) setBlack()     { n.black = true }
func (n *Node[T]) setRed()       { n.black = false }

func (n *Node[T]) reset() {
	n.left, n.right, n.parent = nil, nil, nil
	n.black = true
}
