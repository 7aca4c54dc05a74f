package rbtree

import "fmt"

// Verify walks the whole tree and checks the red-black invariants: the
// root is black and parentless, no red node has a red child, every
// root-to-nil-leaf path crosses the same number of black nodes, and the
// in-order sequence of owners is strictly increasing under compare. It
// mirrors invariant_redblacktree and exists for use in tests, not on any
// production code path.
func (t *Tree[T]) Verify() error {
	if t.root == nil {
		if t.size != 0 {
			return fmt.Errorf("rbtree: empty root but size=%d", t.size)
		}
		return nil
	}
	if t.root.isRed() || t.root.parent != nil {
		return fmt.Errorf("rbtree: root must be black and parentless")
	}

	var prev *T
	blackHeight := -1

	var walk func(n *Node[T], height int) error
	walk = func(n *Node[T], height int) error {
		if n == nil {
			if blackHeight == -1 {
				blackHeight = height
			} else if height != blackHeight {
				return fmt.Errorf("rbtree: unequal black height: %d vs %d", height, blackHeight)
			}
			return nil
		}
		if n.left != nil && n.left.parent != n {
			return fmt.Errorf("rbtree: left child's parent link is broken")
		}
		if n.right != nil && n.right.parent != n {
			return fmt.Errorf("rbtree: right child's parent link is broken")
		}
		if n.isRed() {
			if n.left.isRed() || n.right.isRed() {
				return fmt.Errorf("rbtree: red node has a red child")
			}
		}
		nextHeight := height
		if n.isBlack() {
			nextHeight++
		}
		if err := walk(n.left, nextHeight); err != nil {
			return err
		}
		if prev != nil && t.compare(prev, n.owner) >= 0 {
			return fmt.Errorf("rbtree: in-order sequence is not strictly increasing")
		}
		prev = n.owner
		if err := walk(n.right, nextHeight); err != nil {
			return err
		}
		return nil
	}
	return walk(t.root, 0)
}
