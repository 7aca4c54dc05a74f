package rbtree

import (
	"fmt"
	"unsafe"

	"github.com/je-so/js-projekt-sub005/intbits"
)

// CompareFunc orders two owning records the way the tree's key does:
// negative if a sorts before b, zero if equal, positive otherwise.
type CompareFunc[T any] func(a, b *T) int

// Tree is a red-black index over *T values, each indexed by a Node[T]
// constructed via NewNode. The zero value is not usable; call New.
type Tree[T any] struct {
	root    *Node[T]
	compare CompareFunc[T]
	size    int
}

// New constructs an empty tree ordered by compare.
func New[T any](compare CompareFunc[T]) *Tree[T] {
	return &Tree[T]{compare: compare}
}

// Len returns the number of nodes currently indexed.
func (t *Tree[T]) Len() int { return t.size }

func (t *Tree[T]) rotateLeft(node *Node[T]) *Node[T] {
	parent := node.parent
	right := node.right

	node.right = right.left
	if right.left != nil {
		right.left.parent = node
	}

	right.left = node
	node.parent = right

	right.parent = parent
	if parent != nil {
		if parent.left == node {
			parent.left = right
		} else {
			parent.right = right
		}
	} else {
		t.root = right
	}
	return right
}

func (t *Tree[T]) rotateRight(node *Node[T]) *Node[T] {
	parent := node.parent
	left := node.left

	node.left = left.right
	if left.right != nil {
		left.right.parent = node
	}

	left.right = node
	node.parent = left

	left.parent = parent
	if parent != nil {
		if parent.left == node {
			parent.left = left
		} else {
			parent.right = left
		}
	} else {
		t.root = left
	}
	return left
}

// Find returns the node whose owner compares equal to key, or ErrNotFound.
func (t *Tree[T]) Find(key *T) (*Node[T], error) {
	node := t.root
	for node != nil {
		cmp := t.compare(key, node.owner)
		switch {
		case cmp == 0:
			return node, nil
		case cmp < 0:
			node = node.left
		default:
			node = node.right
		}
	}
	return nil, ErrNotFound
}

// isAligned2 is the Go-pointer-model parity check: the original requires
// the node's address be even, since it steals the low bit for colour. Go
// pointers to non-trivial allocations are always at least word-aligned,
// so this never fails; it is kept as an explicit, tested precondition
// rather than silently assumed away.
func isAligned2[T any](n *Node[T]) bool {
	addr := uintptr(unsafe.Pointer(n))
	return intbits.IsAligned(addr, 2)
}

// Insert adds node, owned by node.Owner(), into the tree. It returns
// ErrDuplicateKey if a node with an equal key is already present, and
// ErrMisalignedNode if node's address fails the alignment precondition
// (see isAligned2).
func (t *Tree[T]) Insert(node *Node[T]) error {
	if !isAligned2(node) {
		return ErrMisalignedNode
	}

	if t.root == nil {
		node.left, node.right, node.parent = nil, nil, nil
		node.setBlack()
		t.root = node
		t.size++
		return nil
	}

	parent := t.root
	for {
		cmp := t.compare(node.owner, parent.owner)
		if cmp == 0 {
			return ErrDuplicateKey
		}
		if cmp < 0 {
			if parent.left != nil {
				parent = parent.left
				continue
			}
			parent.left = node
			break
		}
		if parent.right != nil {
			parent = parent.right
			continue
		}
		parent.right = node
		break
	}

	node.left, node.right = nil, nil
	node.parent = parent
	node.setRed()

	if parent.isRed() {
		t.rebalanceAfterInsert(node)
	}
	t.size++
	return nil
}

// rebalanceAfterInsert repairs red-red conflicts after inserting a red leaf
// whose parent is also red, mirroring the original's rebalanceAfterInsert.
func (t *Tree[T]) rebalanceAfterInsert(inserted *Node[T]) {
	child := inserted
	node := inserted.parent

	for {
		parent := node.parent
		if node == parent.left {
			uncle := parent.right
			if uncle.isBlack() {
				if child == node.right {
					child = node
					node = t.rotateLeft(node)
				}
				node.setBlack()
				parent.setRed()
				t.rotateRight(parent)
				return
			}
			node.setBlack()
			uncle.setBlack()
			parent.setRed()
			child = parent
			node = parent.parent
		} else {
			uncle := parent.left
			if uncle.isBlack() {
				if child == node.left {
					child = node
					node = t.rotateRight(node)
				}
				node.setBlack()
				parent.setRed()
				t.rotateLeft(parent)
				return
			}
			node.setBlack()
			uncle.setBlack()
			parent.setRed()
			child = parent
			node = parent.parent
		}

		if node == nil {
			t.root.setBlack()
			return
		}
		if node.isBlack() {
			return
		}
	}
}

// rebalanceAfterRemove restores the black-height invariant after removing a
// black node with no red replacement child, via the classic four cases,
// mirroring the original's rebalanceAfterRemove.
func (t *Tree[T]) rebalanceAfterRemove(isNodeLeft bool, parent *Node[T]) {
	for {
		if isNodeLeft {
			right := parent.right
			if right.isRed() {
				right.setBlack()
				parent.setRed()
				t.rotateLeft(parent)
				right = parent.right
			}
			if right.left.isBlack() && right.right.isBlack() {
				right.setRed()
			} else {
				if right.right.isBlack() {
					right.left.setBlack()
					right = t.rotateRight(right)
				}
				if parent.isRed() {
					right.setRed()
					parent.setBlack()
				}
				right.right.setBlack()
				t.rotateLeft(parent)
				return
			}
		} else {
			left := parent.left
			if left.isRed() {
				left.setBlack()
				parent.setRed()
				t.rotateRight(parent)
				left = parent.left
			}
			if left.left.isBlack() && left.right.isBlack() {
				left.setRed()
			} else {
				if left.left.isBlack() {
					left.right.setBlack()
					left = t.rotateLeft(left)
				}
				if parent.isRed() {
					left.setRed()
					parent.setBlack()
				}
				left.left.setBlack()
				t.rotateRight(parent)
				return
			}
		}

		if parent.isRed() {
			parent.setBlack()
			return
		}
		pparent := parent.parent
		if pparent == nil {
			return
		}
		isNodeLeft = pparent.left == parent
		parent = pparent
	}
}

// Remove deletes the node whose owner compares equal to key and returns it,
// or ErrNotFound. The returned node is reset (its links cleared) and may be
// reinserted.
func (t *Tree[T]) Remove(key *T) (*Node[T], error) {
	node, err := t.Find(key)
	if err != nil {
		return nil, err
	}
	t.removeNode(node)
	t.size--
	node.reset()
	return node, nil
}

func (t *Tree[T]) removeNode(node *Node[T]) {
	var nodeParent, nodeChild *Node[T]
	var nodeWasBlack, nodeWasLeft bool

	switch {
	case node.left == nil:
		nodeParent = node.parent
		nodeChild = node.right
		nodeWasBlack = node.isBlack()
		nodeWasLeft = nodeParent != nil && nodeParent.left == node
	case node.right == nil:
		nodeParent = node.parent
		nodeChild = node.left
		nodeWasBlack = node.isBlack()
		nodeWasLeft = nodeParent != nil && nodeParent.left == node
	default:
		// Two children: splice in the in-order successor (leftmost node of
		// the right subtree, which has no left child of its own).
		successor := node.right
		for successor.left != nil {
			successor = successor.left
		}

		parent := node.parent
		if parent != nil {
			if parent.left == node {
				parent.left = successor
			} else {
				parent.right = successor
			}
		} else {
			t.root = successor
		}

		nodeParent = successor.parent
		nodeChild = successor.right
		nodeWasBlack = successor.isBlack()
		nodeWasLeft = nodeParent.left == successor

		successor.black = node.black
		successor.left = node.left
		if successor.left != nil {
			successor.left.parent = successor
		}
		if nodeParent == node {
			nodeParent = successor
		} else {
			successor.right = node.right
			if successor.right != nil {
				successor.right.parent = successor
			}
		}
		successor.parent = parent
	}

	if nodeParent != nil {
		if nodeWasLeft {
			nodeParent.left = nodeChild
		} else {
			nodeParent.right = nodeChild
		}

		if nodeWasBlack {
			if nodeChild != nil {
				nodeChild.setBlack()
			} else {
				t.rebalanceAfterRemove(nodeWasLeft, nodeParent)
			}
		}
	} else {
		t.root = nodeChild
		if nodeChild != nil {
			nodeChild.setBlack()
		}
	}
}

// UpdateKeyFunc copies key's key-relevant fields onto owner. It must not
// touch anything the tree's comparator doesn't consider part of the key:
// UpdateKey calls it once to apply newKey, and again with oldKey to undo
// that application if the reinsert under newKey fails.
type UpdateKeyFunc[T any] func(owner *T, key *T)

// UpdateKey removes the node at oldKey, applies newKey to its owner via
// update, and reinserts it under newKey. If that reinsert collides with an
// existing key, update is called again with oldKey to restore the owner's
// original key and the node is reinserted there, mirroring
// updatekey_redblacktree's rollback-on-failure behaviour (C-kern's version
// recovers internally rather than leaving the node to the caller). The
// restoring reinsert is expected to always succeed, since oldKey's slot was
// only just vacated by this same call's Remove; if it somehow also fails,
// both errors are returned together.
func (t *Tree[T]) UpdateKey(oldKey, newKey *T, update UpdateKeyFunc[T]) error {
	node, err := t.Remove(oldKey)
	if err != nil {
		return err
	}

	update(node.owner, newKey)

	if err := t.Insert(node); err != nil {
		update(node.owner, oldKey)
		if err2 := t.Insert(node); err2 != nil {
			return fmt.Errorf("rbtree: update key failed (%w) and restoring the old key also failed (%w)", err, err2)
		}
		return err
	}
	return nil
}

// FreeFunc releases any resources held by an owner once its node has left
// the tree.
type FreeFunc[T any] func(owner *T)

// FreeAll empties the tree, calling free (if non-nil) on every owner in an
// order convenient for bulk destruction — not sorted order. It uses a
// Morris-style traversal that visits every node exactly once without
// recursion and without an auxiliary stack, temporarily repurposing left
// pointers as "return to parent" links (mirroring freenodes_redblacktree).
func (t *Tree[T]) FreeAll(free FreeFunc[T]) {
	var parent *Node[T]
	node := t.root
	t.root = nil
	t.size = 0

	if node == nil {
		return
	}

	for {
		for node.left != nil {
			left := node.left
			node.left = parent
			parent = node
			node = left
		}
		if node.right != nil {
			right := node.right
			node.left = parent
			parent = node
			node = right
		} else {
			node.left, node.right, node.parent = nil, nil, nil
			if free != nil {
				free(node.owner)
			}
			if parent == nil {
				return
			}
			if parent.right == node {
				node = parent
				parent = node.left
				node.left, node.right = nil, nil
			} else {
				node = parent
				parent = node.left
				node.left = nil
			}
		}
	}
}
