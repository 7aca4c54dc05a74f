package rbtree

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	key  int
	node *Node[item]
}

func (it *item) init() {
	it.node = NewNode(it)
}

func itemCmp(a, b *item) int { return a.key - b.key }

func newTreeWithKeys(t *testing.T, keys []int) (*Tree[item], []*item) {
	t.Helper()
	tree := New(itemCmp)
	items := make([]*item, len(keys))
	for i, k := range keys {
		it := &item{key: k}
		it.init()
		items[i] = it
		require.NoError(t, tree.Insert(it.node))
	}
	require.NoError(t, tree.Verify())
	return tree, items
}

func TestInsertFindRemove(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	keys := r.Perm(500)
	tree, items := newTreeWithKeys(t, keys)
	assert.Equal(t, len(keys), tree.Len())

	for _, it := range items {
		found, err := tree.Find(&item{key: it.key})
		require.NoError(t, err)
		assert.Same(t, it.node, found)
	}

	perm := r.Perm(len(items))
	for _, idx := range perm {
		it := items[idx]
		_, err := tree.Remove(&item{key: it.key})
		require.NoError(t, err)
		require.NoError(t, tree.Verify())
	}
	assert.Equal(t, 0, tree.Len())
}

func TestInsertDuplicate(t *testing.T) {
	tree, items := newTreeWithKeys(t, []int{1, 2, 3})
	dup := &item{key: items[0].key}
	dup.init()
	err := tree.Insert(dup.node)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestFindNotFound(t *testing.T) {
	tree, _ := newTreeWithKeys(t, []int{1, 2, 3})
	_, err := tree.Find(&item{key: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveNotFound(t *testing.T) {
	tree, _ := newTreeWithKeys(t, []int{1, 2, 3})
	_, err := tree.Remove(&item{key: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func setItemKey(owner *item, key *item) { owner.key = key.key }

func TestUpdateKey(t *testing.T) {
	tree, items := newTreeWithKeys(t, []int{10, 20, 30, 40})
	oldKey := &item{key: items[1].key}
	newKey := &item{key: 25}
	err := tree.UpdateKey(oldKey, newKey, setItemKey)
	require.NoError(t, err)
	require.NoError(t, tree.Verify())

	found, err := tree.Find(&item{key: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, found.Owner().key)
}

func TestUpdateKeyCollision(t *testing.T) {
	tree, items := newTreeWithKeys(t, []int{10, 20, 30})
	oldKey := &item{key: items[1].key}
	newKey := &item{key: 30}
	err := tree.UpdateKey(oldKey, newKey, setItemKey)
	assert.ErrorIs(t, err, ErrDuplicateKey)
	require.NoError(t, tree.Verify())

	// the rollback on collision must leave the node findable under its
	// original key, not dropped from the tree or stuck under the new one.
	found, err := tree.Find(oldKey)
	require.NoError(t, err)
	assert.Equal(t, items[1].key, found.Owner().key)
	assert.Same(t, items[1].node, found)
}

func TestFreeAll(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	tree, items := newTreeWithKeys(t, r.Perm(300))
	freed := make(map[int]bool)
	tree.FreeAll(func(owner *item) { freed[owner.key] = true })
	assert.Equal(t, 0, tree.Len())
	for _, it := range items {
		assert.True(t, freed[it.key])
	}
}

// TestInsertSortedOrder exercises the worst-case already-sorted insertion
// path, which forces a long chain of rotations.
func TestInsertSortedOrder(t *testing.T) {
	n := 1000
	keys := make([]int, n)
	for i := range keys {
		keys[i] = i
	}
	tree, _ := newTreeWithKeys(t, keys)
	require.NoError(t, tree.Verify())
	assert.Equal(t, n, tree.Len())
}

func TestInOrderMatchesSorted(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	keys := r.Perm(200)
	tree, _ := newTreeWithKeys(t, keys)

	var got []int
	var walk func(n *Node[item])
	walk = func(n *Node[item]) {
		if n == nil {
			return
		}
		walk(n.left)
		got = append(got, n.owner.key)
		walk(n.right)
	}
	walk(tree.root)

	want := append([]int(nil), keys...)
	sort.Ints(want)
	assert.Equal(t, want, got)
}
