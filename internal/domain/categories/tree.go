package categories

import "github.com/google/uuid"

// DefaultMaxDepth bounds how deep BuildTree nests before truncating.
const DefaultMaxDepth = 32

// Treeable is anything that can hang in the category forest.
type Treeable interface {
	NodeID() uuid.UUID
	NodeParentID() *uuid.UUID
}

func (c *Category) NodeID() uuid.UUID        { return c.ID }
func (c *Category) NodeParentID() *uuid.UUID { return c.ParentID }

type TreeNode[T Treeable] struct {
	Category T              `json:"category"`
	Depth    int            `json:"depth"`
	Children []*TreeNode[T] `json:"children"`
}

// BuildTree converts a flat list into a forest. Rows whose parent is missing
// from the input become roots. Every row appears at most once: a row already
// placed is skipped, rows deeper than maxDepth are dropped with their subtree,
// and rows that can only be reached through a cycle are promoted to roots.
func BuildTree[T Treeable](items []T, maxDepth int) []*TreeNode[T] {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	// First pass: index rows and group them under their parent.
	present := make(map[uuid.UUID]bool, len(items))
	for _, it := range items {
		present[it.NodeID()] = true
	}

	children := make(map[uuid.UUID][]T)
	var roots []T
	for _, it := range items {
		pid := it.NodeParentID()
		if pid == nil || !present[*pid] {
			roots = append(roots, it)
			continue
		}
		children[*pid] = append(children[*pid], it)
	}

	// Second pass: walk from the roots with a visited set.
	visited := make(map[uuid.UUID]bool, len(items))

	var discard func(id uuid.UUID)
	discard = func(id uuid.UUID) {
		stack := []uuid.UUID{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, child := range children[cur] {
				if !visited[child.NodeID()] {
					visited[child.NodeID()] = true
					stack = append(stack, child.NodeID())
				}
			}
		}
	}

	var walk func(it T, depth int) *TreeNode[T]
	walk = func(it T, depth int) *TreeNode[T] {
		visited[it.NodeID()] = true
		node := &TreeNode[T]{Category: it, Depth: depth, Children: []*TreeNode[T]{}}
		if depth+1 >= maxDepth {
			discard(it.NodeID())
			return node
		}
		for _, child := range children[it.NodeID()] {
			if visited[child.NodeID()] {
				continue
			}
			node.Children = append(node.Children, walk(child, depth+1))
		}
		return node
	}

	forest := make([]*TreeNode[T], 0, len(roots))
	for _, it := range roots {
		if visited[it.NodeID()] {
			continue
		}
		forest = append(forest, walk(it, 0))
	}

	for _, it := range items {
		if !visited[it.NodeID()] {
			forest = append(forest, walk(it, 0))
		}
	}

	return forest
}
