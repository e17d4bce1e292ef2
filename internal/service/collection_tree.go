package service

import (
	"sort"
	"sync"

	"github.com/dmvelichko/refsync/models"
)

// CollectionNode is one node of the reconstructed collection forest.
type CollectionNode struct {
	// Identifier is the library-qualified node id ("<library>/<key>"),
	// unique across the whole tree.
	Identifier string

	LibraryID models.LibraryIdentifier
	Key       string
	Name      string

	Children []*CollectionNode
}

// CollectionTree holds the collection forest of all libraries plus the
// UI-relevant state that must survive rebuilds: which nodes are
// collapsed, and lazily computed item counts.
//
// Roots are kept grouped by library in one flat slice, so a rebuild of a
// single library replaces a contiguous range instead of the whole tree.
type CollectionTree struct {
	mu sync.RWMutex

	roots       []*CollectionNode
	collections map[string]models.Collection
	collapsed   map[string]bool
	counts      map[string]int
}

// NewCollectionTree returns an empty tree.
func NewCollectionTree() *CollectionTree {
	return &CollectionTree{
		collections: make(map[string]models.Collection),
		collapsed:   make(map[string]bool),
		counts:      make(map[string]int),
	}
}

func nodeIdentifier(library models.LibraryIdentifier, key string) string {
	return library.String() + "/" + key
}

// buildForest assembles the forest of one library from flat parent-key
// relations. Children are sorted by name. A parent reference that is
// missing or would close a cycle makes the node a root; the server
// rejects cycles, so this is purely defensive on the client.
func buildForest(library models.LibraryIdentifier, collections []models.Collection) []*CollectionNode {
	nodes := make(map[string]*CollectionNode, len(collections))
	for _, c := range collections {
		nodes[c.Key] = &CollectionNode{
			Identifier: nodeIdentifier(library, c.Key),
			LibraryID:  library,
			Key:        c.Key,
			Name:       c.Name,
		}
	}

	parents := make(map[string]string, len(collections))
	for _, c := range collections {
		if c.ParentKey != nil {
			parents[c.Key] = *c.ParentKey
		}
	}

	var roots []*CollectionNode
	for _, c := range collections {
		node := nodes[c.Key]
		if c.ParentKey == nil {
			roots = append(roots, node)
			continue
		}

		parent, ok := nodes[*c.ParentKey]
		if !ok || createsCycle(parents, c.Key) {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortNodes(roots)
	for _, n := range nodes {
		sortNodes(n.Children)
	}

	return roots
}

// createsCycle walks the parent chain from key and reports whether it
// loops back onto itself.
func createsCycle(parents map[string]string, key string) bool {
	seen := map[string]bool{key: true}
	for {
		parent, ok := parents[key]
		if !ok {
			return false
		}
		if seen[parent] {
			return true
		}
		seen[parent] = true
		key = parent
	}
}

func sortNodes(nodes []*CollectionNode) {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
}

// Replace rebuilds the subtree of one library from its flat collection
// list, splicing it into the root slice at the position the library's
// previous nodes occupied. Collapse state for identifiers still present
// is preserved; entries for removed identifiers are dropped. Other
// libraries' nodes and collapse entries are untouched.
func (t *CollectionTree) Replace(library models.LibraryIdentifier, collections []models.Collection) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := buildForest(library, collections)

	// Locate the contiguous root range belonging to this library.
	start, end := -1, -1
	for i, node := range t.roots {
		if node.LibraryID == library {
			if start == -1 {
				start = i
			}
			end = i + 1
		} else if start != -1 {
			break
		}
	}
	if start == -1 {
		start, end = len(t.roots), len(t.roots)
	}

	spliced := make([]*CollectionNode, 0, len(t.roots)-(end-start)+len(fresh))
	spliced = append(spliced, t.roots[:start]...)
	spliced = append(spliced, fresh...)
	spliced = append(spliced, t.roots[end:]...)
	t.roots = spliced

	// Refresh the collection index; drop collapse state and memoized
	// counts only for this library's removed nodes, leaving other
	// libraries' entries byte-for-byte untouched.
	alive := make(map[string]bool, len(collections))
	for _, c := range collections {
		id := nodeIdentifier(library, c.Key)
		alive[id] = true
		t.collections[id] = c
	}
	for id, c := range t.collections {
		if c.LibraryID == library && !alive[id] {
			delete(t.collections, id)
			delete(t.collapsed, id)
		}
	}

	// Counts are rebuilt lazily after any structural change.
	for id := range t.counts {
		if c, ok := t.collections[id]; !ok || c.LibraryID == library {
			delete(t.counts, id)
		}
	}
}

// Roots returns the current root nodes in display order.
func (t *CollectionTree) Roots() []*CollectionNode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*CollectionNode, len(t.roots))
	copy(out, t.roots)
	return out
}

// Collection returns the collection behind a node identifier.
func (t *CollectionTree) Collection(identifier string) (models.Collection, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.collections[identifier]
	return c, ok
}

// Collapsed reports whether the node is collapsed. Unknown identifiers
// default to expanded.
func (t *CollectionTree) Collapsed(identifier string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.collapsed[identifier]
}

// SetCollapsed records the collapse state of a node.
func (t *CollectionTree) SetCollapsed(identifier string, collapsed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.collapsed[identifier] = collapsed
}

// CollapsedStates returns a copy of the collapse map, for consumers that
// diff the tree.
func (t *CollectionTree) CollapsedStates() map[string]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]bool, len(t.collapsed))
	for k, v := range t.collapsed {
		out[k] = v
	}
	return out
}

// ItemCount returns the number of items in the node's collection,
// computing it on first request via counter and memoizing until the
// library is next rebuilt. Counting is comparatively expensive, so it is
// never part of base reconciliation.
func (t *CollectionTree) ItemCount(identifier string, counter func(models.Collection) int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n, ok := t.counts[identifier]; ok {
		return n
	}
	c, ok := t.collections[identifier]
	if !ok {
		return 0
	}

	n := counter(c)
	t.counts[identifier] = n
	return n
}
