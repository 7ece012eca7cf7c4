package graph

import (
	"context"
	"fmt"

	"depscope/internal/jira"
)

const (
	// Depth bounds for traversal. DefaultMaxDepth matches the analyze config
	// default.
	MinDepth        = 1
	MaxDepth        = 10
	DefaultMaxDepth = 3
)

// ClampDepth forces d into the supported traversal range.
func ClampDepth(d int) int {
	if d < MinDepth {
		return DefaultMaxDepth
	}
	if d > MaxDepth {
		return MaxDepth
	}
	return d
}

// traverser holds the per-invocation state of one depth-first walk. It is
// never shared: concurrent analyses each build their own.
type traverser struct {
	fetcher  Fetcher
	maxDepth int

	visited    map[string]bool // fully processed (children explored or errored out)
	visiting   map[string]bool // on the active recursion path
	seenCycles map[string]bool // dedupe for circular markers
	graph      *Graph
}

// Traverse walks the link graph depth-first from root, to at most maxDepth
// hops, recording nodes, edges, and circular-dependency markers.
//
// Per-node fetch failures are contained: a record that cannot be fetched is
// omitted from the graph and its siblings continue. Authentication failures
// abort the whole traversal; a partial graph is not considered safe when
// credentials are rejected.
func Traverse(ctx context.Context, f Fetcher, root string, maxDepth int) (*Graph, error) {
	t := &traverser{
		fetcher:    f,
		maxDepth:   ClampDepth(maxDepth),
		visited:    make(map[string]bool),
		visiting:   make(map[string]bool),
		seenCycles: make(map[string]bool),
		graph:      newGraph(),
	}
	if err := t.visit(ctx, root, 1); err != nil {
		return nil, err
	}
	return t.graph, nil
}

func (t *traverser) visit(ctx context.Context, key string, depth int) error {
	if t.visiting[key] {
		// Back-edge to an in-progress ancestor. Checked before the depth
		// prune so a cycle closing at the depth boundary is still reported.
		if !t.seenCycles[key] {
			t.seenCycles[key] = true
			t.graph.CircularDeps = append(t.graph.CircularDeps,
				fmt.Sprintf("%s (circular dependency detected)", key))
		}
		return nil
	}

	if depth > t.maxDepth || t.visited[key] {
		return nil
	}

	t.visiting[key] = true
	defer func() {
		delete(t.visiting, key)
		t.visited[key] = true
	}()

	rec, err := t.fetcher.FetchRecord(ctx, key, jira.LinkFields)
	if err != nil {
		if jira.IsAuth(err) {
			return fmt.Errorf("traverse %s: %w", key, err)
		}
		// Not found, transient-exhausted, malformed: omit the node, keep going.
		return nil
	}

	t.graph.addNode(rec)

	for _, link := range rec.Links {
		// Edges are recorded even when the target will not be expanded,
		// so depth-limited targets show up as dangling edges.
		t.graph.Edges = append(t.graph.Edges, Edge{
			From: key,
			To:   link.TargetKey,
			Type: link.Relation,
		})
		if err := t.visit(ctx, link.TargetKey, depth+1); err != nil {
			return err
		}
	}

	return nil
}
