// Package graph builds bounded-depth dependency graphs over linked Jira
// records, with cycle detection.
package graph

import (
	"context"

	"depscope/internal/jira"
)

// Fetcher is the slice of the remote client the traversal needs.
type Fetcher interface {
	FetchRecord(ctx context.Context, key string, fields []string) (*jira.Record, error)
}

// Edge is a directed, labeled relation between two record keys. Type carries
// the direction-specific link name verbatim. The target key may be absent
// from Nodes (a dangling edge) when it was never expanded; consumers must
// tolerate that.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// Graph is the result of one traversal. Every key in Nodes was fully fetched
// and processed exactly once; Edges keeps the order links were returned.
type Graph struct {
	Nodes        map[string]*jira.Record `json:"nodes"`
	Edges        []Edge                  `json:"edges"`
	CircularDeps []string                `json:"circular_deps"`

	// order remembers first insertion into Nodes, for deterministic output.
	order []string
}

func newGraph() *Graph {
	return &Graph{Nodes: make(map[string]*jira.Record)}
}

func (g *Graph) addNode(rec *jira.Record) {
	if _, ok := g.Nodes[rec.Key]; ok {
		return
	}
	g.Nodes[rec.Key] = rec
	g.order = append(g.order, rec.Key)
}

// NodeList returns the graph's records in first-insertion order.
func (g *Graph) NodeList() []jira.Record {
	out := make([]jira.Record, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, *g.Nodes[key])
	}
	return out
}

// OutboundEdges returns the edges originating at key, in insertion order.
func (g *Graph) OutboundEdges(key string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == key {
			out = append(out, e)
		}
	}
	return out
}
