package graph

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"depscope/internal/jira"
)

// fakeFetcher serves records from a map and injects failures by key.
type fakeFetcher struct {
	records  map[string]*jira.Record
	failures map[string]error
	calls    []string
}

func (f *fakeFetcher) FetchRecord(_ context.Context, key string, _ []string) (*jira.Record, error) {
	f.calls = append(f.calls, key)
	if err, ok := f.failures[key]; ok {
		return nil, err
	}
	rec, ok := f.records[key]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", key, jira.ErrNotFound)
	}
	// Copy so traversals cannot alias each other's records.
	cp := *rec
	return &cp, nil
}

func record(key string, links ...jira.Link) *jira.Record {
	return &jira.Record{Key: key, Summary: "summary " + key, Status: "Open", Links: links}
}

func link(target, relation string) jira.Link {
	return jira.Link{TargetKey: target, Relation: relation}
}

func nodeKeys(g *Graph) []string {
	keys := make([]string, 0, len(g.Nodes))
	for k := range g.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestTraverseAcyclic(t *testing.T) {
	f := &fakeFetcher{records: map[string]*jira.Record{
		"A": record("A", link("B", "blocks"), link("C", "relates to")),
		"B": record("B", link("D", "blocks")),
		"C": record("C"),
		"D": record("D"),
	}}

	g, err := Traverse(context.Background(), f, "A", 3)
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}

	if got, want := nodeKeys(g), []string{"A", "B", "C", "D"}; !reflect.DeepEqual(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}
	if len(g.Edges) != 3 {
		t.Errorf("edges = %v, want 3", g.Edges)
	}
	if len(g.CircularDeps) != 0 {
		t.Errorf("circular deps = %v, want none", g.CircularDeps)
	}
}

func TestTraverseDepthBoundDanglingEdge(t *testing.T) {
	f := &fakeFetcher{records: map[string]*jira.Record{
		"A": record("A", link("B", "blocks")),
		"B": record("B"),
	}}

	g, err := Traverse(context.Background(), f, "A", 1)
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}

	if got, want := nodeKeys(g), []string{"A"}; !reflect.DeepEqual(got, want) {
		t.Errorf("nodes = %v, want %v (B must not be expanded)", got, want)
	}
	want := []Edge{{From: "A", To: "B", Type: "blocks"}}
	if !reflect.DeepEqual(g.Edges, want) {
		t.Errorf("edges = %v, want %v (dangling edge still recorded)", g.Edges, want)
	}
}

func TestTraverseCycle(t *testing.T) {
	f := &fakeFetcher{records: map[string]*jira.Record{
		"A": record("A", link("B", "is blocked by")),
		"B": record("B", link("A", "blocks")),
	}}

	g, err := Traverse(context.Background(), f, "A", 2)
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}

	if got, want := nodeKeys(g), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("nodes = %v, want %v", got, want)
	}
	wantEdges := []Edge{
		{From: "A", To: "B", Type: "is blocked by"},
		{From: "B", To: "A", Type: "blocks"},
	}
	if !reflect.DeepEqual(g.Edges, wantEdges) {
		t.Errorf("edges = %v, want %v", g.Edges, wantEdges)
	}
	wantCycles := []string{"A (circular dependency detected)"}
	if !reflect.DeepEqual(g.CircularDeps, wantCycles) {
		t.Errorf("circular deps = %v, want %v", g.CircularDeps, wantCycles)
	}
}

func TestTraverseCycleMarkerDeduplicated(t *testing.T) {
	// Two paths back to A: only one marker.
	f := &fakeFetcher{records: map[string]*jira.Record{
		"A": record("A", link("B", "relates to"), link("C", "relates to")),
		"B": record("B", link("A", "relates to")),
		"C": record("C", link("A", "relates to")),
	}}

	g, err := Traverse(context.Background(), f, "A", 3)
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}
	if len(g.CircularDeps) != 1 {
		t.Errorf("circular deps = %v, want exactly one marker", g.CircularDeps)
	}
}

func TestTraverseOmitsUnfetchableNodes(t *testing.T) {
	f := &fakeFetcher{
		records: map[string]*jira.Record{
			"A": record("A", link("B", "blocks"), link("C", "relates to")),
			"C": record("C"),
		},
	}

	g, err := Traverse(context.Background(), f, "A", 3)
	if err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}

	if got, want := nodeKeys(g), []string{"A", "C"}; !reflect.DeepEqual(got, want) {
		t.Errorf("nodes = %v, want %v (B omitted silently)", got, want)
	}
	if len(g.Edges) != 2 {
		t.Errorf("edges = %v, want both edges kept", g.Edges)
	}
}

func TestTraverseAuthAborts(t *testing.T) {
	f := &fakeFetcher{
		records: map[string]*jira.Record{
			"A": record("A", link("B", "blocks")),
		},
		failures: map[string]error{
			"B": fmt.Errorf("status 401: %w", jira.ErrAuth),
		},
	}

	_, err := Traverse(context.Background(), f, "A", 3)
	if !jira.IsAuth(err) {
		t.Errorf("error = %v, want auth failure to abort traversal", err)
	}
}

func TestTraverseIdempotent(t *testing.T) {
	records := map[string]*jira.Record{
		"A": record("A", link("B", "blocks"), link("C", "relates to")),
		"B": record("B", link("C", "blocks"), link("A", "is blocked by")),
		"C": record("C"),
	}

	run := func() *Graph {
		g, err := Traverse(context.Background(), &fakeFetcher{records: records}, "A", 4)
		if err != nil {
			t.Fatalf("Traverse() error: %v", err)
		}
		return g
	}

	first, second := run(), run()
	if !reflect.DeepEqual(nodeKeys(first), nodeKeys(second)) {
		t.Errorf("node sets differ: %v vs %v", nodeKeys(first), nodeKeys(second))
	}
	if !reflect.DeepEqual(first.Edges, second.Edges) {
		t.Errorf("edge lists differ: %v vs %v", first.Edges, second.Edges)
	}
	if !reflect.DeepEqual(first.CircularDeps, second.CircularDeps) {
		t.Errorf("cycle lists differ: %v vs %v", first.CircularDeps, second.CircularDeps)
	}
}

func TestTraverseEachKeyFetchedOnce(t *testing.T) {
	f := &fakeFetcher{records: map[string]*jira.Record{
		"A": record("A", link("B", "relates to"), link("C", "relates to")),
		"B": record("B", link("C", "relates to")),
		"C": record("C"),
	}}

	if _, err := Traverse(context.Background(), f, "A", 5); err != nil {
		t.Fatalf("Traverse() error: %v", err)
	}

	seen := make(map[string]int)
	for _, key := range f.calls {
		seen[key]++
	}
	for key, n := range seen {
		if n != 1 {
			t.Errorf("key %s fetched %d times, want 1", key, n)
		}
	}
}

func TestClampDepth(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultMaxDepth},
		{-2, DefaultMaxDepth},
		{1, 1},
		{10, 10},
		{99, MaxDepth},
	}
	for _, tt := range tests {
		if got := ClampDepth(tt.in); got != tt.want {
			t.Errorf("ClampDepth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
