package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depscope/internal/adf"
	"depscope/internal/jira"
)

const testBaseURL = "https://example.atlassian.net"

// fakeRemote implements RemoteClient from in-memory fixtures.
type fakeRemote struct {
	records   map[string]*jira.Record
	documents map[string]*jira.Document
	searches  map[string][]jira.Record // query substring -> hits
	docErrs   map[string]error
}

func (f *fakeRemote) FetchRecord(_ context.Context, key string, _ []string) (*jira.Record, error) {
	rec, ok := f.records[key]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", key, jira.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRemote) SearchRecords(_ context.Context, query string, _ jira.Page) (*jira.SearchResult, error) {
	for sub, recs := range f.searches {
		if strings.Contains(query, sub) {
			return &jira.SearchResult{Records: recs, Total: len(recs)}, nil
		}
	}
	return &jira.SearchResult{}, nil
}

func (f *fakeRemote) FetchDocument(_ context.Context, id string) (*jira.Document, error) {
	if err, ok := f.docErrs[id]; ok {
		return nil, err
	}
	doc, ok := f.documents[id]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, jira.ErrNotFound)
	}
	return doc, nil
}

func inlineCardDoc(url string) *adf.Node {
	return &adf.Node{Type: "doc", Content: []*adf.Node{{
		Type: "paragraph",
		Content: []*adf.Node{{
			Type:  "inlineCard",
			Attrs: map[string]any{"url": url},
		}},
	}}}
}

func TestAnalyzeFullRun(t *testing.T) {
	created := time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC)
	pageURL := testBaseURL + "/wiki/pages/viewpage.action?pageId=777"

	remote := &fakeRemote{
		records: map[string]*jira.Record{
			"PROJ-1": {
				Key:            "PROJ-1",
				Summary:        "Migrate RedisCache to the new cluster",
				Status:         "In Progress",
				Description:    "short",
				Created:        created,
				DescriptionDoc: inlineCardDoc(pageURL),
				Links: []jira.Link{
					{TargetKey: "PROJ-2", Relation: "is blocked by"},
					{TargetKey: "PROJ-3", Relation: "relates to"},
				},
			},
			"PROJ-2": {
				Key:     "PROJ-2",
				Summary: "Provision kafka brokers",
				Status:  "Open",
			},
			"PROJ-3": {
				Key:     "PROJ-3",
				Summary: "Update runbook",
				Status:  "Done",
			},
		},
		documents: map[string]*jira.Document{
			"777": {ID: "777", Title: "Cache migration plan", URL: pageURL},
		},
		searches: map[string][]jira.Record{
			`text ~ "redis"`: {
				{Key: "PROJ-9", Summary: "redis failover drill", Status: "Open"},
			},
		},
	}

	a := NewAnalyzer(remote, testBaseURL, DefaultOptions())
	a.now = func() time.Time { return time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC) }

	result, err := a.Analyze(context.Background(), "PROJ-1")
	require.NoError(t, err)

	assert.Equal(t, "PROJ-1", result.Key)
	assert.Len(t, result.DependencyGraph.Nodes, 3)
	assert.Len(t, result.DependencyGraph.Edges, 2)
	assert.Empty(t, result.DependencyGraph.CircularDeps)

	require.Len(t, result.Blockers, 1)
	assert.Equal(t, "PROJ-2", result.Blockers[0].Key)
	assert.Equal(t, 20, result.Blockers[0].DaysBlocked)
	assert.Equal(t, created, result.Blockers[0].BlockedSince)

	assert.Equal(t, 2, result.Insights.TotalDependencies)
	assert.Equal(t, 1, result.Insights.BlockingChainLength)
	require.NotNil(t, result.Insights.AvgBlockerAgeDays)
	assert.Equal(t, 20.0, *result.Insights.AvgBlockerAgeDays)

	require.Len(t, result.DocumentReferences, 1)
	assert.Equal(t, "777", result.DocumentReferences[0].ID)
	assert.Equal(t, "Cache migration plan", result.DocumentReferences[0].Title)
	assert.Equal(t, pageURL, result.DocumentReferences[0].URL)

	// Root is sparse (no components, no labels, short description).
	require.NotNil(t, result.SimilarRecords)
	assert.True(t, result.SimilarRecords.IsSparse)
	require.Len(t, result.SimilarRecords.Candidates, 1)
	assert.Equal(t, "PROJ-9", result.SimilarRecords.Candidates[0].Key)
	assert.Equal(t, weightKeyword, result.SimilarRecords.Candidates[0].ConfidenceScore)

	assert.Contains(t, result.Keywords.TechnicalTerms, "RedisCache")
	assert.Contains(t, result.Keywords.TechnicalTerms, "kafka")
	assert.Contains(t, result.Keywords.SearchKeywords, "redis")
}

func TestAnalyzeRootNotFound(t *testing.T) {
	a := NewAnalyzer(&fakeRemote{records: map[string]*jira.Record{}}, testBaseURL, DefaultOptions())

	_, err := a.Analyze(context.Background(), "PROJ-404")
	require.Error(t, err)
	assert.True(t, jira.IsNotFound(err))
}

func TestAnalyzeSkipsSimilarWhenNotSparse(t *testing.T) {
	remote := &fakeRemote{
		records: map[string]*jira.Record{
			"PROJ-1": {
				Key:         "PROJ-1",
				Summary:     "well described",
				Description: strings.Repeat("all the context anyone could need ", 3),
				Components:  []jira.Component{{Name: "platform"}},
				Labels:      []string{"infra"},
			},
		},
	}

	a := NewAnalyzer(remote, testBaseURL, DefaultOptions())
	result, err := a.Analyze(context.Background(), "PROJ-1")
	require.NoError(t, err)
	assert.Nil(t, result.SimilarRecords)
}

func TestAnalyzeSimilarDisabled(t *testing.T) {
	remote := &fakeRemote{
		records: map[string]*jira.Record{
			"PROJ-1": {Key: "PROJ-1", Summary: "sparse"},
		},
	}

	opts := DefaultOptions()
	opts.DetectSparse = false
	a := NewAnalyzer(remote, testBaseURL, opts)

	result, err := a.Analyze(context.Background(), "PROJ-1")
	require.NoError(t, err)
	assert.Nil(t, result.SimilarRecords)
}

func TestAnalyzeToleratesUnresolvableDocuments(t *testing.T) {
	pageURL := testBaseURL + "/wiki/pages/viewpage.action?pageId=888"
	remote := &fakeRemote{
		records: map[string]*jira.Record{
			"PROJ-1": {
				Key:            "PROJ-1",
				Summary:        "sparse",
				DescriptionDoc: inlineCardDoc(pageURL),
			},
		},
		docErrs: map[string]error{
			"888": fmt.Errorf("page 888: %w", jira.ErrNotFound),
		},
	}

	a := NewAnalyzer(remote, testBaseURL, DefaultOptions())
	result, err := a.Analyze(context.Background(), "PROJ-1")
	require.NoError(t, err)

	require.Len(t, result.DocumentReferences, 1)
	assert.Equal(t, "888", result.DocumentReferences[0].ID)
	assert.Empty(t, result.DocumentReferences[0].Title)
	assert.Equal(t, pageURL, result.DocumentReferences[0].URL)
}

func TestAnalyzeDocumentAuthAborts(t *testing.T) {
	pageURL := testBaseURL + "/wiki/pages/viewpage.action?pageId=999"
	remote := &fakeRemote{
		records: map[string]*jira.Record{
			"PROJ-1": {
				Key:            "PROJ-1",
				Summary:        "sparse",
				DescriptionDoc: inlineCardDoc(pageURL),
			},
		},
		docErrs: map[string]error{
			"999": fmt.Errorf("page 999: %w", jira.ErrAuth),
		},
	}

	a := NewAnalyzer(remote, testBaseURL, DefaultOptions())
	_, err := a.Analyze(context.Background(), "PROJ-1")
	require.Error(t, err)
	assert.True(t, jira.IsAuth(err))
}

func TestAnalyzeResultMarshalsArrays(t *testing.T) {
	remote := &fakeRemote{
		records: map[string]*jira.Record{
			"PROJ-1": {
				Key:         "PROJ-1",
				Summary:     "well described",
				Description: strings.Repeat("x", 60),
				Components:  []jira.Component{{Name: "platform"}},
				Labels:      []string{"infra"},
			},
		},
	}

	a := NewAnalyzer(remote, testBaseURL, DefaultOptions())
	result, err := a.Analyze(context.Background(), "PROJ-1")
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	body := string(data)
	assert.NotContains(t, body, `"blockers":null`)
	assert.NotContains(t, body, `"edges":null`)
	assert.NotContains(t, body, `"circular_deps":null`)
	assert.NotContains(t, body, `"document_references":null`)
	assert.NotContains(t, body, "similar_records")
}
