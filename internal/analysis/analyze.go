package analysis

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"depscope/internal/adf"
	"depscope/internal/graph"
	"depscope/internal/jira"
)

// Result keyword bounds: downstream consumers take a first-seen-order prefix,
// not the full mined sets.
const (
	maxResultTerms    = 10
	maxResultKeywords = 15
)

// docResolveParallelism bounds concurrent Confluence page lookups when
// resolving extracted references.
const docResolveParallelism = 4

// RemoteClient is the collaborator interface the orchestrator consumes.
// *jira.Client implements it; tests substitute fakes.
type RemoteClient interface {
	FetchRecord(ctx context.Context, key string, fields []string) (*jira.Record, error)
	SearchRecords(ctx context.Context, query string, page jira.Page) (*jira.SearchResult, error)
	FetchDocument(ctx context.Context, id string) (*jira.Document, error)
}

// Options tune one analysis run.
type Options struct {
	// MaxDepth bounds the dependency traversal (1-10).
	MaxDepth int
	// SimilarLimit caps similarity candidates.
	SimilarLimit int
	// DetectSparse enables the similarity search for under-described roots.
	DetectSparse bool
}

// DefaultOptions returns the standard knob values.
func DefaultOptions() Options {
	return Options{
		MaxDepth:     graph.DefaultMaxDepth,
		SimilarLimit: DefaultSimilarLimit,
		DetectSparse: true,
	}
}

// Analyzer composes traversal, blocker analysis, document extraction, keyword
// mining, and similarity search into one result. All working state lives in
// the invocation; an Analyzer is safe for concurrent use.
type Analyzer struct {
	client  RemoteClient
	baseURL string
	opts    Options

	now func() time.Time // test seam
}

// NewAnalyzer builds an Analyzer. baseURL is the Atlassian site root, used to
// recognize and synthesize Confluence URLs.
func NewAnalyzer(client RemoteClient, baseURL string, opts Options) *Analyzer {
	return &Analyzer{
		client:  client,
		baseURL: baseURL,
		opts:    opts,
		now:     time.Now,
	}
}

// Analyze runs the full dependency analysis for the record with the given key.
func (a *Analyzer) Analyze(ctx context.Context, key string) (*Result, error) {
	root, err := a.client.FetchRecord(ctx, key, jira.LinkFields)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", key, err)
	}

	g, err := graph.Traverse(ctx, a.client, key, a.opts.MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", key, err)
	}

	blockers := FindBlockers(g, key, root.Created, a.now())
	insights := BuildInsights(g, key, blockers)

	refs, err := a.collectDocumentRefs(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", key, err)
	}

	var similar *SimilarRecords
	if a.opts.DetectSparse && IsSparse(root) {
		similar, err = FindSimilar(ctx, a.client, root, a.opts.SimilarLimit)
		if err != nil {
			return nil, fmt.Errorf("analyze %s: %w", key, err)
		}
	}

	keywords := ExtractKeywords(a.gatherTexts(root, g)...)

	return &Result{
		Key: key,
		DependencyGraph: GraphResult{
			Nodes:        g.NodeList(),
			Edges:        orEmpty(g.Edges),
			CircularDeps: orEmpty(g.CircularDeps),
		},
		Blockers:           orEmpty(blockers),
		DocumentReferences: orEmpty(refs),
		Insights:           insights,
		SimilarRecords:     similar,
		Keywords: Keywords{
			TechnicalTerms: orEmpty(keywords.TopTerms(maxResultTerms)),
			SearchKeywords: orEmpty(keywords.TopKeywords(maxResultKeywords)),
		},
	}, nil
}

// gatherTexts collects the root's summary, description, and comment window,
// plus every graph node's summary and description.
func (a *Analyzer) gatherTexts(root *jira.Record, g *graph.Graph) []string {
	texts := []string{root.Summary, root.Description}
	for _, c := range root.Comments {
		texts = append(texts, c.Body)
	}
	for _, node := range g.NodeList() {
		if node.Key == root.Key {
			continue
		}
		texts = append(texts, node.Summary, node.Description)
	}
	return texts
}

// collectDocumentRefs extracts Confluence references from the root's
// description and comments, then resolves titles for references that carry a
// page id. Per-page resolution failures leave the reference as extracted;
// auth failures abort.
func (a *Analyzer) collectDocumentRefs(ctx context.Context, root *jira.Record) ([]adf.DocumentReference, error) {
	var refs []adf.DocumentReference
	seen := make(map[string]bool)

	merge := func(found []adf.DocumentReference) {
		for _, ref := range found {
			if seen[ref.URL] {
				continue
			}
			seen[ref.URL] = true
			refs = append(refs, ref)
		}
	}

	merge(adf.ExtractDocumentRefs(root.DescriptionDoc, a.baseURL))
	for _, comment := range root.Comments {
		merge(adf.ExtractDocumentRefs(comment.BodyDoc, a.baseURL))
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(docResolveParallelism)
	for i := range refs {
		if refs[i].ID == "" || refs[i].Title != "" {
			continue
		}
		grp.Go(func() error {
			doc, err := a.client.FetchDocument(grpCtx, refs[i].ID)
			if err != nil {
				if jira.IsAuth(err) {
					return err
				}
				return nil // keep the reference as extracted
			}
			refs[i].Title = doc.Title
			if refs[i].URL == "" {
				refs[i].URL = doc.URL
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return refs, nil
}

// orEmpty turns a nil slice into an empty one so the JSON result carries
// arrays, not nulls.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
