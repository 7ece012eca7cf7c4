package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// maxAttempts caps retries for transient (429/5xx) failures.
	maxAttempts = 3

	defaultTimeout = 30 * time.Second

	userAgent = "depscope/1.0"
)

// DefaultCommentWindow bounds how many recent comments a Record carries.
const DefaultCommentWindow = 5

// minimumFields is the projection required to normalize a Record. Caller
// field sets are unioned with it so a partial projection can never produce a
// partially-populated Record.
var minimumFields = []string{
	"summary", "status", "issuetype", "description", "labels",
	"components", "assignee", "reporter", "priority", "created", "comment",
}

// LinkFields is the extra projection the traversal needs to discover edges.
var LinkFields = []string{"issuelinks"}

// Client provides HTTP access to one Atlassian site.
type Client struct {
	BaseURL    string
	Username   string
	APIToken   string
	HTTPClient *http.Client

	// CommentWindow bounds the comment slice on normalized records.
	// Zero means DefaultCommentWindow.
	CommentWindow int
}

// NewClient creates a client for the given site. Cloud sites authenticate
// with basic auth (username + API token); server installs use a bearer token.
func NewClient(baseURL, username, apiToken string) *Client {
	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Username: username,
		APIToken: apiToken,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

func (c *Client) commentWindow() int {
	if c.CommentWindow > 0 {
		return c.CommentWindow
	}
	return DefaultCommentWindow
}

// FetchRecord fetches a single issue by key and normalizes it. The caller's
// field projection is unioned with the minimum set needed for normalization.
func (c *Client) FetchRecord(ctx context.Context, key string, fields []string) (*Record, error) {
	params := url.Values{
		"fields": {strings.Join(unionFields(minimumFields, fields), ",")},
	}
	apiURL := fmt.Sprintf("%s/rest/api/3/issue/%s?%s", c.BaseURL, url.PathEscape(key), params.Encode())

	body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch record %s: %w", key, err)
	}

	var payload issuePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse record %s: %w", key, err)
	}

	return normalizeIssue(&payload, c.commentWindow()), nil
}

// SearchRecords runs a JQL query and returns one page of normalized records.
// The search endpoint has migrated over time; the chain below tries the
// current shape first and falls through to the legacy ones, returning the
// first response that parses. If every shape fails, the last error propagates.
func (c *Client) SearchRecords(ctx context.Context, query string, page Page) (*SearchResult, error) {
	if page.MaxResults <= 0 {
		page.MaxResults = 50
	}
	params := url.Values{
		"jql":        {query},
		"fields":     {strings.Join(minimumFields, ",")},
		"startAt":    {strconv.Itoa(page.StartAt)},
		"maxResults": {strconv.Itoa(page.MaxResults)},
	}
	endpoints := []string{
		fmt.Sprintf("%s/rest/api/3/search/jql?%s", c.BaseURL, params.Encode()),
		fmt.Sprintf("%s/rest/api/3/search?%s", c.BaseURL, params.Encode()),
		fmt.Sprintf("%s/rest/api/2/search?%s", c.BaseURL, params.Encode()),
	}

	var lastErr error
	for _, apiURL := range endpoints {
		body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			if IsAuth(err) {
				return nil, fmt.Errorf("search records: %w", err)
			}
			lastErr = err
			continue
		}

		var payload searchPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			lastErr = fmt.Errorf("parse search response: %w", err)
			continue
		}

		result := &SearchResult{Total: payload.Total}
		for i := range payload.Issues {
			result.Records = append(result.Records, *normalizeIssue(&payload.Issues[i], c.commentWindow()))
		}
		if result.Total == 0 {
			result.Total = len(result.Records)
		}
		return result, nil
	}

	return nil, fmt.Errorf("search records: %w", lastErr)
}

// FetchDocument fetches a Confluence page by id, trying the v2 pages API
// first and falling back to the legacy content API.
func (c *Client) FetchDocument(ctx context.Context, id string) (*Document, error) {
	endpoints := []string{
		fmt.Sprintf("%s/wiki/api/v2/pages/%s", c.BaseURL, url.PathEscape(id)),
		fmt.Sprintf("%s/wiki/rest/api/content/%s", c.BaseURL, url.PathEscape(id)),
	}

	var lastErr error
	for _, apiURL := range endpoints {
		body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			if IsAuth(err) {
				return nil, fmt.Errorf("fetch document %s: %w", id, err)
			}
			lastErr = err
			continue
		}

		var payload pagePayload
		if err := json.Unmarshal(body, &payload); err != nil {
			lastErr = fmt.Errorf("parse document response: %w", err)
			continue
		}
		return c.normalizePage(&payload), nil
	}

	return nil, fmt.Errorf("fetch document %s: %w", id, lastErr)
}

// SearchDocuments runs a CQL text search over Confluence pages.
func (c *Client) SearchDocuments(ctx context.Context, query string, page Page) (*DocumentSearchResult, error) {
	if page.MaxResults <= 0 {
		page.MaxResults = 25
	}
	cql := fmt.Sprintf("type=page AND text ~ %q", query)
	params := url.Values{
		"cql":   {cql},
		"start": {strconv.Itoa(page.StartAt)},
		"limit": {strconv.Itoa(page.MaxResults)},
	}
	endpoints := []string{
		fmt.Sprintf("%s/wiki/rest/api/content/search?%s", c.BaseURL, params.Encode()),
		fmt.Sprintf("%s/wiki/rest/api/search?%s", c.BaseURL, params.Encode()),
	}

	var lastErr error
	for _, apiURL := range endpoints {
		body, err := c.doRequest(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			if IsAuth(err) {
				return nil, fmt.Errorf("search documents: %w", err)
			}
			lastErr = err
			continue
		}

		var payload pageSearchPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			lastErr = fmt.Errorf("parse document search response: %w", err)
			continue
		}

		result := &DocumentSearchResult{Total: payload.TotalSize}
		for i := range payload.Results {
			entry := &payload.Results[i]
			if entry.Content != nil {
				// Legacy /rest/api/search wraps the page in a content envelope.
				entry = entry.Content
			}
			result.Documents = append(result.Documents, *c.normalizePage(entry))
		}
		if result.Total == 0 {
			result.Total = len(result.Documents)
		}
		return result, nil
	}

	return nil, fmt.Errorf("search documents: %w", lastErr)
}

// doRequest executes an authenticated request, retrying transient failures
// (429/5xx) with exponential backoff up to maxAttempts, honoring a
// server-supplied Retry-After delay when present. 404 and 401/403 are
// permanent and surface as ErrNotFound / ErrAuth.
func (c *Client) doRequest(ctx context.Context, method, apiURL string, reqBody []byte) ([]byte, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("jira URL not configured")
	}
	if c.APIToken == "" {
		return nil, fmt.Errorf("jira API token not configured")
	}

	// BackOff implementations are stateful; always build a fresh one.
	hinted := &serverHintBackoff{BackOff: backoff.NewExponentialBackOff()}
	bo := backoff.WithContext(backoff.WithMaxRetries(hinted, maxAttempts-1), ctx)

	var respBody []byte
	err := backoff.Retry(func() error {
		body, err := c.doOnce(ctx, method, apiURL, reqBody, hinted)
		if err != nil {
			if IsTransient(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		respBody = body
		return nil
	}, bo)
	if err != nil {
		return nil, err
	}
	return respBody, nil
}

// doOnce performs a single HTTP exchange and classifies the response.
func (c *Client) doOnce(ctx context.Context, method, apiURL string, reqBody []byte, hinted *serverHintBackoff) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.setAuth(req)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &TransientError{Body: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", apiURL, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrAuth)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		hinted.hint = parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &TransientError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 200)}
	default:
		return nil, fmt.Errorf("jira API returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
}

// setAuth sets the appropriate authentication header. Cloud sites take basic
// auth with an API token; without a username the token is sent as a bearer
// PAT, which is what server/DC installs expect.
func (c *Client) setAuth(req *http.Request) {
	if c.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.APIToken))
		req.Header.Set("Authorization", "Basic "+auth)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}
}

// serverHintBackoff prefers a server-supplied Retry-After delay over the
// exponential schedule for the next wait only.
type serverHintBackoff struct {
	backoff.BackOff
	hint time.Duration
}

func (b *serverHintBackoff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if b.hint > d {
		d = b.hint
	}
	b.hint = 0
	return d
}

// parseRetryAfter handles both the delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// unionFields merges the minimum projection with caller-supplied extras,
// preserving order and dropping duplicates.
func unionFields(minimum, extra []string) []string {
	seen := make(map[string]bool, len(minimum)+len(extra))
	out := make([]string, 0, len(minimum)+len(extra))
	for _, f := range minimum {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range extra {
		if f != "" && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
