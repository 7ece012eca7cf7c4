package adf

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DocumentReference is an extracted pointer to a Confluence page.
type DocumentReference struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
}

var pagePathPattern = regexp.MustCompile(`/pages/(\d+)`)

// ExtractDocumentRefs walks the tree in document order and collects every
// embedded Confluence reference: inline cards whose URL targets the site,
// embedded-page cards, macro/extension nodes carrying a content id, and link
// marks. References deduplicate by URL. baseURL is the Atlassian site root
// (https://company.atlassian.net).
func ExtractDocumentRefs(root *Node, baseURL string) []DocumentReference {
	if root == nil {
		return nil
	}
	e := &linkExtractor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		seen:    make(map[string]bool),
	}
	if u, err := url.Parse(e.baseURL); err == nil {
		e.host = u.Host
	}
	e.walk(root)
	return e.refs
}

type linkExtractor struct {
	baseURL string
	host    string
	seen    map[string]bool
	refs    []DocumentReference
}

func (e *linkExtractor) walk(n *Node) {
	if n == nil {
		return
	}

	switch n.Type {
	case "inlineCard":
		if u := n.stringAttr("url"); e.targetsSite(u) {
			e.emit(DocumentReference{ID: pageIDFromURL(u), URL: u})
		}
	case "embedCard", "blockCard":
		u := n.stringAttr("url")
		id := n.stringAttr("id")
		switch {
		case e.targetsSite(u):
			e.emit(DocumentReference{ID: firstNonEmpty(id, pageIDFromURL(u)), URL: u})
		case u == "" && id != "":
			e.emit(DocumentReference{ID: id, URL: e.pageURL(id)})
		}
	case "extension", "inlineExtension", "bodiedExtension":
		if id := extensionContentID(n); id != "" {
			e.emit(DocumentReference{ID: id, URL: e.pageURL(id)})
		}
	}

	for _, mark := range n.Marks {
		if mark.Type != "link" {
			continue
		}
		if href, ok := mark.Attrs["href"].(string); ok && e.targetsSite(href) {
			e.emit(DocumentReference{ID: pageIDFromURL(href), URL: href})
		}
	}

	// Descend regardless of whether this node produced a reference.
	for _, child := range n.Content {
		e.walk(child)
	}
}

func (e *linkExtractor) emit(ref DocumentReference) {
	if ref.URL == "" || e.seen[ref.URL] {
		return
	}
	e.seen[ref.URL] = true
	e.refs = append(e.refs, ref)
}

// targetsSite reports whether u points at the configured Confluence instance,
// by host or by the /wiki/ path segment.
func (e *linkExtractor) targetsSite(u string) bool {
	if u == "" {
		return false
	}
	if e.host != "" && strings.Contains(u, e.host) {
		return true
	}
	return strings.Contains(u, "/wiki/")
}

// pageURL synthesizes the canonical view URL for a page id.
func (e *linkExtractor) pageURL(id string) string {
	return fmt.Sprintf("%s/wiki/pages/viewpage.action?pageId=%s", e.baseURL, id)
}

// pageIDFromURL derives a page id from a pageId query parameter or a
// /pages/<id> path segment, returning "" when neither is present.
func pageIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if id := u.Query().Get("pageId"); id != "" {
		return id
	}
	if m := pagePathPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1]
	}
	return ""
}

// extensionContentID digs a content id out of a macro/extension node's
// parameters, wherever the host format put it.
func extensionContentID(n *Node) string {
	if id := n.stringAttr("contentId"); id != "" {
		return id
	}
	params, ok := n.Attrs["parameters"].(map[string]any)
	if !ok {
		return ""
	}
	if id, ok := params["contentId"].(string); ok {
		return id
	}
	macroParams, ok := params["macroParams"].(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"contentId", "pageId"} {
		switch v := macroParams[key].(type) {
		case string:
			return v
		case map[string]any:
			if s, ok := v["value"].(string); ok {
				return s
			}
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
