package adf

import (
	"encoding/json"
	"testing"
)

const siteURL = "https://wiki.example"

func mustParse(t *testing.T, doc string) *Node {
	t.Helper()
	node, err := Parse(json.RawMessage(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return node
}

func TestExtractInlineCard(t *testing.T) {
	doc := `{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"inlineCard","attrs":{"url":"https://wiki.example/wiki/pages/viewpage.action?pageId=555"}}]}]}`

	refs := ExtractDocumentRefs(mustParse(t, doc), siteURL)
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	if refs[0].ID != "555" {
		t.Errorf("ID = %q, want %q", refs[0].ID, "555")
	}
	if refs[0].URL != "https://wiki.example/wiki/pages/viewpage.action?pageId=555" {
		t.Errorf("URL = %q", refs[0].URL)
	}
}

func TestExtractPagePathID(t *testing.T) {
	doc := `{"type":"doc","content":[
		{"type":"inlineCard","attrs":{"url":"https://wiki.example/wiki/spaces/ENG/pages/12345/Design+Doc"}}]}`

	refs := ExtractDocumentRefs(mustParse(t, doc), siteURL)
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	if refs[0].ID != "12345" {
		t.Errorf("ID = %q, want %q", refs[0].ID, "12345")
	}
}

func TestExtractEmbedCardSynthesizesURL(t *testing.T) {
	doc := `{"type":"doc","content":[{"type":"embedCard","attrs":{"id":"777"}}]}`

	refs := ExtractDocumentRefs(mustParse(t, doc), siteURL)
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	want := "https://wiki.example/wiki/pages/viewpage.action?pageId=777"
	if refs[0].URL != want {
		t.Errorf("URL = %q, want %q", refs[0].URL, want)
	}
}

func TestExtractExtensionContentID(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "direct contentId attr",
			doc:  `{"type":"doc","content":[{"type":"extension","attrs":{"contentId":"88"}}]}`,
			want: "88",
		},
		{
			name: "parameters contentId",
			doc:  `{"type":"doc","content":[{"type":"inlineExtension","attrs":{"parameters":{"contentId":"99"}}}]}`,
			want: "99",
		},
		{
			name: "macroParams value wrapper",
			doc: `{"type":"doc","content":[{"type":"bodiedExtension","attrs":
				{"parameters":{"macroParams":{"pageId":{"value":"1010"}}}}}]}`,
			want: "1010",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := ExtractDocumentRefs(mustParse(t, tt.doc), siteURL)
			if len(refs) != 1 {
				t.Fatalf("got %d refs, want 1", len(refs))
			}
			if refs[0].ID != tt.want {
				t.Errorf("ID = %q, want %q", refs[0].ID, tt.want)
			}
		})
	}
}

func TestExtractLinkMarks(t *testing.T) {
	doc := `{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"text","text":"see doc","marks":[
			{"type":"link","attrs":{"href":"https://wiki.example/wiki/pages/viewpage.action?pageId=42"}}]},
		{"type":"text","text":"external","marks":[
			{"type":"link","attrs":{"href":"https://other.example/page"}}]}]}]}`

	refs := ExtractDocumentRefs(mustParse(t, doc), siteURL)
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1 (external link must be ignored)", len(refs))
	}
	if refs[0].ID != "42" {
		t.Errorf("ID = %q, want %q", refs[0].ID, "42")
	}
}

func TestExtractDeduplicatesByURL(t *testing.T) {
	doc := `{"type":"doc","content":[
		{"type":"inlineCard","attrs":{"url":"https://wiki.example/wiki/pages/viewpage.action?pageId=5"}},
		{"type":"paragraph","content":[{"type":"text","text":"again","marks":[
			{"type":"link","attrs":{"href":"https://wiki.example/wiki/pages/viewpage.action?pageId=5"}}]}]}]}`

	refs := ExtractDocumentRefs(mustParse(t, doc), siteURL)
	if len(refs) != 1 {
		t.Errorf("got %d refs, want 1 after dedup", len(refs))
	}
}

func TestExtractUnknownNodesAreInert(t *testing.T) {
	doc := `{"type":"doc","content":[
		{"type":"futureWidget","attrs":{"url":"https://wiki.example/wiki/pages/viewpage.action?pageId=7"},"content":[
			{"type":"inlineCard","attrs":{"url":"https://wiki.example/wiki/pages/viewpage.action?pageId=8"}}]}]}`

	// The unknown wrapper emits nothing itself but its children are walked.
	refs := ExtractDocumentRefs(mustParse(t, doc), siteURL)
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	if refs[0].ID != "8" {
		t.Errorf("ID = %q, want %q", refs[0].ID, "8")
	}
}

func TestExtractNilRoot(t *testing.T) {
	if refs := ExtractDocumentRefs(nil, siteURL); refs != nil {
		t.Errorf("ExtractDocumentRefs(nil) = %v, want nil", refs)
	}
}
