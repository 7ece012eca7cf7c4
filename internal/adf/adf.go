// Package adf models Atlassian Document Format trees: the rich-text shape
// Jira v3 returns for descriptions and comment bodies. It flattens documents
// to plain text and extracts embedded Confluence page references.
//
// Unrecognized node types are inert no-ops, so drift in the document format
// cannot fail callers.
package adf

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is one vertex of an ADF tree.
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is an inline annotation (link, strong, code, ...) on a node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Parse decodes a raw description/comment body. Jira may return an ADF
// document, a bare JSON string (API v2), or null. A bare string parses into a
// single text node so callers handle both shapes uniformly.
func Parse(raw json.RawMessage) (*Node, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &Node{Type: "text", Text: s}, nil
	}

	var node Node
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &node, nil
}

// blockTypes end the current line when flattening to plain text.
var blockTypes = map[string]bool{
	"doc": true, "paragraph": true, "heading": true, "blockquote": true,
	"codeBlock": true, "bulletList": true, "orderedList": true,
	"listItem": true, "panel": true, "table": true, "tableRow": true,
	"tableCell": true, "tableHeader": true, "rule": true, "mediaGroup": true,
}

// PlainText flattens the tree into newline-separated text.
func (n *Node) PlainText() string {
	var b strings.Builder
	n.writeText(&b)
	return strings.TrimRight(b.String(), "\n")
}

func (n *Node) writeText(b *strings.Builder) {
	if n == nil {
		return
	}

	switch n.Type {
	case "text":
		b.WriteString(n.Text)
	case "hardBreak":
		b.WriteString("\n")
	case "mention", "emoji", "status":
		if text, ok := n.Attrs["text"].(string); ok {
			b.WriteString(text)
		}
	}

	for _, child := range n.Content {
		child.writeText(b)
	}

	if blockTypes[n.Type] && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteString("\n")
	}
}

// stringAttr returns a string-valued attribute, tolerating absence.
func (n *Node) stringAttr(key string) string {
	if n.Attrs == nil {
		return ""
	}
	s, _ := n.Attrs[key].(string)
	return s
}
