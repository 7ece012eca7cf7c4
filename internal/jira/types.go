// Package jira provides HTTP access to an Atlassian site: Jira issues via the
// REST API and Confluence pages via the wiki API. Loosely-typed REST payloads
// are normalized at this boundary into Record/Document values; everything
// downstream (traversal, scoring, extraction) operates on the normalized types.
package jira

import (
	"time"

	"depscope/internal/adf"
)

// Record is a normalized snapshot of a Jira issue, immutable for the duration
// of one analysis.
type Record struct {
	Key         string      `json:"key"`
	Summary     string      `json:"summary"`
	Status      string      `json:"status"`
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Labels      []string    `json:"labels,omitempty"`
	Components  []Component `json:"components,omitempty"`
	Assignee    *User       `json:"assignee,omitempty"`
	Reporter    *User       `json:"reporter,omitempty"`
	Priority    string      `json:"priority,omitempty"`
	Created     time.Time   `json:"created"`
	Comments    []Comment   `json:"comments,omitempty"`

	// Links are the issue's directed relations, in the order the API
	// returned them. Outward links carry the link type's outward name,
	// inward links the inward name.
	Links []Link `json:"-"`

	// DescriptionDoc is the raw ADF tree behind Description, kept for
	// document-reference extraction. Nil when the description was plain text.
	DescriptionDoc *adf.Node `json:"-"`
}

// Component is a project component attached to a record.
type Component struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// User identifies an assignee or reporter.
type User struct {
	AccountID   string `json:"account_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Comment is one entry in a record's bounded comment window.
type Comment struct {
	ID      string    `json:"id"`
	Author  string    `json:"author,omitempty"`
	Created time.Time `json:"created"`
	Body    string    `json:"body"`

	// BodyDoc is the raw ADF tree behind Body, kept for document-reference
	// extraction. Nil when the body was plain text.
	BodyDoc *adf.Node `json:"-"`
}

// Link is a directed relation from the record that carries it to TargetKey.
// Relation is the direction-specific link type name, verbatim from the API.
type Link struct {
	TargetKey string `json:"target_key"`
	Relation  string `json:"relation"`
}

// Document is a normalized Confluence page.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Page bounds one page of a search.
type Page struct {
	StartAt    int
	MaxResults int
}

// SearchResult is one page of matching records plus the total match count.
type SearchResult struct {
	Records []Record
	Total   int
}

// DocumentSearchResult is one page of matching documents plus the total count.
type DocumentSearchResult struct {
	Documents []Document
	Total     int
}
