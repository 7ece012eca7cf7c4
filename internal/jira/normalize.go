package jira

import (
	"encoding/json"
	"fmt"
	"time"

	"depscope/internal/adf"
)

// defaultRelation labels links whose type omits a direction-specific name.
const defaultRelation = "relates to"

// Wire-format payloads. Jira's REST responses are deeply optional; they are
// decoded here and nowhere else.

type issuePayload struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields issueFields `json:"fields"`
}

type issueFields struct {
	Summary     string            `json:"summary"`
	Description json.RawMessage   `json:"description"` // ADF or plain text
	Status      *namedField       `json:"status"`
	Priority    *namedField       `json:"priority"`
	IssueType   *namedField       `json:"issuetype"`
	Assignee    *userField        `json:"assignee"`
	Reporter    *userField        `json:"reporter"`
	Labels      []string          `json:"labels"`
	Components  []componentField  `json:"components"`
	Created     string            `json:"created"`
	Comment     *commentContainer `json:"comment"`
	IssueLinks  []issueLink       `json:"issuelinks"`
}

type namedField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type componentField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userField struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

type commentContainer struct {
	Comments []commentPayload `json:"comments"`
	Total    int              `json:"total"`
}

type commentPayload struct {
	ID      string          `json:"id"`
	Author  *userField      `json:"author"`
	Created string          `json:"created"`
	Body    json.RawMessage `json:"body"` // ADF or plain text
}

type issueLink struct {
	Type         linkType     `json:"type"`
	InwardIssue  *linkedIssue `json:"inwardIssue"`
	OutwardIssue *linkedIssue `json:"outwardIssue"`
}

type linkType struct {
	Name    string `json:"name"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

type linkedIssue struct {
	Key string `json:"key"`
}

type searchPayload struct {
	StartAt    int            `json:"startAt"`
	MaxResults int            `json:"maxResults"`
	Total      int            `json:"total"`
	Issues     []issuePayload `json:"issues"`
}

type pagePayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Links struct {
		WebUI string `json:"webui"`
		Base  string `json:"base"`
	} `json:"_links"`

	// Content is set when the legacy search API wraps the page.
	Content *pagePayload `json:"content"`
}

type pageSearchPayload struct {
	Results   []pagePayload `json:"results"`
	TotalSize int           `json:"totalSize"`
	Size      int           `json:"size"`
}

// normalizeIssue converts a raw issue payload into a Record. Comments are
// bounded to the most recent window entries (Jira returns them oldest-first).
func normalizeIssue(payload *issuePayload, window int) *Record {
	f := &payload.Fields

	rec := &Record{
		Key:     payload.Key,
		Summary: f.Summary,
		Labels:  f.Labels,
	}
	if f.Status != nil {
		rec.Status = f.Status.Name
	}
	if f.IssueType != nil {
		rec.Type = f.IssueType.Name
	}
	if f.Priority != nil {
		rec.Priority = f.Priority.Name
	}
	rec.Assignee = normalizeUser(f.Assignee)
	rec.Reporter = normalizeUser(f.Reporter)

	for _, comp := range f.Components {
		rec.Components = append(rec.Components, Component{ID: comp.ID, Name: comp.Name})
	}

	if created, err := ParseTimestamp(f.Created); err == nil {
		rec.Created = created
	}

	rec.Description, rec.DescriptionDoc = flattenBody(f.Description)

	if f.Comment != nil {
		comments := f.Comment.Comments
		if len(comments) > window {
			comments = comments[len(comments)-window:]
		}
		for _, raw := range comments {
			comment := Comment{ID: raw.ID}
			if raw.Author != nil {
				comment.Author = raw.Author.DisplayName
			}
			if created, err := ParseTimestamp(raw.Created); err == nil {
				comment.Created = created
			}
			comment.Body, comment.BodyDoc = flattenBody(raw.Body)
			rec.Comments = append(rec.Comments, comment)
		}
	}

	for _, link := range f.IssueLinks {
		if link.OutwardIssue != nil && link.OutwardIssue.Key != "" {
			rec.Links = append(rec.Links, Link{
				TargetKey: link.OutwardIssue.Key,
				Relation:  orDefault(link.Type.Outward),
			})
		}
		if link.InwardIssue != nil && link.InwardIssue.Key != "" {
			rec.Links = append(rec.Links, Link{
				TargetKey: link.InwardIssue.Key,
				Relation:  orDefault(link.Type.Inward),
			})
		}
	}

	return rec
}

func normalizeUser(u *userField) *User {
	if u == nil {
		return nil
	}
	return &User{AccountID: u.AccountID, DisplayName: u.DisplayName}
}

func orDefault(relation string) string {
	if relation == "" {
		return defaultRelation
	}
	return relation
}

// flattenBody turns a description/comment body (ADF document, JSON string, or
// absent) into plain text, keeping the parsed tree for reference extraction.
func flattenBody(raw json.RawMessage) (string, *adf.Node) {
	node, err := adf.Parse(raw)
	if err != nil || node == nil {
		return "", nil
	}
	return node.PlainText(), node
}

// normalizePage converts a raw Confluence page payload into a Document,
// synthesizing a canonical URL when the response carries none.
func (c *Client) normalizePage(payload *pagePayload) *Document {
	doc := &Document{ID: payload.ID, Title: payload.Title}

	switch {
	case payload.Links.WebUI != "":
		base := payload.Links.Base
		if base == "" {
			base = c.BaseURL + "/wiki"
		}
		doc.URL = base + payload.Links.WebUI
	case payload.ID != "":
		doc.URL = fmt.Sprintf("%s/wiki/pages/viewpage.action?pageId=%s", c.BaseURL, payload.ID)
	}

	return doc
}

// ParseTimestamp parses Jira's timestamp format into a time.Time.
// Jira uses ISO 8601 with timezone: 2024-01-15T10:30:00.000+0000 or 2024-01-15T10:30:00.000Z
func ParseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	formats := []string{
		"2006-01-02T15:04:05.000-0700",
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, ts); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %s", ts)
}
