// Package types defines the core domain records shared across the triage
// pipeline: normalized conversations, proposed issues, tracker candidates,
// and analysis results.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Conversation is the canonical, analysis-ready form of a helpdesk
// conversation. It is produced once by the normalizer and treated as
// immutable by everything downstream.
type Conversation struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Status        ConversationState `json:"status"`
	Messages      []Message         `json:"messages"`
	Tags          []string          `json:"tags"`
	Priority      Priority          `json:"priority"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

// Validate checks the invariants the normalizer guarantees.
func (c *Conversation) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("conversation id is required")
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("invalid conversation status: %s", c.Status)
	}
	if !c.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", c.Priority)
	}
	// Messages must be ordered by arrival time.
	for i := 1; i < len(c.Messages); i++ {
		if c.Messages[i].CreatedAt.Before(c.Messages[i-1].CreatedAt) {
			return fmt.Errorf("messages out of order at index %d", i)
		}
	}
	return nil
}

// Transcript renders the conversation as plain text for LLM consumption.
func (c *Conversation) Transcript() string {
	var b strings.Builder
	for _, m := range c.Messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.Author.Role, m.Author.Name, m.Body)
	}
	return b.String()
}

// ConversationState represents the lifecycle state of a conversation
type ConversationState string

const (
	ConversationOpen   ConversationState = "open"
	ConversationClosed ConversationState = "closed"
)

// IsValid checks if the state value is valid
func (s ConversationState) IsValid() bool {
	return s == ConversationOpen || s == ConversationClosed
}

// Priority is the inferred urgency of a conversation
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid checks if the priority value is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Message is a single visible comment within a conversation. Internal notes
// never make it past the normalizer.
type Message struct {
	ID          string       `json:"id"`
	Author      Author       `json:"author"`
	Body        string       `json:"body"`
	CreatedAt   time.Time    `json:"created_at"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Author identifies who wrote a message
type Author struct {
	Name  string     `json:"name"`
	Email string     `json:"email,omitempty"`
	Role  AuthorRole `json:"role"`
}

// AuthorRole normalizes the platform's author types down to three roles
type AuthorRole string

const (
	RoleCustomer AuthorRole = "customer"
	RoleAdmin    AuthorRole = "admin"
	RoleBot      AuthorRole = "bot"
)

// IsValid checks if the role value is valid
func (r AuthorRole) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleBot:
		return true
	}
	return false
}

// Attachment is a file referenced by a message
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
}

// ProposedIssue is the issue the operator is about to file, derived from a
// classified conversation plus enrichment. Immutable once handed to the
// analysis orchestrator for a run.
type ProposedIssue struct {
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Labels   []string `json:"labels,omitempty"`
	Priority Priority `json:"priority"`

	// ErrorText and AppID come from enrichment and sharpen both query
	// generation and similarity scoring. They are not part of the filed
	// body template but travel with the proposal for the analysis run.
	ErrorText string `json:"error_text,omitempty"`
	AppID     string `json:"app_id,omitempty"`
}

// Validate checks if the proposed issue is fileable
func (p *ProposedIssue) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(p.Title) > 256 {
		return fmt.Errorf("title must be 256 characters or less (got %d)", len(p.Title))
	}
	if p.Priority != "" && !p.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", p.Priority)
	}
	return nil
}

// EnrichmentContext carries operator-supplied detail that was not present in
// the original conversation. It lives only for one workflow run and is never
// persisted.
type EnrichmentContext struct {
	ReproductionSteps string   `json:"reproduction_steps,omitempty"`
	TechnicalDetails  string   `json:"technical_details,omitempty"`
	ErrorText         string   `json:"error_text,omitempty"`
	AppID             string   `json:"app_id,omitempty"`
	CustomerImpact    string   `json:"customer_impact,omitempty"`
	Screenshots       []string `json:"screenshots,omitempty"`
}

// CandidateIssue is an existing tracker issue considered as a possible
// duplicate or related match. Sourced read-only from the tracker search API.
type CandidateIssue struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	Labels    []string  `json:"labels,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	HTMLURL   string    `json:"html_url"`
	Author    string    `json:"author,omitempty"`
	Assignees []string  `json:"assignees,omitempty"`
}

// RelationshipType categorizes how a candidate relates to the new report
type RelationshipType string

const (
	RelationDuplicate  RelationshipType = "duplicate"
	RelationRelated    RelationshipType = "related"
	RelationDependency RelationshipType = "dependency"
	RelationFollowUp   RelationshipType = "follow-up"
)

// SuggestedAction is the recommended next step for a scored candidate
type SuggestedAction string

const (
	ActionReference      SuggestedAction = "reference"
	ActionMerge          SuggestedAction = "merge"
	ActionUpdateExisting SuggestedAction = "update_existing"
	ActionCreateNew      SuggestedAction = "create_new"
)

// ScoredCandidate pairs a candidate issue with its similarity judgment.
// Created fresh per analysis run and discarded afterwards.
type ScoredCandidate struct {
	Candidate    CandidateIssue   `json:"candidate"`
	Score        float64          `json:"score"`
	Relationship RelationshipType `json:"relationship"`
	Reasoning    string           `json:"reasoning,omitempty"`
	Action       SuggestedAction  `json:"action"`
}

// Validate checks if the scored candidate has valid values
func (s *ScoredCandidate) Validate() error {
	if s.Score < 0.0 || s.Score > 1.0 {
		return fmt.Errorf("score must be between 0.0 and 1.0 (got %.2f)", s.Score)
	}
	if s.Relationship == "" {
		return fmt.Errorf("relationship is required")
	}
	if s.Action == "" {
		return fmt.Errorf("action is required")
	}
	return nil
}

// AnalysisResult is the output of one duplicate-analysis run: candidates
// ranked by descending similarity, truncated to the configured maximum.
type AnalysisResult struct {
	RunID         string            `json:"run_id"`
	Candidates    []ScoredCandidate `json:"candidates"`
	TotalExamined int               `json:"total_examined"`
	Elapsed       time.Duration     `json:"elapsed"`
	Engine        string            `json:"engine"`
}

// Classification is the bug classifier's verdict on a conversation.
type Classification struct {
	IsBug           bool            `json:"is_bug"`
	Confidence      float64         `json:"confidence"`
	Reasoning       string          `json:"reasoning"`
	BugType         string          `json:"bug_type,omitempty"`
	Severity        string          `json:"severity,omitempty"`
	KeyIndicators   []string        `json:"key_indicators,omitempty"`
	AgentEscalation bool            `json:"agent_escalation"`
	InitialAnalysis InitialAnalysis `json:"initial_analysis"`
}

// InitialAnalysis is the classifier's first cut at an issue report
type InitialAnalysis struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	CustomerImpact string `json:"customer_impact"`
}

// Validate checks if the classification has valid values
func (c *Classification) Validate() error {
	if c.Confidence < 0.0 || c.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0 (got %.2f)", c.Confidence)
	}
	if c.IsBug && c.InitialAnalysis.Title == "" {
		return fmt.Errorf("initial_analysis.title must be set for bug classifications")
	}
	return nil
}

// ClassifyRelationship maps a similarity score to a relationship type and
// suggested action. Scores at or above 0.8 are confident duplicates worth
// merging; everything below is surfaced as related with a reference
// suggestion.
func ClassifyRelationship(score float64) (RelationshipType, SuggestedAction) {
	if score >= 0.8 {
		return RelationDuplicate, ActionMerge
	}
	return RelationRelated, ActionReference
}
