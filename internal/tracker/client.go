// Package tracker is the issue tracker client: search for candidate issues,
// create new ones, and validate credentials against the endpoints the
// pipeline actually needs.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/supportops/triage/internal/types"
)

const (
	defaultBaseURL = "https://api.github.com"

	// searchPageSize caps results per query; the orchestrator merges across
	// queries so deeper pages add little recall for a lot of quota.
	searchPageSize = 20
)

var repoScopeRegex = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?/[A-Za-z0-9._-]+$`)

// ValidateRepoScope checks an owner/name repository scope.
func ValidateRepoScope(scope string) error {
	if !repoScopeRegex.MatchString(scope) {
		return types.NewValidationError("repository scope must match owner/name (got %q)", scope)
	}
	return nil
}

// StateFilter restricts search results by issue state.
type StateFilter string

const (
	StateOpen   StateFilter = "open"
	StateClosed StateFilter = "closed"
	// StateBoth is expressed by omitting the state qualifier entirely; the
	// search endpoint rejects an explicit both-state term as invalid.
	StateBoth StateFilter = "both"
)

// SearchFilters narrows a candidate search.
type SearchFilters struct {
	State StateFilter // default StateBoth
	Label string      // optional label qualifier
}

// AccessReport is the result of credential validation. CanSearch is distinct
// from Valid: some tokens authenticate fine but are rejected by the search
// endpoint.
type AccessReport struct {
	Valid     bool   `json:"valid"`
	CanSearch bool   `json:"can_search"`
	Login     string `json:"login,omitempty"`
}

// Client talks to the tracker's REST API with a shared rate limiter.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a tracker client. The search API allows 30 requests per
// minute authenticated; the limiter stays safely under that.
func NewClient(token, baseURL string) (*Client, error) {
	if token == "" {
		return nil, types.NewValidationError("tracker token is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 12 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
	}, nil
}

// Search executes one query against the tracker's issue search endpoint,
// scoped to the given repositories, capped at searchPageSize results sorted
// by most-recently-updated.
func (c *Client) Search(ctx context.Context, query string, repositories []string, filters SearchFilters) ([]types.CandidateIssue, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewValidationError("search query is empty")
	}
	for _, repo := range repositories {
		if err := ValidateRepoScope(repo); err != nil {
			return nil, err
		}
	}

	expr := buildSearchExpression(query, repositories, filters)

	params := url.Values{}
	params.Set("q", expr)
	params.Set("per_page", fmt.Sprintf("%d", searchPageSize))
	params.Set("sort", "updated")
	params.Set("order", "desc")

	var result searchResponse
	if err := c.get(ctx, "/search/issues?"+params.Encode(), &result); err != nil {
		return nil, err
	}

	candidates := make([]types.CandidateIssue, 0, len(result.Items))
	for _, item := range result.Items {
		candidates = append(candidates, item.toCandidate())
	}
	return candidates, nil
}

// buildSearchExpression assembles the tracker search qualifier string.
func buildSearchExpression(query string, repositories []string, filters SearchFilters) string {
	parts := []string{query, "is:issue"}
	for _, repo := range repositories {
		parts = append(parts, "repo:"+repo)
	}
	if filters.State == StateOpen || filters.State == StateClosed {
		parts = append(parts, "state:"+string(filters.State))
	}
	if filters.Label != "" {
		parts = append(parts, fmt.Sprintf("label:%q", filters.Label))
	}
	return strings.Join(parts, " ")
}

// CreateRequest is the payload for filing a new issue.
type CreateRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
	Milestone int      `json:"milestone,omitempty"`
}

// CreateIssue files a new issue in the given repository scope.
func (c *Client) CreateIssue(ctx context.Context, repository string, req CreateRequest) (*types.CandidateIssue, error) {
	if err := ValidateRepoScope(repository); err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, types.NewValidationError("issue title is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling issue: %w", err)
	}

	var item issueItem
	if err := c.post(ctx, "/repos/"+repository+"/issues", payload, &item); err != nil {
		return nil, err
	}
	created := item.toCandidate()
	return &created, nil
}

// ValidateAccess checks the credential two ways: basic validity against the
// authenticated-user endpoint, and search capability against the search
// endpoint with a throwaway query. The two can disagree.
func (c *Client) ValidateAccess(ctx context.Context, repositories []string) (*AccessReport, error) {
	report := &AccessReport{}

	var user struct {
		Login string `json:"login"`
	}
	if err := c.get(ctx, "/user", &user); err != nil {
		if types.KindOf(err) == types.ErrKindAuth {
			return report, nil
		}
		return nil, err
	}
	report.Valid = true
	report.Login = user.Login

	probe := "test"
	if len(repositories) > 0 {
		probe = "test repo:" + repositories[0]
	}
	params := url.Values{}
	params.Set("q", probe)
	params.Set("per_page", "1")

	var result searchResponse
	err := c.get(ctx, "/search/issues?"+params.Encode(), &result)
	switch {
	case err == nil:
		report.CanSearch = true
	case types.KindOf(err) == types.ErrKindAuth, types.KindOf(err) == types.ErrKindValidation:
		report.CanSearch = false
	default:
		return nil, err
	}

	return report, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return types.NewTimeoutError("tracker call timed out", err)
		}
		return types.NewUnknownError("tracker call failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized:
		return types.NewAuthError("tracker rejected the credential", nil)
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		// The tracker reports rate limiting as 403 with a zeroed quota header
		// as well as plain 429.
		if resp.StatusCode == http.StatusTooManyRequests || resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return types.NewRateLimitError("tracker rate limit exceeded", nil)
		}
		return types.NewAuthError("tracker denied access to this endpoint", nil)
	case resp.StatusCode == http.StatusNotFound:
		return types.NewNotFoundError("tracker resource not found", nil)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.NewValidationError("tracker rejected the query: %s", string(detail))
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return types.NewUnknownError(
			fmt.Sprintf("tracker returned status %d: %s", resp.StatusCode, string(detail)), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewParseError("decoding tracker response", err)
	}
	return nil
}

// searchResponse is the tracker's search envelope.
type searchResponse struct {
	TotalCount int         `json:"total_count"`
	Items      []issueItem `json:"items"`
}

// issueItem is the tracker's issue representation.
type issueItem struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	State     string    `json:"state"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      *struct {
		Login string `json:"login"`
	} `json:"user"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
}

func (i issueItem) toCandidate() types.CandidateIssue {
	c := types.CandidateIssue{
		ID:        i.ID,
		Number:    i.Number,
		Title:     i.Title,
		Body:      i.Body,
		State:     i.State,
		HTMLURL:   i.HTMLURL,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
	if i.User != nil {
		c.Author = i.User.Login
	}
	for _, l := range i.Labels {
		c.Labels = append(c.Labels, l.Name)
	}
	for _, a := range i.Assignees {
		c.Assignees = append(c.Assignees, a.Login)
	}
	return c
}
