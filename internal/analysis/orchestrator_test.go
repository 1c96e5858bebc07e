package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportops/triage/internal/similarity"
	"github.com/supportops/triage/internal/tracker"
	"github.com/supportops/triage/internal/types"
)

// fakeSearcher returns scripted results keyed by query, or a global error.
type fakeSearcher struct {
	mu       sync.Mutex
	results  map[string][]types.CandidateIssue
	fallback []types.CandidateIssue
	err      error
	calls    int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, repositories []string, filters tracker.SearchFilters) ([]types.CandidateIssue, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return f.fallback, nil
}

// erroringJudge always fails, forcing the scorer's lexical fallback.
type erroringJudge struct{}

func (erroringJudge) Name() string { return "fake/broken" }
func (erroringJudge) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return "", errors.New("model overloaded")
}

func candidate(number int, title string) types.CandidateIssue {
	return types.CandidateIssue{ID: int64(1000 + number), Number: number, Title: title, State: "open"}
}

func testIssue() *types.ProposedIssue {
	return &types.ProposedIssue{
		Title: "Chat widget not loading on checkout",
		Body:  "The messenger widget is blank after the latest deploy",
	}
}

func newOrchestrator(t *testing.T, searcher Searcher, scorer *similarity.Scorer) *Orchestrator {
	t.Helper()
	o, err := New(searcher, scorer, []string{"acme/app"}, DefaultConfig())
	require.NoError(t, err)
	return o
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New(nil, similarity.NewScorer(nil), nil, DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no analysis engine available")

	_, err = New(&fakeSearcher{}, nil, nil, DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no analysis engine available")
}

func TestNewRejectsBadRepoScope(t *testing.T) {
	_, err := New(&fakeSearcher{}, similarity.NewScorer(nil), []string{"bad scope"}, DefaultConfig())
	require.Error(t, err)
	assert.Equal(t, types.ErrKindValidation, types.KindOf(err))
}

func TestAnalyzeDeduplicatesAcrossQueries(t *testing.T) {
	c1 := candidate(1, "Widget not loading")
	c2 := candidate(2, "Widget blank on checkout")
	c3 := candidate(3, "Messenger widget broken")

	searcher := &fakeSearcher{
		results: map[string][]types.CandidateIssue{
			"not showing": {c1, c2},
			"not loading": {c2, c3},
		},
	}
	o := newOrchestrator(t, searcher, similarity.NewScorer(nil))

	result, err := o.Analyze(context.Background(), testIssue(), nil)
	require.NoError(t, err)

	// Overlapping result sets collapse to exactly {#1,#2,#3}.
	assert.Equal(t, 3, result.TotalExamined)
	numbers := make(map[int]int)
	for _, sc := range result.Candidates {
		numbers[sc.Candidate.Number]++
	}
	for _, n := range []int{1, 2, 3} {
		assert.Equal(t, 1, numbers[n], "candidate #%d must appear exactly once", n)
	}
	assert.Equal(t, PhaseDone, o.Phase())
	assert.Equal(t, "lexical", result.Engine)
	assert.NotEmpty(t, result.RunID)
}

func TestAnalyzeRanksByScoreDescending(t *testing.T) {
	exact := candidate(5, "Chat widget not loading on checkout")
	vague := candidate(6, "Completely unrelated report")

	searcher := &fakeSearcher{fallback: []types.CandidateIssue{vague, exact}}
	o := newOrchestrator(t, searcher, similarity.NewScorer(nil))

	result, err := o.Analyze(context.Background(), testIssue(), nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, 5, result.Candidates[0].Candidate.Number,
		"the closer match must rank first")
	assert.GreaterOrEqual(t, result.Candidates[0].Score, result.Candidates[1].Score)
}

func TestAnalyzeTruncatesToMaxResults(t *testing.T) {
	var many []types.CandidateIssue
	for i := 1; i <= 30; i++ {
		many = append(many, candidate(i, "Widget issue variant"))
	}
	searcher := &fakeSearcher{fallback: many}

	cfg := DefaultConfig()
	cfg.MaxResults = 10
	o, err := New(searcher, similarity.NewScorer(nil), []string{"acme/app"}, cfg)
	require.NoError(t, err)

	result, err := o.Analyze(context.Background(), testIssue(), nil)
	require.NoError(t, err)
	assert.Len(t, result.Candidates, 10)
	assert.Equal(t, 30, result.TotalExamined)
}

func TestAnalyzeAllSearchesFailed(t *testing.T) {
	searcher := &fakeSearcher{err: types.NewRateLimitError("tracker rate limit exceeded", nil)}
	o := newOrchestrator(t, searcher, similarity.NewScorer(nil))

	result, err := o.Analyze(context.Background(), testIssue(), nil)
	require.Error(t, err, "all queries failing must not be a silent empty success")
	assert.Nil(t, result)
	assert.Equal(t, types.ErrKindRateLimit, types.KindOf(err))
	assert.Equal(t, PhaseFailed, o.Phase())
}

func TestAnalyzePartialSearchFailureSucceeds(t *testing.T) {
	c1 := candidate(1, "Widget not loading")

	failing := errors.New("connection reset")
	searcher := &fakeSearcher{
		results: map[string][]types.CandidateIssue{"not showing": {c1}},
	}
	// Every other query errors.
	searcher.fallback = nil
	searcher.err = nil
	inner := searcher
	wrapped := searchFunc(func(ctx context.Context, query string, repos []string, filters tracker.SearchFilters) ([]types.CandidateIssue, error) {
		if query == "not showing" {
			return inner.Search(ctx, query, repos, filters)
		}
		return nil, failing
	})

	o := newOrchestrator(t, wrapped, similarity.NewScorer(nil))
	result, err := o.Analyze(context.Background(), testIssue(), nil)
	require.NoError(t, err, "one surviving query keeps the run alive")
	assert.Equal(t, 1, result.TotalExamined)
}

type searchFunc func(ctx context.Context, query string, repositories []string, filters tracker.SearchFilters) ([]types.CandidateIssue, error)

func (f searchFunc) Search(ctx context.Context, query string, repositories []string, filters tracker.SearchFilters) ([]types.CandidateIssue, error) {
	return f(ctx, query, repositories, filters)
}

func TestAnalyzeScoringFallbackKeepsCandidate(t *testing.T) {
	c := candidate(9, "Chat widget not loading on checkout")
	searcher := &fakeSearcher{fallback: []types.CandidateIssue{c}}

	o := newOrchestrator(t, searcher, similarity.NewScorer(erroringJudge{}))
	result, err := o.Analyze(context.Background(), testIssue(), nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)

	sc := result.Candidates[0]
	assert.Equal(t, 9, sc.Candidate.Number, "a failed AI score must not drop the candidate")
	assert.Contains(t, sc.Reasoning, "lexical fallback")
	assert.GreaterOrEqual(t, sc.Score, 0.0)
	assert.LessOrEqual(t, sc.Score, 1.0)
}

func TestAnalyzeClassification(t *testing.T) {
	// Identical title and body yields 0.4+0.3=0.7 lexically: related/reference.
	same := candidate(2, "Chat widget not loading on checkout")
	same.Body = "The messenger widget is blank after the latest deploy"
	searcher := &fakeSearcher{fallback: []types.CandidateIssue{same}}

	o := newOrchestrator(t, searcher, similarity.NewScorer(nil))
	result, err := o.Analyze(context.Background(), testIssue(), nil)
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, types.RelationRelated, result.Candidates[0].Relationship)
	assert.Equal(t, types.ActionReference, result.Candidates[0].Action)
}

func TestAnalyzeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	searcher := &fakeSearcher{fallback: []types.CandidateIssue{candidate(1, "x")}}
	o := newOrchestrator(t, searcher, similarity.NewScorer(nil))

	result, err := o.Analyze(ctx, testIssue(), nil)
	assert.Nil(t, result, "no result may be delivered after cancellation")
	assert.Error(t, err)
}

func TestAnalyzeInvalidIssue(t *testing.T) {
	o := newOrchestrator(t, &fakeSearcher{}, similarity.NewScorer(nil))
	_, err := o.Analyze(context.Background(), &types.ProposedIssue{}, nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrKindValidation, types.KindOf(err))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }, true},
		{"excessive max results", func(c *Config) { c.MaxResults = 500 }, true},
		{"zero search concurrency", func(c *Config) { c.MaxConcurrentSearches = 0 }, true},
		{"zero score concurrency", func(c *Config) { c.MaxConcurrentScores = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
