// Package analysis coordinates one duplicate-analysis run: query generation,
// candidate search, deduplication, similarity scoring, and ranking.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/supportops/triage/internal/search"
	"github.com/supportops/triage/internal/similarity"
	"github.com/supportops/triage/internal/tracker"
	"github.com/supportops/triage/internal/types"
)

// Phase is the orchestrator's position in a run.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseQueryGen      Phase = "query_generation"
	PhaseSearching     Phase = "searching"
	PhaseDeduplicating Phase = "deduplicating"
	PhaseScoring       Phase = "scoring"
	PhaseRanked        Phase = "ranked"
	PhaseDone          Phase = "done"
	PhaseFailed        Phase = "failed"
)

// Searcher is the slice of the tracker client the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, query string, repositories []string, filters tracker.SearchFilters) ([]types.CandidateIssue, error)
}

// Config controls run behavior.
type Config struct {
	// MaxResults truncates the ranked output (default: 10).
	MaxResults int

	// MaxConcurrentSearches bounds the search fan-out (default: 3).
	// Deduplication happens only after every search settles, so
	// first-occurrence-wins stays deterministic regardless of completion
	// order.
	MaxConcurrentSearches int

	// MaxConcurrentScores bounds the scoring fan-out (default: 4). Final
	// ordering depends only on score, so parallelism never changes output.
	MaxConcurrentScores int

	// State restricts candidate search by issue state (default: both).
	State tracker.StateFilter

	// Label optionally restricts candidate search by label.
	Label string
}

// DefaultConfig returns the default analysis configuration
func DefaultConfig() Config {
	return Config{
		MaxResults:            10,
		MaxConcurrentSearches: 3,
		MaxConcurrentScores:   4,
		State:                 tracker.StateBoth,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive (got %d)", c.MaxResults)
	}
	if c.MaxResults > 100 {
		return fmt.Errorf("max_results too large (got %d, max 100)", c.MaxResults)
	}
	if c.MaxConcurrentSearches <= 0 {
		return fmt.Errorf("max_concurrent_searches must be positive (got %d)", c.MaxConcurrentSearches)
	}
	if c.MaxConcurrentScores <= 0 {
		return fmt.Errorf("max_concurrent_scores must be positive (got %d)", c.MaxConcurrentScores)
	}
	return nil
}

// Orchestrator runs duplicate analysis. One run owns its result object until
// Analyze returns it; nothing is shared between runs.
type Orchestrator struct {
	searcher     Searcher
	scorer       *similarity.Scorer
	repositories []string
	config       Config

	mu    sync.Mutex
	phase Phase
}

// New creates an orchestrator. Fails with a single fatal error when no
// analysis engine is available: a nil searcher or a nil scorer.
func New(searcher Searcher, scorer *similarity.Scorer, repositories []string, config Config) (*Orchestrator, error) {
	if searcher == nil || scorer == nil {
		return nil, fmt.Errorf("no analysis engine available")
	}
	for _, repo := range repositories {
		if err := tracker.ValidateRepoScope(repo); err != nil {
			return nil, err
		}
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Orchestrator{
		searcher:     searcher,
		scorer:       scorer,
		repositories: repositories,
		config:       config,
		phase:        PhaseIdle,
	}, nil
}

// Phase reports the orchestrator's current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// Analyze runs the full pipeline for one proposed issue. Per-query search
// failures and per-candidate scoring failures are absorbed; the run only
// fails when every search fails or the context is cancelled. No result is
// delivered after cancellation.
func (o *Orchestrator) Analyze(ctx context.Context, issue *types.ProposedIssue, enrichment *types.EnrichmentContext) (*types.AnalysisResult, error) {
	start := time.Now()
	runID := uuid.NewString()

	if err := issue.Validate(); err != nil {
		o.setPhase(PhaseFailed)
		return nil, types.NewValidationError("invalid proposed issue: %v", err)
	}

	o.setPhase(PhaseQueryGen)
	queries := search.Generate(issue, enrichment)
	slog.Info("generated search queries", "run", runID, "count", len(queries))

	o.setPhase(PhaseSearching)
	perQuery, err := o.runSearches(ctx, queries)
	if err != nil {
		o.setPhase(PhaseFailed)
		return nil, err
	}

	o.setPhase(PhaseDeduplicating)
	unique := deduplicate(perQuery)
	slog.Info("deduplicated candidates", "run", runID, "unique", len(unique))

	o.setPhase(PhaseScoring)
	scored, err := o.runScoring(ctx, issue, unique)
	if err != nil {
		o.setPhase(PhaseFailed)
		return nil, err
	}

	o.setPhase(PhaseRanked)
	rank(scored)
	if len(scored) > o.config.MaxResults {
		scored = scored[:o.config.MaxResults]
	}

	if ctx.Err() != nil {
		o.setPhase(PhaseFailed)
		return nil, ctx.Err()
	}

	o.setPhase(PhaseDone)
	return &types.AnalysisResult{
		RunID:         runID,
		Candidates:    scored,
		TotalExamined: len(unique),
		Elapsed:       time.Since(start),
		Engine:        o.scorer.Engine(),
	}, nil
}

// runSearches fans the queries out with bounded concurrency, collecting
// results per query index. A single query's failure is logged and skipped;
// the step fails only when every query fails.
func (o *Orchestrator) runSearches(ctx context.Context, queries []string) ([][]types.CandidateIssue, error) {
	filters := tracker.SearchFilters{State: o.config.State, Label: o.config.Label}

	perQuery := make([][]types.CandidateIssue, len(queries))
	errs := make([]error, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.MaxConcurrentSearches)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			candidates, err := o.searcher.Search(gctx, q, o.repositories, filters)
			if err != nil {
				// Non-fatal for the run unless every query fails.
				slog.Warn("search query failed", "query", q, "error", err)
				errs[i] = err
				return nil
			}
			perQuery[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failures := 0
	var firstErr error
	for _, e := range errs {
		if e != nil {
			failures++
			if firstErr == nil {
				firstErr = e
			}
		}
	}
	if failures == len(queries) {
		return nil, fmt.Errorf("all %d search queries failed: %w", len(queries), firstErr)
	}
	return perQuery, nil
}

// deduplicate merges per-query result lists into one slice unique by
// candidate identity, first occurrence winning in query order.
func deduplicate(perQuery [][]types.CandidateIssue) []types.CandidateIssue {
	seen := make(map[int64]bool)
	var unique []types.CandidateIssue
	for _, results := range perQuery {
		for _, c := range results {
			key := c.ID
			if key == 0 {
				key = int64(c.Number)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			unique = append(unique, c)
		}
	}
	return unique
}

// runScoring scores every unique candidate with bounded concurrency. Scorer
// fallback behavior means individual candidates never abort the run; only
// cancellation does.
func (o *Orchestrator) runScoring(ctx context.Context, issue *types.ProposedIssue, candidates []types.CandidateIssue) ([]types.ScoredCandidate, error) {
	scored := make([]types.ScoredCandidate, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.MaxConcurrentScores)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		g.Go(func() error {
			judgment, err := o.scorer.Score(gctx, issue, &candidate)
			if err != nil {
				return err // only cancellation reaches here
			}
			relationship, action := types.ClassifyRelationship(judgment.Score)
			scored[i] = types.ScoredCandidate{
				Candidate:    candidate,
				Score:        judgment.Score,
				Relationship: relationship,
				Reasoning:    judgment.Reasoning,
				Action:       action,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

// rank sorts by descending score, breaking ties by ascending issue number so
// output is stable across runs.
func rank(scored []types.ScoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Candidate.Number < scored[j].Candidate.Number
	})
}
