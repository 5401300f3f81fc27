package recommend

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"flowbeat/internal/shared"
	"flowbeat/internal/spotify"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

const (
	// searchLimit caps how many results a per-candidate search requests.
	searchLimit = 3

	// minCandidateLen is the shortest cleaned line worth searching for.
	minCandidateLen = 3

	// searchesPerSecond paces the sequential resolution loop so bursts of
	// candidates stay under the catalog's rate limit.
	searchesPerSecond = 10
)

// candidateMarker matches leading numbering or bullet markers on a line.
var candidateMarker = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s*`)

// OutcomeKind classifies the result of resolving one candidate line.
type OutcomeKind int

const (
	// OutcomeOk means the candidate resolved to a catalog track.
	OutcomeOk OutcomeKind = iota
	// OutcomeMiss means the candidate produced no usable track; resolution continues.
	OutcomeMiss
	// OutcomeFatal means the whole resolution pass must abort.
	OutcomeFatal
)

// Outcome is the explicit result of one candidate resolution attempt.
// Making the skip-or-abort decision a value keeps the continue-on-miss
// policy out of error-handling blocks inside the loop.
type Outcome struct {
	Kind  OutcomeKind
	Track spotify.Track
	Err   error
}

// Searcher performs a bounded catalog track search.
type Searcher interface {
	SearchTracks(ctx context.Context, token, query string, limit int) ([]spotify.Track, error)
}

// Resolver turns candidate lines into verified catalog tracks.
//
// Searches run sequentially. That is a correctness requirement, not an
// artifact: early termination saves calls only if sequential, and the
// limiter keeps burst traffic under the upstream rate limit.
type Resolver struct {
	searcher Searcher
	limiter  *rate.Limiter
	logger   *log.Logger
}

// NewResolver creates a Resolver over the given searcher.
func NewResolver(searcher Searcher, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{
		searcher: searcher,
		limiter:  rate.NewLimiter(rate.Limit(searchesPerSecond), 1),
		logger:   logger,
	}
}

// CleanCandidate strips leading numbering or bullet markers and trims whitespace.
func CleanCandidate(line string) string {
	return strings.TrimSpace(candidateMarker.ReplaceAllString(strings.TrimSpace(line), ""))
}

// resolveOne attempts to resolve a single candidate line.
func (r *Resolver) resolveOne(ctx context.Context, token, line string) Outcome {
	query := CleanCandidate(line)
	if len(query) < minCandidateLen {
		return Outcome{Kind: OutcomeMiss}
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return Outcome{Kind: OutcomeFatal, Err: err}
	}

	tracks, err := r.searcher.SearchTracks(ctx, token, query, searchLimit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Outcome{Kind: OutcomeFatal, Err: err}
		}
		return Outcome{Kind: OutcomeMiss, Err: err}
	}

	if len(tracks) == 0 {
		return Outcome{Kind: OutcomeMiss}
	}

	return Outcome{Kind: OutcomeOk, Track: tracks[0]}
}

// Resolve iterates candidates in order, searching the catalog for each and
// accepting the first hit. It stops once target tracks are resolved or the
// candidates are exhausted. Per-candidate failures are logged and skipped;
// only cancellation aborts the pass. Tracks already resolved in this pass are
// skipped by catalog id, so the result never holds duplicates.
//
// Returns [shared.ErrZeroResolved] when nothing resolved.
func (r *Resolver) Resolve(ctx context.Context, token string, candidates []string, target int) ([]spotify.Track, error) {
	resolved := make([]spotify.Track, 0, target)
	seen := make(map[string]bool, target)

	for _, candidate := range candidates {
		if len(resolved) >= target {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolution cancelled: %w", err)
		}

		outcome := r.resolveOne(ctx, token, candidate)
		switch outcome.Kind {
		case OutcomeOk:
			if seen[outcome.Track.ID] {
				continue
			}
			seen[outcome.Track.ID] = true
			resolved = append(resolved, outcome.Track)
		case OutcomeMiss:
			if outcome.Err != nil {
				r.logger.Warn("candidate search failed, skipping", "candidate", candidate, "error", outcome.Err)
			}
		case OutcomeFatal:
			return nil, fmt.Errorf("resolution aborted: %w", outcome.Err)
		}
	}

	if len(resolved) == 0 {
		return nil, shared.ErrZeroResolved
	}

	return resolved, nil
}
