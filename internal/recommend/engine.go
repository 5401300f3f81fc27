package recommend

import (
	"context"
	"errors"
	"fmt"

	"flowbeat/internal/models"
	"flowbeat/internal/shared"
	"flowbeat/internal/spotify"
	"github.com/charmbracelet/log"
)

// TokenSource yields a valid access token for a user's catalog calls.
type TokenSource interface {
	ValidToken(ctx context.Context, user *models.User) (string, error)
}

// Catalog covers the playlist side of the catalog API.
type Catalog interface {
	Searcher
	Profile(ctx context.Context, token string) (*spotify.Profile, error)
	CreatePlaylist(ctx context.Context, token, spotifyUserID, name, description string) (*spotify.Playlist, error)
	AddTracks(ctx context.Context, token, playlistID string, uris []string) (int, error)
}

// Result is the outcome of one pipeline run. Exactly one of Tracks or
// Fallback is populated: Fallback is non-nil when the run degraded.
type Result struct {
	Tracks      []spotify.Track
	Explanation string
	Fallback    map[string]any
}

// Engine runs the recommendation pipeline end to end:
// valid token, suggest, resolve, then materialize or fall back.
// Every run starts fresh; no state survives a request.
type Engine struct {
	tokens    TokenSource
	catalog   Catalog
	suggester *Suggester
	resolver  *Resolver
	logger    *log.Logger
}

// NewEngine wires the pipeline's collaborators together.
func NewEngine(tokens TokenSource, catalog Catalog, suggester *Suggester, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{
		tokens:    tokens,
		catalog:   catalog,
		suggester: suggester,
		resolver:  NewResolver(catalog, logger),
		logger:    logger,
	}
}

// Generate produces up to target recommended tracks for the listener's request.
//
// A failed language-model call or zero resolved tracks degrades to a
// fallback result rather than an error. Token problems propagate:
// [shared.ErrNotConnected] means the user must authorize, and
// [shared.ErrTokenRefreshFailed] is fatal for the run.
func (e *Engine) Generate(ctx context.Context, user *models.User, listenerContext string, target int) (*Result, error) {
	if target <= 0 {
		return nil, fmt.Errorf("%w: target count must be positive", shared.ErrInvalidArgument)
	}

	token, err := e.tokens.ValidToken(ctx, user)
	if err != nil {
		return nil, err
	}

	candidates, err := e.suggester.Suggest(ctx, listenerContext, target)
	if err != nil {
		e.logger.Warn("suggestion generation failed, falling back", "user", user.ID(), "error", err)
		return &Result{Fallback: Fallback("Recommendations are unavailable right now. Please try again shortly.", nil)}, nil
	}

	tracks, err := e.resolver.Resolve(ctx, token, candidates, target)
	if err != nil {
		if errors.Is(err, shared.ErrZeroResolved) {
			e.logger.Warn("no candidates resolved, falling back", "user", user.ID(), "candidates", len(candidates))
			return &Result{Fallback: Fallback("No matching songs were found for that request. Try rephrasing it.", nil)}, nil
		}
		return nil, err
	}

	titles := make([]string, len(tracks))
	for i, track := range tracks {
		titles[i] = track.Name + " by " + track.ArtistNames()
	}

	explanation, err := e.suggester.Explain(ctx, listenerContext, titles)
	if err != nil {
		// The tracks stand on their own; a missing explanation is not worth a fallback.
		e.logger.Warn("explanation generation failed", "user", user.ID(), "error", err)
		explanation = ""
	}

	e.logger.Info("recommendations generated",
		"user", user.ID(), "target", target, "candidates", len(candidates), "resolved", len(tracks))

	return &Result{Tracks: tracks, Explanation: explanation}, nil
}

// Refine reruns the pipeline with the listener's feedback about the current
// mix. Degradation rules match [Engine.Generate]: model failure or zero
// resolution falls back, token problems propagate.
func (e *Engine) Refine(ctx context.Context, user *models.User, listenerContext string, current []string, feedback string, target int) (*Result, error) {
	if target <= 0 {
		return nil, fmt.Errorf("%w: target count must be positive", shared.ErrInvalidArgument)
	}
	if feedback == "" {
		return nil, fmt.Errorf("%w: feedback is required", shared.ErrInvalidArgument)
	}

	token, err := e.tokens.ValidToken(ctx, user)
	if err != nil {
		return nil, err
	}

	candidates, err := e.suggester.Refine(ctx, listenerContext, current, feedback, target)
	if err != nil {
		e.logger.Warn("refinement failed, falling back", "user", user.ID(), "error", err)
		return &Result{Fallback: Fallback("Recommendations are unavailable right now. Please try again shortly.", nil)}, nil
	}

	tracks, err := e.resolver.Resolve(ctx, token, candidates, target)
	if err != nil {
		if errors.Is(err, shared.ErrZeroResolved) {
			e.logger.Warn("no refined candidates resolved, falling back", "user", user.ID(), "candidates", len(candidates))
			return &Result{Fallback: Fallback("No matching songs were found for that feedback. Try rephrasing it.", nil)}, nil
		}
		return nil, err
	}

	titles := make([]string, len(tracks))
	for i, track := range tracks {
		titles[i] = track.Name + " by " + track.ArtistNames()
	}

	explanation, err := e.suggester.Explain(ctx, listenerContext, titles)
	if err != nil {
		e.logger.Warn("explanation generation failed", "user", user.ID(), "error", err)
		explanation = ""
	}

	e.logger.Info("recommendations refined",
		"user", user.ID(), "target", target, "candidates", len(candidates), "resolved", len(tracks))

	return &Result{Tracks: tracks, Explanation: explanation}, nil
}

// Materialize creates a private playlist from resolved tracks and attaches
// their URIs in batches. Playlist creation failure is fatal; partial batch
// failures leave a shorter playlist and are not escalated.
func (e *Engine) Materialize(ctx context.Context, user *models.User, name, description string, tracks []spotify.Track) (*spotify.Playlist, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks to add", shared.ErrInvalidArgument)
	}

	token, err := e.tokens.ValidToken(ctx, user)
	if err != nil {
		return nil, err
	}

	profile, err := e.catalog.Profile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog profile: %w", err)
	}

	playlist, err := e.catalog.CreatePlaylist(ctx, token, profile.ID, name, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}

	uris := make([]string, len(tracks))
	for i, track := range tracks {
		uris[i] = track.URI
	}

	added, err := e.catalog.AddTracks(ctx, token, playlist.ID, uris)
	if err != nil {
		return nil, fmt.Errorf("failed to add tracks: %w", err)
	}
	if added < len(uris) {
		e.logger.Warn("playlist materialized with missing tracks",
			"playlist", playlist.ID, "requested", len(uris), "added", added)
	}

	return playlist, nil
}
