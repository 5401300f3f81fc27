package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"flowbeat/internal/llm"
	"flowbeat/internal/models"
	"flowbeat/internal/shared"
	"flowbeat/internal/spotify"
)

type fakeCompleter struct {
	replies []string
	calls   int
	prompts []llm.ChatRequest
	err     error

	// failAfter makes calls beyond the first N error out; 0 disables it.
	failAfter int
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	f.prompts = append(f.prompts, req)
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.failAfter > 0 && f.calls > f.failAfter {
		return "", shared.ErrUpstreamTimeout
	}
	return f.replies[(f.calls-1)%len(f.replies)], nil
}

type fakeCatalog struct {
	// hits maps a cleaned query to the tracks its search returns.
	hits     map[string][]spotify.Track
	failures map[string]error
	queries  []string

	profileErr  error
	playlistErr error
	addErr      error
	addedURIs   [][]string
}

func (f *fakeCatalog) SearchTracks(ctx context.Context, token, query string, limit int) ([]spotify.Track, error) {
	f.queries = append(f.queries, query)
	if err, ok := f.failures[query]; ok {
		return nil, err
	}
	return f.hits[query], nil
}

func (f *fakeCatalog) Profile(ctx context.Context, token string) (*spotify.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &spotify.Profile{ID: "spotify-user"}, nil
}

func (f *fakeCatalog) CreatePlaylist(ctx context.Context, token, spotifyUserID, name, description string) (*spotify.Playlist, error) {
	if f.playlistErr != nil {
		return nil, f.playlistErr
	}
	return &spotify.Playlist{ID: "pl1", Name: name}, nil
}

func (f *fakeCatalog) AddTracks(ctx context.Context, token, playlistID string, uris []string) (int, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	f.addedURIs = append(f.addedURIs, uris)
	return len(uris), nil
}

type fakeTokens struct {
	token string
	err   error
}

func (f *fakeTokens) ValidToken(ctx context.Context, user *models.User) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func track(id, name, artist string) spotify.Track {
	return spotify.Track{
		ID:      id,
		Name:    name,
		Artists: []spotify.Artist{{Name: artist}},
		URI:     "spotify:track:" + id,
	}
}

func pipelineUser(t *testing.T) *models.User {
	t.Helper()
	user := models.NewUser(1, "listener@example.com", "Listener")
	user.SetID("user-1")
	return user
}

func TestRequestCount(t *testing.T) {
	cases := []struct{ target, want int }{
		{1, 2},
		{5, 8},
		{10, 15},
		{12, 18},
		{20, 30},
	}

	for _, tc := range cases {
		if got := RequestCount(tc.target); got != tc.want {
			t.Errorf("RequestCount(%d) = %d, expected %d", tc.target, got, tc.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	completer := &fakeCompleter{replies: []string{"Song A by Artist A\n\nSong B by Artist B\n  Song C by Artist C  \n"}}
	suggester := NewSuggester(completer, nil)

	lines, err := suggester.Suggest(context.Background(), "upbeat morning run", 12)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 non-blank lines, got %d", len(lines))
	}
	if lines[2] != "Song C by Artist C" {
		t.Errorf("expected trimmed line, got %q", lines[2])
	}

	system := completer.prompts[0].Messages[0]
	if system.Role != "system" {
		t.Errorf("expected system instruction first, got role %q", system.Role)
	}
	if !strings.Contains(system.Content, "exactly 18") {
		t.Errorf("expected oversampled count in instruction, got %q", system.Content)
	}
}

func TestCleanCandidate(t *testing.T) {
	cases := []struct{ in, want string }{
		{"1. Song by Artist", "Song by Artist"},
		{"12) Song by Artist", "Song by Artist"},
		{"- Song by Artist", "Song by Artist"},
		{"* Song by Artist", "Song by Artist"},
		{"  Song by Artist  ", "Song by Artist"},
		{"Song by Artist", "Song by Artist"},
	}

	for _, tc := range cases {
		if got := CleanCandidate(tc.in); got != tc.want {
			t.Errorf("CleanCandidate(%q) = %q, expected %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("OrderAndEarlyTermination", func(t *testing.T) {
		// Target 12, 18 candidates, 15 would resolve. The first 12 hits win
		// in candidate order; the rest are never searched.
		catalog := &fakeCatalog{hits: map[string][]spotify.Track{}, failures: map[string]error{}}
		candidates := make([]string, 18)
		for i := range candidates {
			query := fmt.Sprintf("Song %02d by Artist", i)
			candidates[i] = query
			if i == 4 || i == 9 || i == 14 {
				continue // these three miss
			}
			catalog.hits[query] = []spotify.Track{track(fmt.Sprintf("id%02d", i), fmt.Sprintf("Song %02d", i), "Artist")}
		}

		resolver := NewResolver(catalog, nil)
		tracks, err := resolver.Resolve(context.Background(), "token", candidates, 12)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(tracks) != 12 {
			t.Fatalf("expected 12 tracks, got %d", len(tracks))
		}
		if tracks[0].ID != "id00" || tracks[3].ID != "id03" || tracks[4].ID != "id05" {
			t.Errorf("expected candidate order preserved across misses, got %s %s %s",
				tracks[0].ID, tracks[3].ID, tracks[4].ID)
		}
		if tracks[11].ID != "id13" {
			t.Errorf("expected 12th resolved track to be id13, got %s", tracks[11].ID)
		}
		if len(catalog.queries) != 14 {
			t.Errorf("expected resolution to stop after 14 searches, got %d", len(catalog.queries))
		}
	})

	t.Run("ContinuesPastSearchFailure", func(t *testing.T) {
		catalog := &fakeCatalog{
			hits: map[string][]spotify.Track{
				"Song B by Artist": {track("b", "Song B", "Artist")},
			},
			failures: map[string]error{
				"Song A by Artist": shared.ErrRateLimited,
			},
		}

		resolver := NewResolver(catalog, nil)
		tracks, err := resolver.Resolve(context.Background(), "token",
			[]string{"Song A by Artist", "Song B by Artist"}, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(tracks) != 1 || tracks[0].ID != "b" {
			t.Errorf("expected failed candidate skipped, got %+v", tracks)
		}
	})

	t.Run("SkipsShortAndDuplicateCandidates", func(t *testing.T) {
		dup := track("same", "Song", "Artist")
		catalog := &fakeCatalog{hits: map[string][]spotify.Track{
			"Song by Artist":  {dup},
			"Song by Artist.": {dup},
		}}

		resolver := NewResolver(catalog, nil)
		tracks, err := resolver.Resolve(context.Background(), "token",
			[]string{"1. Song by Artist", "x", "2. Song by Artist.", ""}, 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(tracks) != 1 {
			t.Errorf("expected duplicate catalog id resolved once, got %d tracks", len(tracks))
		}
		if len(catalog.queries) != 2 {
			t.Errorf("expected short lines to skip the search entirely, got %d searches", len(catalog.queries))
		}
	})

	t.Run("ZeroResolved", func(t *testing.T) {
		catalog := &fakeCatalog{}
		resolver := NewResolver(catalog, nil)

		_, err := resolver.Resolve(context.Background(), "token", []string{"Song by Artist"}, 3)
		if !errors.Is(err, shared.ErrZeroResolved) {
			t.Fatalf("expected ErrZeroResolved, got %v", err)
		}
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		catalog := &fakeCatalog{}
		resolver := NewResolver(catalog, nil)

		_, err := resolver.Resolve(ctx, "token", []string{"Song by Artist"}, 3)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if len(catalog.queries) != 0 {
			t.Errorf("expected no searches after cancellation, got %d", len(catalog.queries))
		}
	})
}

func TestFallback(t *testing.T) {
	payload := Fallback("Recommendations are unavailable right now.", map[string]any{"retry_after": 30})

	if payload["fallback"] != true {
		t.Error("expected fallback flag set")
	}
	if tracks, ok := payload["tracks"].([]any); !ok || len(tracks) != 0 {
		t.Errorf("expected empty tracks slice, got %v", payload["tracks"])
	}
	if items, ok := payload["items"].([]any); !ok || len(items) != 0 {
		t.Errorf("expected empty items slice, got %v", payload["items"])
	}
	if payload["message"] == "" {
		t.Error("expected non-empty message")
	}
	if payload["retry_after"] != 30 {
		t.Errorf("expected extra fields merged, got %v", payload["retry_after"])
	}
}

func TestEngineGenerate(t *testing.T) {
	t.Run("HappyPath", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{
			"Song A by Artist\nSong B by Artist",
			"They share a driving tempo.",
		}}
		catalog := &fakeCatalog{hits: map[string][]spotify.Track{
			"Song A by Artist": {track("a", "Song A", "Artist")},
			"Song B by Artist": {track("b", "Song B", "Artist")},
		}}
		engine := NewEngine(&fakeTokens{token: "tk"}, catalog, NewSuggester(completer, nil), nil)

		result, err := engine.Generate(context.Background(), pipelineUser(t), "driving synthwave", 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Fallback != nil {
			t.Fatal("expected no fallback on the happy path")
		}
		if len(result.Tracks) != 2 || result.Tracks[0].ID != "a" {
			t.Errorf("unexpected tracks: %+v", result.Tracks)
		}
		if result.Explanation != "They share a driving tempo." {
			t.Errorf("unexpected explanation %q", result.Explanation)
		}
	})

	t.Run("NotConnected", func(t *testing.T) {
		engine := NewEngine(&fakeTokens{err: shared.ErrNotConnected}, &fakeCatalog{},
			NewSuggester(&fakeCompleter{replies: []string{""}}, nil), nil)

		_, err := engine.Generate(context.Background(), pipelineUser(t), "anything", 5)
		if !errors.Is(err, shared.ErrNotConnected) {
			t.Fatalf("expected ErrNotConnected, got %v", err)
		}
	})

	t.Run("ModelFailureFallsBack", func(t *testing.T) {
		completer := &fakeCompleter{err: shared.ErrUpstream}
		engine := NewEngine(&fakeTokens{token: "tk"}, &fakeCatalog{}, NewSuggester(completer, nil), nil)

		result, err := engine.Generate(context.Background(), pipelineUser(t), "anything", 5)
		if err != nil {
			t.Fatalf("expected degraded result, got error %v", err)
		}
		if result.Fallback == nil || result.Fallback["fallback"] != true {
			t.Fatalf("expected fallback shape, got %+v", result)
		}
	})

	t.Run("ZeroResolvedFallsBack", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{"Song A by Artist"}}
		engine := NewEngine(&fakeTokens{token: "tk"}, &fakeCatalog{}, NewSuggester(completer, nil), nil)

		result, err := engine.Generate(context.Background(), pipelineUser(t), "anything", 5)
		if err != nil {
			t.Fatalf("expected degraded result, got error %v", err)
		}
		if result.Fallback == nil {
			t.Fatal("expected fallback when nothing resolves")
		}
		if message, _ := result.Fallback["message"].(string); message == "" {
			t.Error("expected non-empty fallback message")
		}
	})

	t.Run("ExplanationFailureTolerated", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{"Song A by Artist"}, failAfter: 1}
		catalog := &fakeCatalog{hits: map[string][]spotify.Track{
			"Song A by Artist": {track("a", "Song A", "Artist")},
		}}
		engine := NewEngine(&fakeTokens{token: "tk"}, catalog, NewSuggester(completer, nil), nil)

		result, err := engine.Generate(context.Background(), pipelineUser(t), "anything", 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Fallback != nil {
			t.Fatal("expected no fallback when only the explanation fails")
		}
		if len(result.Tracks) != 1 || result.Explanation != "" {
			t.Errorf("expected tracks with empty explanation, got %d tracks, %q", len(result.Tracks), result.Explanation)
		}
	})
}

func TestEngineRefine(t *testing.T) {
	t.Run("ReplaysHistoryAndResolves", func(t *testing.T) {
		completer := &fakeCompleter{replies: []string{
			"Song C by Artist\nSong D by Artist",
			"They drop the vocals as requested.",
		}}
		catalog := &fakeCatalog{hits: map[string][]spotify.Track{
			"Song C by Artist": {track("c", "Song C", "Artist")},
			"Song D by Artist": {track("d", "Song D", "Artist")},
		}}
		engine := NewEngine(&fakeTokens{token: "tk"}, catalog, NewSuggester(completer, nil), nil)

		current := []string{"Song A by Artist", "Song B by Artist"}
		result, err := engine.Refine(context.Background(), pipelineUser(t), "driving synthwave", current, "no vocals please", 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Fallback != nil {
			t.Fatal("expected no fallback on successful refinement")
		}
		if len(result.Tracks) != 2 || result.Tracks[0].ID != "c" {
			t.Errorf("unexpected tracks: %+v", result.Tracks)
		}

		messages := completer.prompts[0].Messages
		if len(messages) != 4 {
			t.Fatalf("expected 4 conversation messages, got %d", len(messages))
		}
		if messages[2].Role != "assistant" || messages[2].Content != "Song A by Artist\nSong B by Artist" {
			t.Errorf("expected prior suggestions replayed, got %+v", messages[2])
		}
		if messages[3].Content != "no vocals please" {
			t.Errorf("expected feedback as final message, got %+v", messages[3])
		}
	})

	t.Run("FeedbackRequired", func(t *testing.T) {
		engine := NewEngine(&fakeTokens{token: "tk"}, &fakeCatalog{},
			NewSuggester(&fakeCompleter{replies: []string{""}}, nil), nil)

		_, err := engine.Refine(context.Background(), pipelineUser(t), "anything", nil, "", 5)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("ModelFailureFallsBack", func(t *testing.T) {
		completer := &fakeCompleter{err: shared.ErrUpstream}
		engine := NewEngine(&fakeTokens{token: "tk"}, &fakeCatalog{}, NewSuggester(completer, nil), nil)

		result, err := engine.Refine(context.Background(), pipelineUser(t), "anything", nil, "more energy", 5)
		if err != nil {
			t.Fatalf("expected degraded result, got error %v", err)
		}
		if result.Fallback == nil || result.Fallback["fallback"] != true {
			t.Fatalf("expected fallback shape, got %+v", result)
		}
	})
}

func TestEngineMaterialize(t *testing.T) {
	tracks := []spotify.Track{track("a", "Song A", "Artist"), track("b", "Song B", "Artist")}

	t.Run("CreatesAndAdds", func(t *testing.T) {
		catalog := &fakeCatalog{}
		engine := NewEngine(&fakeTokens{token: "tk"}, catalog,
			NewSuggester(&fakeCompleter{replies: []string{""}}, nil), nil)

		playlist, err := engine.Materialize(context.Background(), pipelineUser(t), "Focus Mix", "desc", tracks)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if playlist.ID != "pl1" {
			t.Errorf("expected playlist id pl1, got %q", playlist.ID)
		}
		if len(catalog.addedURIs) != 1 || len(catalog.addedURIs[0]) != 2 {
			t.Errorf("expected one add call with 2 uris, got %v", catalog.addedURIs)
		}
		if catalog.addedURIs[0][0] != "spotify:track:a" {
			t.Errorf("expected uri order preserved, got %v", catalog.addedURIs[0])
		}
	})

	t.Run("CreationFailureIsFatal", func(t *testing.T) {
		catalog := &fakeCatalog{playlistErr: shared.ErrUpstream}
		engine := NewEngine(&fakeTokens{token: "tk"}, catalog,
			NewSuggester(&fakeCompleter{replies: []string{""}}, nil), nil)

		if _, err := engine.Materialize(context.Background(), pipelineUser(t), "Focus Mix", "desc", tracks); err == nil {
			t.Fatal("expected error when playlist creation fails")
		}
	})

	t.Run("NoTracks", func(t *testing.T) {
		engine := NewEngine(&fakeTokens{token: "tk"}, &fakeCatalog{},
			NewSuggester(&fakeCompleter{replies: []string{""}}, nil), nil)

		if _, err := engine.Materialize(context.Background(), pipelineUser(t), "Focus Mix", "desc", nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
