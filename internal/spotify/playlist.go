package spotify

import (
	"context"
	"net/http"
	"net/url"
)

const (
	// maxDescriptionLen is the provider's playlist description limit.
	maxDescriptionLen = 300

	// addTracksBatchSize is the provider's per-call limit for adding tracks.
	addTracksBatchSize = 100
)

// TruncateDescription enforces the provider's description limit, truncating
// with a trailing ellipsis when the text is too long. The limit counts
// characters, not bytes, so truncation never splits a rune.
func TruncateDescription(description string) string {
	runes := []rune(description)
	if len(runes) <= maxDescriptionLen {
		return description
	}
	return string(runes[:maxDescriptionLen-3]) + "..."
}

// CreatePlaylist creates a private playlist under the given Spotify user.
func (c *Client) CreatePlaylist(ctx context.Context, token, spotifyUserID, name, description string) (*Playlist, error) {
	if name == "" {
		name = "Flowbeat Mix"
	}

	body := map[string]any{
		"name":        name,
		"description": TruncateDescription(description),
		"public":      false,
	}

	endpoint := "/users/" + url.PathEscape(spotifyUserID) + "/playlists"

	var playlist Playlist
	if err := c.call(ctx, http.MethodPost, endpoint, token, body, &playlist); err != nil {
		return nil, err
	}

	return &playlist, nil
}

// AddTracks appends track URIs to a playlist in batches of at most 100.
//
// A failed batch is logged and skipped; the remaining batches are still
// attempted, so the playlist may end up with fewer tracks than requested.
// The number of URIs actually accepted is returned.
func (c *Client) AddTracks(ctx context.Context, token, playlistID string, uris []string) (int, error) {
	endpoint := "/playlists/" + url.PathEscape(playlistID) + "/tracks"

	added := 0
	for start := 0; start < len(uris); start += addTracksBatchSize {
		end := start + addTracksBatchSize
		if end > len(uris) {
			end = len(uris)
		}
		batch := uris[start:end]

		body := map[string]any{"uris": batch}
		if err := c.call(ctx, http.MethodPost, endpoint, token, body, nil); err != nil {
			c.logger.Warn("failed to add track batch",
				"playlist", playlistID, "batch", start/addTracksBatchSize+1, "size", len(batch), "error", err)
			continue
		}
		added += len(batch)
	}

	return added, nil
}
