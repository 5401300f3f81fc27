// Spotify Web API payload types, based on
// https://developer.spotify.com/documentation/web-api/reference/

package spotify

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}

// Album represents a Spotify album.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images,omitempty"`
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album,omitempty"`
	DurationMS int      `json:"duration_ms,omitempty"`
	URI        string   `json:"uri"`
}

// ArtistNames joins the track's artist names for display.
func (t Track) ArtistNames() string {
	names := ""
	for i, a := range t.Artists {
		if i > 0 {
			names += ", "
		}
		names += a.Name
	}
	return names
}

// SearchResult represents the track portion of a search response.
type SearchResult struct {
	Tracks struct {
		Items []Track `json:"items"`
	} `json:"tracks"`
}

// Profile represents the authenticated user's Spotify profile.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Product     string `json:"product"`
}

// Playlist represents a created playlist.
type Playlist struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Public       bool   `json:"public"`
	URI          string `json:"uri"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// PagedTracks represents a paginated track listing (e.g. top tracks).
type PagedTracks struct {
	Items []Track `json:"items"`
	Total int     `json:"total"`
}

// Device represents a playback device.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"is_active"`
	Volume int    `json:"volume_percent"`
}

// PlaybackState represents the player's current state. An idle player yields
// the zero value: nothing playing, no device, no item.
type PlaybackState struct {
	Playing    bool    `json:"is_playing"`
	ProgressMS int     `json:"progress_ms"`
	Device     *Device `json:"device,omitempty"`
	Item       *Track  `json:"item,omitempty"`
}

// tokenResponse is the token-exchange endpoint's payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}
