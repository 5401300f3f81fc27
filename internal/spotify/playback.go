package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"flowbeat/internal/shared"
)

// PlaybackCommand describes one player control operation. Position carries
// the target milliseconds for seek and the target percent for volume.
type PlaybackCommand struct {
	Action    string
	TrackURIs []string
	DeviceID  string
	Position  int
}

// Playback retrieves the current playback state. An idle player answers 204
// upstream and yields a zero state rather than an error.
func (c *Client) Playback(ctx context.Context, token string) (*PlaybackState, error) {
	var state PlaybackState
	if err := c.call(ctx, http.MethodGet, "/me/player", token, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ControlPlayback issues a player control command: play (optionally on a
// device with a fresh track list), pause, next, previous, seek, or volume.
func (c *Client) ControlPlayback(ctx context.Context, token string, cmd PlaybackCommand) error {
	method := http.MethodPut
	endpoint := ""
	var body any

	switch cmd.Action {
	case "play":
		endpoint = "/me/player/play"
		if cmd.DeviceID != "" {
			endpoint += "?device_id=" + url.QueryEscape(cmd.DeviceID)
		}
		if len(cmd.TrackURIs) > 0 {
			body = map[string]any{"uris": cmd.TrackURIs}
		}
	case "pause":
		endpoint = "/me/player/pause"
	case "next":
		method = http.MethodPost
		endpoint = "/me/player/next"
	case "previous":
		method = http.MethodPost
		endpoint = "/me/player/previous"
	case "seek":
		endpoint = "/me/player/seek?position_ms=" + strconv.Itoa(cmd.Position)
	case "volume":
		endpoint = "/me/player/volume?volume_percent=" + strconv.Itoa(cmd.Position)
	default:
		return fmt.Errorf("%w: unknown playback action %q", shared.ErrInvalidArgument, cmd.Action)
	}

	return c.call(ctx, method, endpoint, token, body, nil)
}
