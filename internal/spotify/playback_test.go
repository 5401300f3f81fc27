package spotify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flowbeat/internal/shared"
)

func TestPlayback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/player" {
			t.Errorf("expected /me/player, got %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"is_playing": true,
			"progress_ms": 42000,
			"device": {"id": "d1", "name": "Kitchen", "is_active": true, "volume_percent": 70},
			"item": {"id": "t1", "name": "Song", "artists": [{"name": "Artist"}], "uri": "spotify:track:t1"}
		}`))
	}))
	defer server.Close()

	client := NewClient(ClientOpts{BaseURL: server.URL})

	state, err := client.Playback(context.Background(), "token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !state.Playing || state.ProgressMS != 42000 {
		t.Errorf("unexpected state: %+v", state)
	}
	if state.Device == nil || state.Device.Name != "Kitchen" {
		t.Errorf("unexpected device: %+v", state.Device)
	}
	if state.Item == nil || state.Item.ID != "t1" {
		t.Errorf("unexpected item: %+v", state.Item)
	}
}

func TestPlaybackIdle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(ClientOpts{BaseURL: server.URL})

	state, err := client.Playback(context.Background(), "token")
	if err != nil {
		t.Fatalf("expected no error for idle player, got %v", err)
	}

	if state.Playing {
		t.Error("expected idle player to report not playing")
	}
	if state.Device != nil || state.Item != nil {
		t.Errorf("expected empty state, got %+v", state)
	}
}

func TestControlPlayback(t *testing.T) {
	cases := []struct {
		name       string
		cmd        PlaybackCommand
		wantMethod string
		wantURL    string
		wantBody   string
	}{
		{
			name:       "Play",
			cmd:        PlaybackCommand{Action: "play"},
			wantMethod: http.MethodPut,
			wantURL:    "/me/player/play",
		},
		{
			name:       "PlayWithDeviceAndTracks",
			cmd:        PlaybackCommand{Action: "play", DeviceID: "d1", TrackURIs: []string{"spotify:track:t1"}},
			wantMethod: http.MethodPut,
			wantURL:    "/me/player/play?device_id=d1",
			wantBody:   `"uris":["spotify:track:t1"]`,
		},
		{
			name:       "Pause",
			cmd:        PlaybackCommand{Action: "pause"},
			wantMethod: http.MethodPut,
			wantURL:    "/me/player/pause",
		},
		{
			name:       "Next",
			cmd:        PlaybackCommand{Action: "next"},
			wantMethod: http.MethodPost,
			wantURL:    "/me/player/next",
		},
		{
			name:       "Previous",
			cmd:        PlaybackCommand{Action: "previous"},
			wantMethod: http.MethodPost,
			wantURL:    "/me/player/previous",
		},
		{
			name:       "Seek",
			cmd:        PlaybackCommand{Action: "seek", Position: 30000},
			wantMethod: http.MethodPut,
			wantURL:    "/me/player/seek?position_ms=30000",
		},
		{
			name:       "Volume",
			cmd:        PlaybackCommand{Action: "volume", Position: 65},
			wantMethod: http.MethodPut,
			wantURL:    "/me/player/volume?volume_percent=65",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotMethod, gotURL, gotBody string

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotURL = r.URL.String()
				body, _ := io.ReadAll(r.Body)
				gotBody = string(body)
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			client := NewClient(ClientOpts{BaseURL: server.URL})

			if err := client.ControlPlayback(context.Background(), "token", tc.cmd); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if gotMethod != tc.wantMethod {
				t.Errorf("expected method %s, got %s", tc.wantMethod, gotMethod)
			}
			if gotURL != tc.wantURL {
				t.Errorf("expected url %s, got %s", tc.wantURL, gotURL)
			}
			if tc.wantBody != "" && !strings.Contains(gotBody, tc.wantBody) {
				t.Errorf("expected body to contain %s, got %s", tc.wantBody, gotBody)
			}
		})
	}
}

func TestControlPlaybackUnknownAction(t *testing.T) {
	client := NewClient(ClientOpts{BaseURL: "http://unused"})

	err := client.ControlPlayback(context.Background(), "token", PlaybackCommand{Action: "shuffle-dance"})
	if err == nil {
		t.Fatal("expected error for unknown action, got nil")
	}
	if !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
