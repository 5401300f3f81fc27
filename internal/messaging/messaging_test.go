package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowbeat/internal/shared"
)

func TestReady(t *testing.T) {
	t.Run("Connected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/status", r.URL.Path)
			w.Write([]byte(`{"ready":true,"connected":true}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, nil)

		status, err := client.Ready(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Ready)
		assert.True(t, status.Connected)
	})

	t.Run("BridgeDown", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		client := NewClient(server.URL, nil)

		_, err := client.Ready(context.Background())
		require.ErrorIs(t, err, shared.ErrServiceUnavailable)
	})
}

func TestSend(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var gotBody map[string]string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/send", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`{"ok":true}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, nil)

		require.NoError(t, client.Send(context.Background(), "+15551234567", "Weekly focus report"))
		assert.Equal(t, "+15551234567", gotBody["phone_number"])
		assert.Equal(t, "Weekly focus report", gotBody["message"])
	})

	t.Run("MissingArguments", func(t *testing.T) {
		client := NewClient("http://unused", nil)

		require.ErrorIs(t, client.Send(context.Background(), "", "hi"), shared.ErrMissingArgument)
		require.ErrorIs(t, client.Send(context.Background(), "+15551234567", ""), shared.ErrMissingArgument)
	})
}
