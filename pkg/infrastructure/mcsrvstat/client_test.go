package mcsrvstat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const onlinePayload = `{
	"ip": "203.0.113.7",
	"port": 25565,
	"motd": {"clean": ["Craft Club"]},
	"players": {"online": 2, "max": 20, "list": ["alex", "steve"]},
	"version": "1.20.4",
	"online": true,
	"hostname": "play.example.net"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL + "/2", Logger: zerolog.Nop()})
}

func TestClient_Status(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/play.example.net:25565", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "statusbot")
		_, _ = w.Write([]byte(onlinePayload))
	})

	status, err := client.Status(context.Background(), "play.example.net:25565")
	require.NoError(t, err)
	assert.True(t, status.Online)
	assert.Equal(t, "203.0.113.7:25565", status.Address())
	assert.Equal(t, []string{"alex", "steve"}, status.Players.List)
}

func TestClient_StatusOffline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"","port":0,"online":false,"hostname":"down.example.net"}`))
	})

	status, err := client.Status(context.Background(), "down.example.net")
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.Equal(t, "down.example.net", status.Address())
}

func TestClient_StatusErrors(t *testing.T) {
	t.Run("empty address", func(t *testing.T) {
		client := NewClient(Config{Logger: zerolog.Nop()})
		_, err := client.Status(context.Background(), "  ")
		assert.Equal(t, errors.CodeMissingParameter, errors.CodeOf(err))
	})

	t.Run("non-200", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		_, err := client.Status(context.Background(), "x")
		assert.Equal(t, errors.CodeOperationFailed, errors.CodeOf(err))
	})

	t.Run("bad json", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"online": "maybe"`))
		})
		_, err := client.Status(context.Background(), "x")
		assert.Equal(t, errors.CodeTypeConversionFailed, errors.CodeOf(err))
	})
}
