package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureResult(t *testing.T) {
	cases := []struct {
		name string
		body string
		want MatchResult
	}{
		{"home win", `{"status":"finished","home_goals":2,"away_goals":0}`, ResultHomeWin},
		{"away win", `{"status":"finished","home_goals":1,"away_goals":3}`, ResultAwayWin},
		{"draw", `{"status":"finished","home_goals":1,"away_goals":1}`, ResultDraw},
		{"postponed", `{"status":"postponed"}`, ResultVoid},
		{"abandoned", `{"status":"abandoned","home_goals":1,"away_goals":0}`, ResultVoid},
		{"scheduled", `{"status":"scheduled"}`, ResultPending},
		{"in play", `{"status":"in_play","home_goals":1,"away_goals":0}`, ResultPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/fixtures/result", r.URL.Path)
				assert.Equal(t, "home-1", r.URL.Query().Get("home"))
				assert.Equal(t, "away-2", r.URL.Query().Get("away"))
				assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewHTTPClient(srv.URL, "test-key")
			result, err := client.FixtureResult(context.Background(), "home-1", "away-2")
			require.NoError(t, err)
			assert.Equal(t, tc.want, result)
		})
	}
}

func TestFixtureResultFeedErrors(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewHTTPClient(srv.URL, "")
		_, err := client.FixtureResult(context.Background(), "home-1", "away-2")
		assert.ErrorIs(t, err, ErrFeedUnavailable)
	})

	t.Run("malformed payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		client := NewHTTPClient(srv.URL, "")
		_, err := client.FixtureResult(context.Background(), "home-1", "away-2")
		assert.ErrorIs(t, err, ErrFeedUnavailable)
	})

	t.Run("unreachable feed", func(t *testing.T) {
		client := NewHTTPClient("http://127.0.0.1:1", "")
		_, err := client.FixtureResult(context.Background(), "home-1", "away-2")
		assert.ErrorIs(t, err, ErrFeedUnavailable)
	})
}
