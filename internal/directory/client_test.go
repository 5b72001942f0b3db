package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kantai/blockstack-search-indexer/internal/model"
)

// listingServer serves /v1/names pages out of the given page table and
// counts requests. Pages beyond the table are empty.
func listingServer(t *testing.T, pages map[int][]string, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		var page int
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		names := pages[page]
		if names == nil {
			names = []string{}
		}
		json.NewEncoder(w).Encode(names)
	}))
}

func TestEnumerate(t *testing.T) {
	ctx := context.Background()
	pages := map[int][]string{
		0: {"a.id", "b.id"},
		1: {"c.id"},
		2: {"d.id", "e.id"},
	}

	t.Run("stops on empty page", func(t *testing.T) {
		srv := listingServer(t, pages, nil)
		defer srv.Close()

		names, err := NewClient(srv.URL).Enumerate(ctx, model.KindNames, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.id", "b.id", "c.id", "d.id", "e.id"}, names)
	})

	t.Run("page cap limits to pages before the cap", func(t *testing.T) {
		srv := listingServer(t, pages, nil)
		defer srv.Close()

		names, err := NewClient(srv.URL).Enumerate(ctx, model.KindNames, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.id", "b.id", "c.id"}, names)
	})

	t.Run("page cap zero fetches nothing", func(t *testing.T) {
		var requests atomic.Int64
		srv := listingServer(t, pages, &requests)
		defer srv.Close()

		names, err := NewClient(srv.URL).Enumerate(ctx, model.KindNames, 0)
		require.NoError(t, err)
		assert.Empty(t, names)
		assert.Zero(t, requests.Load())
	})

	t.Run("empty page wins over a larger cap", func(t *testing.T) {
		srv := listingServer(t, map[int][]string{0: {"a.id"}}, nil)
		defer srv.Close()

		names, err := NewClient(srv.URL).Enumerate(ctx, model.KindNames, 50)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.id"}, names)
	})

	t.Run("page failure propagates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "1" {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode([]string{"a.id"})
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Enumerate(ctx, model.KindNames, -1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "page 1")
	})

	t.Run("kind selects the endpoint", func(t *testing.T) {
		var paths []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			json.NewEncoder(w).Encode([]string{})
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Enumerate(ctx, model.KindSubdomains, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"/v1/subdomains"}, paths)
	})
}

func TestLookupProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("unwraps core response shape", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/users/alice.id", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{
				"alice": map[string]any{
					"profile": map[string]any{"name": "Alice"},
				},
			})
		}))
		defer srv.Close()

		profile, err := NewClient(srv.URL).LookupProfile(ctx, "alice.id")
		require.NoError(t, err)
		assert.Equal(t, "Alice", profile["name"])
	})

	t.Run("plain profile body passes through", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"name": "Bob"})
		}))
		defer srv.Close()

		profile, err := NewClient(srv.URL).LookupProfile(ctx, "bob.test")
		require.NoError(t, err)
		assert.Equal(t, "Bob", profile["name"])
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		block := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		}))
		defer srv.Close()
		defer close(block)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewClient(srv.URL).LookupProfile(cctx, "alice.id")
		require.Error(t, err)
	})
}
