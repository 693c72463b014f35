package nps

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-parks/internal/logging"
	"github.com/joeblew999/plat-parks/internal/service"
)

func newTestClient(url string) *Client {
	c := NewClient("test-key")
	c.BaseURL = url
	return c
}

func TestClient_Parks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parks", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "addresses,images", r.URL.Query().Get("fields"))
		assert.Equal(t, "OR", r.URL.Query().Get("stateCode"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"total": "2",
			"limit": "100",
			"start": "0",
			"data": []Park{
				record("crla", "lat:42.9, long:-122.1", "OR"),
				record("far", "lat:27, long:-80", "FL"),
			},
		})
	}))
	defer server.Close()

	parks, err := newTestClient(server.URL).Parks(context.Background())

	require.NoError(t, err)
	require.Len(t, parks, 1)
	assert.Equal(t, "crla", parks[0].ID)
}

func TestClient_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "API_KEY_INVALID", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Parks(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "API_KEY_INVALID")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Parks(context.Background())

	assert.ErrorIs(t, err, ErrParse)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.HTTP = &http.Client{Timeout: 20 * time.Millisecond}

	_, err := c.Parks(context.Background())

	assert.ErrorIs(t, err, ErrUnavailable)
}

type fetcherFunc func(ctx context.Context) ([]service.ParkData, error)

func (f fetcherFunc) Parks(ctx context.Context) ([]service.ParkData, error) { return f(ctx) }

type recordingArchive struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *recordingArchive) ArchiveParks(ctx context.Context, parks []service.ParkData) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.err
}

func (a *recordingArchive) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func TestRepository_MemoizesSuccess(t *testing.T) {
	var calls atomic.Int32
	fetcher := fetcherFunc(func(ctx context.Context) ([]service.ParkData, error) {
		calls.Add(1)
		return []service.ParkData{{ID: "a"}}, nil
	})
	archive := &recordingArchive{}
	repo := NewRepository(fetcher, archive, &logging.Nop)

	for i := 0; i < 3; i++ {
		parks, err := repo.Parks(context.Background())
		require.NoError(t, err)
		require.Len(t, parks, 1)
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Eventually(t, func() bool { return archive.count() == 1 }, time.Second, 5*time.Millisecond)

	cached, ok := repo.Cached()
	assert.True(t, ok)
	assert.Equal(t, "a", cached[0].ID)
}

func TestRepository_SharesInflightFetch(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	fetcher := fetcherFunc(func(ctx context.Context) ([]service.ParkData, error) {
		calls.Add(1)
		<-release
		return []service.ParkData{{ID: "a"}, {ID: "b"}}, nil
	})
	repo := NewRepository(fetcher, nil, &logging.Nop)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parks, err := repo.Parks(context.Background())
			assert.NoError(t, err)
			assert.Len(t, parks, 2)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestRepository_FailureNotCached(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	fetcher := fetcherFunc(func(ctx context.Context) ([]service.ParkData, error) {
		if calls.Add(1) == 1 {
			return nil, boom
		}
		return []service.ParkData{{ID: "a"}}, nil
	})
	archive := &recordingArchive{}
	repo := NewRepository(fetcher, archive, &logging.Nop)

	_, err := repo.Parks(context.Background())
	require.ErrorIs(t, err, boom)
	_, ok := repo.Cached()
	assert.False(t, ok)

	parks, err := repo.Parks(context.Background())
	require.NoError(t, err)
	assert.Len(t, parks, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRepository_ArchiveFailureIgnored(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context) ([]service.ParkData, error) {
		return []service.ParkData{{ID: "a"}}, nil
	})
	archive := &recordingArchive{err: errors.New("disk full")}
	repo := NewRepository(fetcher, archive, &logging.Nop)

	parks, err := repo.Parks(context.Background())

	require.NoError(t, err)
	assert.Len(t, parks, 1)
}

func TestRepository_CallerContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	fetcher := fetcherFunc(func(ctx context.Context) ([]service.ParkData, error) {
		<-release
		return nil, nil
	})
	repo := NewRepository(fetcher, nil, &logging.Nop)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := repo.Parks(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
