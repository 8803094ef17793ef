package catalog

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heroindex/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() config.Config {
	return config.Config{
		HeroAPIBaseURL:      "https://example.test/api/",
		HeroAPIRateLimitRPS: 1000,
		HeroAPITimeoutMs:    1000,
		HeroBatchSize:       2,
		SyncWorkers:         4,
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func fixture(t *testing.T) string {
	t.Helper()
	blob, err := os.ReadFile(filepath.Join("testdata", "all.json"))
	require.NoError(t, err)
	return string(blob)
}

func TestGetAllHeroesWithRetry(t *testing.T) {
	body := fixture(t)
	attempt := 0

	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/all.json" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			attempt++
			if attempt == 1 {
				return jsonResponse(http.StatusServiceUnavailable, `{"error":"busy"}`), nil
			}
			return jsonResponse(http.StatusOK, body), nil
		}),
	}

	heroes, err := client.GetAllHeroes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, attempt)
	require.Len(t, heroes, 3, "blank names and missing ids are skipped")

	bomb := heroes[0]
	assert.Equal(t, 1, bomb.APIID)
	assert.Equal(t, "Marvel Comics", bomb.Publisher)
	assert.Equal(t, 100, bomb.PowerStats["strength"])
	require.Len(t, bomb.RawAffiliations, 1)
	assert.True(t, strings.HasPrefix(bomb.RawAffiliations[0], "Hulk Family;"))
	assert.Empty(t, bomb.Teams, "the client does not canonicalize")

	nobody := heroes[2]
	assert.Empty(t, nobody.Publisher)
	assert.Empty(t, nobody.PowerStats)
	assert.Empty(t, nobody.RawAffiliations)
}

func TestGetAllHeroesNonRetryableStatus(t *testing.T) {
	attempt := 0
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			attempt++
			return jsonResponse(http.StatusNotFound, `not found`), nil
		}),
	}

	_, err := client.GetAllHeroes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=404")
	assert.Equal(t, 1, attempt)
}

func TestGetAllHeroesCancelled(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, ``), nil
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.GetAllHeroes(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetHero(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/id/70.json" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			return jsonResponse(http.StatusOK, `{"id":70,"name":"Batman","teams":["Justice League",7,"-"]}`), nil
		}),
	}

	hero, err := client.GetHero(context.Background(), 70)
	require.NoError(t, err)
	assert.Equal(t, "Batman", hero.Name)
	assert.Equal(t, []string{"Justice League"}, hero.RawAffiliations)
}
