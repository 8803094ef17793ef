package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heroindex/internal"
	"heroindex/internal/config"
	"heroindex/internal/roster"
	"heroindex/internal/storage"
	"heroindex/internal/taxonomy"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.UpsertHeroes([]internal.Hero{
		{APIID: 70, Name: "Batman", Publisher: "DC Comics", Alignment: "good", PowerStats: map[string]int{"speed": 27}, Teams: []string{"Justice League", "Batman Family"}},
		{APIID: 38, Name: "Aquaman", Publisher: "DC Comics", Alignment: "good", PowerStats: map[string]int{"speed": 79}, Teams: []string{"Justice League"}},
		{APIID: 60, Name: "Bane", Publisher: "DC Comics", Alignment: "bad", PowerStats: map[string]int{}},
		{APIID: 1, Name: "A-Bomb", Publisher: "Marvel Comics", Alignment: "good", PowerStats: map[string]int{"speed": 17}, Teams: []string{"Hulk Family"}},
	}))

	cfg := config.Config{HeroBatchSize: 2}
	return New(db, cfg, taxonomy.Default(), nil)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestListHeroes(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		path string
		want []string
	}{
		{name: "default name order", path: "/heroes", want: []string{"A-Bomb", "Aquaman", "Bane", "Batman"}},
		{name: "search", path: "/heroes?q=BA", want: []string{"Bane", "Batman"}},
		{name: "speed desc", path: "/heroes?sort=speed&dir=desc", want: []string{"Aquaman", "Batman", "A-Bomb", "Bane"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, tc.path, nil)
			require.Equal(t, http.StatusOK, w.Code)
			got := decode[heroList](t, w)
			var names []string
			for _, h := range got.Heroes {
				names = append(names, h.Name)
			}
			assert.Equal(t, tc.want, names)
			assert.Equal(t, 4, got.Total)
		})
	}

	w := do(t, s, http.MethodGet, "/heroes?sort=height", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHero(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/heroes/70", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Batman", decode[internal.Hero](t, w).Name)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/heroes/999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/heroes/batman", nil).Code)
}

func TestListTeams(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/teams?publisher=DC%20Comics&alignment=good", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode[[]internal.TeamGroup](t, w)
	require.Len(t, groups, 2)
	assert.Equal(t, "Justice League", groups[0].Team)
	assert.Len(t, groups[0].Heroes, 2)

	w = do(t, s, http.MethodGet, "/teams?publisher=dc%20comics&alignment=Good", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]internal.TeamGroup](t, w), 2)

	w = do(t, s, http.MethodGet, "/teams?alignment=BAD", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups = decode[[]internal.TeamGroup](t, w)
	require.Len(t, groups, 1)
	assert.Equal(t, internal.Unaffiliated, groups[0].Team)

	w = do(t, s, http.MethodGet, "/teams?publisher=Image", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCanonicalizeEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/canonicalize", []any{
		"Avengers (formerly), Secret Avengers",
		"ally of Spider-Man",
		"Thunderbolts/Dark Avengers",
		"Some Random Guild",
		42,
		nil,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Avengers", "Some Random Guild", "Thunderbolts"}, decode[[]string](t, w))

	w = do(t, s, http.MethodPost, "/canonicalize", []any{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, s, http.MethodPost, "/canonicalize", map[string]any{"teams": "Avengers"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsersAndNotesFlow(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/users", map[string]any{"email": "bruce@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/users", map[string]any{"email": "bruce@example.com", "password": "pw", "stats": map[string]int{"Strength": 100000, "Bogus": -5}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	stats := map[string]int{"Intelligence": 100, "Strength": 40, "Speed": 30, "Durability": 40, "Power": 30, "Combat": 90}
	w = do(t, s, http.MethodPost, "/users", map[string]any{"email": "bruce@example.com", "password": "pw", "heroName": "Bat", "stats": stats})
	require.Equal(t, http.StatusCreated, w.Code)
	user := decode[internal.UserProfile](t, w)
	require.NotEmpty(t, user.UID)

	w = do(t, s, http.MethodPatch, "/users/"+user.UID+"/bio", map[string]any{"bio": "night shift"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "night shift", decode[internal.UserProfile](t, w).Bio)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPatch, "/users/ghost/bio", map[string]any{"bio": "x"}).Code)

	w = do(t, s, http.MethodGet, "/leaderboard?q=ba", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[[]internal.LeaderboardEntry](t, w)
	require.Len(t, board, 1)
	assert.Equal(t, 330, board[0].TotalStats)

	notesPath := "/users/" + user.UID + "/notes"
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPost, notesPath, noteInput{HeroAPIID: "70"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/users/ghost/notes", noteInput{HeroAPIID: "70", Title: "x"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPost, "/users/%20/notes", noteInput{HeroAPIID: "70", Title: "x"}).Code)

	w = do(t, s, http.MethodPost, notesPath, noteInput{HeroAPIID: "70", Title: " Detective "})
	require.Equal(t, http.StatusCreated, w.Code)
	note := decode[internal.HeroNote](t, w)
	assert.Equal(t, "Detective", note.Title)

	w = do(t, s, http.MethodPatch, notesPath+"/"+note.ID, noteInput{Description: "world's greatest"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "world's greatest", decode[internal.HeroNote](t, w).Description)

	w = do(t, s, http.MethodGet, notesPath+"?heroId=70", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]internal.HeroNote](t, w), 1)

	w = do(t, s, http.MethodGet, notesPath+"?grouped=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]internal.HeroNote](t, w)["70"], 1)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, notesPath+"/"+note.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, notesPath+"/"+note.ID, nil).Code)

	w = do(t, s, http.MethodGet, notesPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestRunShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestImportRoster(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "roster.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Batman: Justice League (founding member), Outsiders\nBane: League of Assassins\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/roster", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	report := decode[roster.Report](t, w)
	assert.Equal(t, "roster.txt", report.Path)
	require.Len(t, report.Results, 2)
	assert.Equal(t, roster.MatchOK, report.Results[0].Match.Status)
	assert.Equal(t, []string{"Justice League", "Outsiders"}, report.Results[0].Teams)
	assert.Equal(t, 2, report.OK)

	w = do(t, s, http.MethodPost, "/roster", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
