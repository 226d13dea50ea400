package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zedbingo/bingo-engine/models"
	"github.com/zedbingo/bingo-engine/services"
)

// stubGameRepo satisfies services.GameRepository through embedding;
// only the read methods the handlers touch are implemented.
type stubGameRepo struct {
	services.GameRepository
	games []models.Game
}

func (s *stubGameRepo) List(_ context.Context, limit int) ([]models.Game, error) {
	if len(s.games) > limit {
		return s.games[:limit], nil
	}
	return s.games, nil
}

func (s *stubGameRepo) GetByID(_ context.Context, id uint) (*models.Game, error) {
	for i := range s.games {
		if s.games[i].ID == id {
			return &s.games[i], nil
		}
	}
	return nil, nil
}

func gamesRouter(repo services.GameRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	api := &API{Games: repo}
	r := gin.New()
	r.GET("/api/games", api.ListGames)
	r.GET("/api/games/:id", api.GetGame)
	return r
}

func TestListGames(t *testing.T) {
	repo := &stubGameRepo{games: []models.Game{
		{ID: 2, RoomID: 1, Status: models.StatusActive},
		{ID: 1, RoomID: 1, Status: models.StatusFinished},
	}}
	r := gamesRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/games", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []models.Game
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, uint(2), got[0].ID)
	assert.Equal(t, models.StatusActive, got[0].Status)
}

func TestGetGame(t *testing.T) {
	repo := &stubGameRepo{games: []models.Game{
		{ID: 7, RoomID: 3, Status: models.StatusActive},
	}}
	r := gamesRouter(repo)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/games/7", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Game
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, uint(7), got.ID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/games/404", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/games/not-a-number", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
