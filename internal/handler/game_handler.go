package handler

import (
	"net/http"
	"strconv"

	"github.com/mveit/entente/internal/auth"
	"github.com/mveit/entente/internal/service"
	"github.com/mveit/entente/pkg/dipmap"
	"github.com/mveit/entente/pkg/engine"
)

// GameHandler handles game endpoints.
type GameHandler struct {
	svc *service.GameService
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(svc *service.GameService) *GameHandler {
	return &GameHandler{svc: svc}
}

func parseGameID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil
}

// CreateGame handles POST /api/v1/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Name  string   `json:"name"`
		Map   string   `json:"map"`
		Users []string `json:"users,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Map == "" {
		writeError(w, http.StatusBadRequest, "map is required")
		return
	}
	users := req.Users
	if !contains(users, userID) {
		users = append(users, userID)
	}

	game, err := h.svc.CreateGame(r.Context(), req.Name, req.Map, users)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game.Sanitized(userID))
}

// ListGames handles GET /api/v1/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.ListGames(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if games == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, games)
}

// GetGame handles GET /api/v1/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	game, err := h.svc.GetGame(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// DeleteGame handles DELETE /api/v1/games/{id}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := h.svc.DeleteGame(r.Context(), id, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ClaimCountry handles POST /api/v1/games/{id}/claim
func (h *GameHandler) ClaimCountry(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Country string `json:"country"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Country == "" {
		writeError(w, http.StatusBadRequest, "country is required")
		return
	}
	game, err := h.svc.ClaimCountry(r.Context(), id, userID, req.Country)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

// SubmitOrders handles POST /api/v1/games/{id}/orders
func (h *GameHandler) SubmitOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Orders []*engine.Order `json:"orders"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Orders) == 0 {
		writeError(w, http.StatusBadRequest, "orders are required")
		return
	}
	if err := h.svc.SubmitOrders(r.Context(), id, userID, req.Orders); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "submitted"})
}

// MarkReady handles POST /api/v1/games/{id}/ready
func (h *GameHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := h.svc.MarkReady(r.Context(), id, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// UnmarkReady handles DELETE /api/v1/games/{id}/ready
func (h *GameHandler) UnmarkReady(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := h.svc.UnmarkReady(r.Context(), id, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "unready"})
}

// VoteDraw handles POST /api/v1/games/{id}/draw/vote
func (h *GameHandler) VoteDraw(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := h.svc.VoteDraw(r.Context(), id, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "voted"})
}

// UnvoteDraw handles DELETE /api/v1/games/{id}/draw/vote
func (h *GameHandler) UnvoteDraw(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := h.svc.UnvoteDraw(r.Context(), id, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// ListMaps handles GET /api/v1/maps
func (h *GameHandler) ListMaps(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"maps": h.svc.MapNames()})
}

// GetMap handles GET /api/v1/maps/{name}
func (h *GameHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	m := h.svc.Map(name)
	if m == nil {
		writeError(w, http.StatusNotFound, "map not found")
		return
	}
	writeJSON(w, http.StatusOK, mapView(m))
}

type provinceView struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Kind         string         `json:"kind"`
	SupplyCenter bool           `json:"supplyCenter"`
	Coasts       []dipmap.Coast `json:"coasts,omitempty"`
	Neighbors    []string       `json:"neighbors"`
}

type countryView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	SupplyCenters []string `json:"supplyCenters"`
}

// mapView flattens a board into its JSON export shape.
func mapView(m *dipmap.Map) map[string]any {
	provinces := make([]provinceView, 0, m.ProvinceCount())
	for _, id := range m.Provinces() {
		p := m.Province(id)
		provinces = append(provinces, provinceView{
			ID:           p.ID,
			Name:         p.Name,
			Kind:         string(p.Kind),
			SupplyCenter: p.SupplyCenter,
			Coasts:       p.Coasts,
			Neighbors:    m.Neighbors(id),
		})
	}
	countries := make([]countryView, 0, len(m.Countries()))
	for _, id := range m.Countries() {
		c := m.Country(id)
		countries = append(countries, countryView{ID: c.ID, Name: c.Name, SupplyCenters: c.SupplyCenters})
	}
	return map[string]any{
		"name":         m.Info.Name,
		"date":         m.Info.Date,
		"provinces":    provinces,
		"countries":    countries,
		"playerCounts": m.PlayerCounts(),
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
