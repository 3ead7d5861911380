package web

import (
	"net/http"
	"strconv"
	"strings"

	"pzadmin/internal/storage"
	"pzadmin/internal/transports/common"
)

type ticketRequest struct {
	Author  string `json:"author"`
	Message string `json:"message"`
}

type ticketStatusRequest struct {
	Status string `json:"status"`
}

type playerRequest struct {
	SteamID string `json:"steam_id"`
	Name    string `json:"name"`
	Banned  bool   `json:"banned"`
}

type statsRequest struct {
	Profession    string  `json:"profession"`
	ZombieKills   int     `json:"zombie_kills"`
	HoursSurvived float64 `json:"hours_survived"`
}

type sandboxRequest struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

func writeItem(w http.ResponseWriter, r *http.Request, status int, item interface{}) {
	writeJSON(w, r, status, map[string]interface{}{
		"request_id": common.RequestIDFrom(r.Context()),
		"item":       item,
	})
}

func writeItems(w http.ResponseWriter, r *http.Request, items interface{}) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"request_id": common.RequestIDFrom(r.Context()),
		"items":      items,
	})
}

func writeNoContent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Request-ID", common.RequestIDFrom(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func ticketID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (a *Adapter) handleListTickets(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !storage.ValidTicketStatus(status) {
		writeError(w, r, http.StatusBadRequest, "invalid_status")
		return
	}
	tickets, err := a.store.ListTickets(r.Context(), status)
	if err != nil {
		a.storeError(w, r, err, "ticket_not_found")
		return
	}
	writeItems(w, r, tickets)
}

func (a *Adapter) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if code, status := decodeJSON(r, &req); code != "" {
		writeError(w, r, status, code)
		return
	}
	if strings.TrimSpace(req.Author) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_ticket")
		return
	}
	t, err := a.store.CreateTicket(r.Context(), storage.Ticket{Author: req.Author, Message: req.Message})
	if err != nil {
		a.writeAudit(r.Context(), "web:ticket_create", "error", nil)
		a.storeError(w, r, err, "ticket_not_found")
		return
	}
	a.writeAudit(r.Context(), "web:ticket_create", "ok", map[string]int64{"id": t.ID})
	writeItem(w, r, http.StatusCreated, t)
}

func (a *Adapter) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := ticketID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "bad_id")
		return
	}
	t, err := a.store.GetTicket(r.Context(), id)
	if err != nil {
		a.storeError(w, r, err, "ticket_not_found")
		return
	}
	writeItem(w, r, http.StatusOK, t)
}

func (a *Adapter) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := ticketID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "bad_id")
		return
	}
	var req ticketStatusRequest
	if code, status := decodeJSON(r, &req); code != "" {
		writeError(w, r, status, code)
		return
	}
	if !storage.ValidTicketStatus(req.Status) {
		writeError(w, r, http.StatusBadRequest, "invalid_status")
		return
	}
	t, err := a.store.UpdateTicketStatus(r.Context(), id, req.Status)
	if err != nil {
		a.writeAudit(r.Context(), "web:ticket_update", "error", map[string]interface{}{"id": id})
		a.storeError(w, r, err, "ticket_not_found")
		return
	}
	a.writeAudit(r.Context(), "web:ticket_update", "ok", map[string]interface{}{"id": id, "status": req.Status})
	writeItem(w, r, http.StatusOK, t)
}

func (a *Adapter) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := ticketID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "bad_id")
		return
	}
	if err := a.store.DeleteTicket(r.Context(), id); err != nil {
		a.writeAudit(r.Context(), "web:ticket_delete", "error", map[string]int64{"id": id})
		a.storeError(w, r, err, "ticket_not_found")
		return
	}
	a.writeAudit(r.Context(), "web:ticket_delete", "ok", map[string]int64{"id": id})
	writeNoContent(w, r)
}

func (a *Adapter) handleSearchPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := a.store.SearchPlayers(r.Context(), storage.PlayerQuery{
		Search: q.Get("q"),
		Page:   parseInt(q.Get("page"), 0),
		Size:   parseInt(q.Get("size"), 0),
	})
	if err != nil {
		a.storeError(w, r, err, "player_not_found")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"request_id": common.RequestIDFrom(r.Context()),
		"items":      page.Items,
		"total":      page.Total,
		"page":       page.Page,
		"size":       page.Size,
	})
}

func (a *Adapter) handleSavePlayer(w http.ResponseWriter, r *http.Request) {
	var req playerRequest
	if code, status := decodeJSON(r, &req); code != "" {
		writeError(w, r, status, code)
		return
	}
	if strings.TrimSpace(req.SteamID) == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_player")
		return
	}
	p, err := a.store.SavePlayer(r.Context(), storage.Player{SteamID: req.SteamID, Name: req.Name, Banned: req.Banned})
	if err != nil {
		a.writeAudit(r.Context(), "web:player_save", "error", map[string]string{"steam_id": req.SteamID})
		a.storeError(w, r, err, "player_not_found")
		return
	}
	a.writeAudit(r.Context(), "web:player_save", "ok", map[string]interface{}{"steam_id": p.SteamID, "banned": p.Banned})
	writeItem(w, r, http.StatusOK, p)
}

func (a *Adapter) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := a.store.PlayerBySteamID(r.Context(), r.PathValue("steamID"))
	if err != nil {
		a.storeError(w, r, err, "player_not_found")
		return
	}
	writeItem(w, r, http.StatusOK, p)
}

func (a *Adapter) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	steamID := r.PathValue("steamID")
	if err := a.store.DeletePlayer(r.Context(), steamID); err != nil {
		a.writeAudit(r.Context(), "web:player_delete", "error", map[string]string{"steam_id": steamID})
		a.storeError(w, r, err, "player_not_found")
		return
	}
	a.writeAudit(r.Context(), "web:player_delete", "ok", map[string]string{"steam_id": steamID})
	writeNoContent(w, r)
}

func (a *Adapter) handleGetStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.store.StatsByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		a.storeError(w, r, err, "stats_not_found")
		return
	}
	writeItem(w, r, http.StatusOK, st)
}

func (a *Adapter) handleSaveStats(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	var req statsRequest
	if code, status := decodeJSON(r, &req); code != "" {
		writeError(w, r, status, code)
		return
	}
	if req.ZombieKills < 0 || req.HoursSurvived < 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_stats")
		return
	}
	st, err := a.store.SaveStats(r.Context(), storage.PlayerStats{
		Username:      username,
		Profession:    req.Profession,
		ZombieKills:   req.ZombieKills,
		HoursSurvived: req.HoursSurvived,
	})
	if err != nil {
		a.writeAudit(r.Context(), "web:stats_save", "error", map[string]string{"username": username})
		a.storeError(w, r, err, "stats_not_found")
		return
	}
	a.writeAudit(r.Context(), "web:stats_save", "ok", map[string]string{"username": username})
	writeItem(w, r, http.StatusOK, st)
}

func (a *Adapter) handleListSandbox(w http.ResponseWriter, r *http.Request) {
	props, err := a.store.ListSandbox(r.Context())
	if err != nil {
		a.storeError(w, r, err, "sandbox_not_found")
		return
	}
	writeItems(w, r, props)
}

func (a *Adapter) handleGetSandbox(w http.ResponseWriter, r *http.Request) {
	p, err := a.store.SandboxProperty(r.Context(), r.PathValue("key"))
	if err != nil {
		a.storeError(w, r, err, "sandbox_not_found")
		return
	}
	writeItem(w, r, http.StatusOK, p)
}

func (a *Adapter) handleSaveSandbox(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var req sandboxRequest
	if code, status := decodeJSON(r, &req); code != "" {
		writeError(w, r, status, code)
		return
	}
	p, err := a.store.SaveSandboxProperty(r.Context(), storage.SandboxProperty{
		Key:         key,
		Value:       req.Value,
		Description: req.Description,
	})
	if err != nil {
		a.writeAudit(r.Context(), "web:sandbox_save", "error", map[string]string{"key": key})
		a.storeError(w, r, err, "sandbox_not_found")
		return
	}
	a.writeAudit(r.Context(), "web:sandbox_save", "ok", map[string]string{"key": key, "value": p.Value})
	writeItem(w, r, http.StatusOK, p)
}

func (a *Adapter) handleDeleteSandbox(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := a.store.DeleteSandboxProperty(r.Context(), key); err != nil {
		a.writeAudit(r.Context(), "web:sandbox_delete", "error", map[string]string{"key": key})
		a.storeError(w, r, err, "sandbox_not_found")
		return
	}
	a.writeAudit(r.Context(), "web:sandbox_delete", "ok", map[string]string{"key": key})
	writeNoContent(w, r)
}
