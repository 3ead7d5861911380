package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pzadmin/internal/core"
	"pzadmin/internal/storage"
	"pzadmin/internal/transports/common"
)

type executeRequest struct {
	Module  string   `json:"module"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

type serverCommandRequest struct {
	Command  string `json:"command"`
	Response bool   `json:"response"`
}

func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *Adapter) handleModules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"request_id": common.RequestIDFrom(r.Context()),
		"items":      a.registry.Providers(),
		"commands":   a.registry.Describe(),
	})
}

func (a *Adapter) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if code, status := decodeJSON(r, &req); code != "" {
		writeError(w, r, status, code)
		a.writeAudit(r.Context(), "web:execute", "error", map[string]string{"error_code": code})
		return
	}
	if req.Module == "" || req.Command == "" {
		writeError(w, r, http.StatusBadRequest, "bad_command")
		a.writeAudit(r.Context(), "web:execute", "error", map[string]string{"error_code": "bad_command"})
		return
	}
	a.runCommand(w, r, req.Module, req.Command, req.Args)
}

// handleServerCommand передает произвольную команду модулю server.
func (a *Adapter) handleServerCommand(w http.ResponseWriter, r *http.Request) {
	var req serverCommandRequest
	if code, status := decodeJSON(r, &req); code != "" {
		writeError(w, r, status, code)
		a.writeAudit(r.Context(), "web:server_command", "error", map[string]string{"error_code": code})
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		writeError(w, r, http.StatusBadRequest, "bad_command")
		a.writeAudit(r.Context(), "web:server_command", "error", map[string]string{"error_code": "bad_command"})
		return
	}
	cmd := "send"
	if req.Response {
		cmd = "query"
	}
	a.runCommand(w, r, "server", cmd, []string{req.Command})
}

// runCommand исполняет команду через общий пайплайн; аудит пишет Service.
func (a *Adapter) runCommand(w http.ResponseWriter, r *http.Request, module, command string, args []string) {
	requestID := common.RequestIDFrom(r.Context())
	resp, err := a.service.Execute(r.Context(), subjectIDFromContext(r.Context()), module, command, args)
	if err != nil {
		if resp.ErrorCode == "" && errors.Is(r.Context().Err(), context.DeadlineExceeded) {
			writeError(w, r, http.StatusGatewayTimeout, "request_timeout")
			return
		}
		code := resp.ErrorCode
		if code == "" {
			code = "command_error"
		}
		a.logger.Warn("command failed", "module", module, "command", command, "request_id", requestID, "err", err)
		writeJSON(w, r, statusForCode(code), map[string]interface{}{
			"request_id": requestID,
			"status":     "error",
			"error_code": code,
			"message":    errorMessage(code),
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"request_id": requestID,
		"status":     resp.Status,
		"data":       resp.Data,
		"error_code": resp.ErrorCode,
	})
}

func statusForCode(code string) int {
	switch code {
	case "module_not_found", "unknown_command":
		return http.StatusNotFound
	case "rate_limited":
		return http.StatusTooManyRequests
	case "command_timeout":
		return http.StatusGatewayTimeout
	case "command_failed", "delivery_failed":
		return http.StatusBadGateway
	case "interrupted":
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// storeError переводит ошибку хранилища в HTTP-ответ.
func (a *Adapter) storeError(w http.ResponseWriter, r *http.Request, err error, notFoundCode string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, notFoundCode)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(r.Context().Err(), context.DeadlineExceeded):
		writeError(w, r, http.StatusGatewayTimeout, "request_timeout")
	default:
		a.logger.Error("storage request failed", "path", r.URL.Path, "request_id", common.RequestIDFrom(r.Context()), "err", err)
		writeError(w, r, http.StatusInternalServerError, "storage_failed")
	}
}

func (a *Adapter) handleLatestMetric(w http.ResponseWriter, r *http.Request) {
	module := r.URL.Query().Get("module")
	if module == "" {
		writeError(w, r, http.StatusBadRequest, "module_required")
		return
	}

	rec, err := a.store.LatestMetric(r.Context(), module)
	if err != nil {
		a.storeError(w, r, err, "metric_not_found")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"request_id": common.RequestIDFrom(r.Context()),
		"module":     rec.Module,
		"ts":         rec.TS.UTC().Format(time.RFC3339),
		"payload":    json.RawMessage(rec.Payload),
	})
}

func (a *Adapter) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := storage.AuditQuery{
		Subject: r.URL.Query().Get("subject"),
		Limit:   parseInt(r.URL.Query().Get("limit"), 50),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		ts, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "bad_from")
			return
		}
		q.From = ts
	}
	if to := r.URL.Query().Get("to"); to != "" {
		ts, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "bad_to")
			return
		}
		q.To = ts
	}

	events, err := a.store.QueryAudit(r.Context(), q)
	if err != nil {
		a.storeError(w, r, err, "audit_not_found")
		return
	}

	type eventDTO struct {
		Subject   string          `json:"subject"`
		Action    string          `json:"action"`
		Source    string          `json:"source"`
		Status    string          `json:"status"`
		RequestID string          `json:"request_id"`
		Payload   json.RawMessage `json:"payload,omitempty"`
		TS        string          `json:"ts"`
	}
	payload := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		payload = append(payload, eventDTO{
			Subject:   ev.Subject,
			Action:    ev.Action,
			Source:    ev.Source,
			Status:    ev.Status,
			RequestID: ev.RequestID,
			Payload:   json.RawMessage(ev.Payload),
			TS:        ev.TS.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"request_id": common.RequestIDFrom(r.Context()),
		"items":      payload,
	})
}

func parseInt(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

var _ core.TransportAdapter = (*Adapter)(nil)
