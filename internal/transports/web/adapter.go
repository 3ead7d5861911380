package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"pzadmin/internal/core"
	"pzadmin/internal/storage"
	"pzadmin/internal/transports/common"
)

type contextKey string

const ctxSubjectID contextKey = "subject_id"

// anonymousSubject используется, когда клиент не передал X-Subject-ID.
const anonymousSubject = "anonymous"

// Config определяет параметры HTTP-транспорта.
type Config struct {
	ListenAddr         string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	RequestTimeout     time.Duration
	MaxRequestBody     int64
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
}

// Adapter реализует web transport поверх net/http.
type Adapter struct {
	registry *core.Registry
	store    storage.Store
	service  *common.Service
	limiter  *common.RateLimiter
	logger   *slog.Logger
	cfg      Config

	corsOrigins map[string]struct{}

	mu     sync.Mutex
	server *http.Server
	addr   string
}

// NewAdapter создает web transport.
func NewAdapter(registry *core.Registry, store storage.Store, cfg Config, logger *slog.Logger) *Adapter {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:8080"
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 2 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 12 * time.Second
	}
	if cfg.MaxRequestBody <= 0 {
		cfg.MaxRequestBody = 1 << 20
	}
	if len(cfg.CORSAllowedMethods) == 0 {
		cfg.CORSAllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.CORSAllowedHeaders) == 0 {
		cfg.CORSAllowedHeaders = []string{"Content-Type", "X-Request-ID", "X-Subject-ID"}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	corsOrigins := make(map[string]struct{}, len(cfg.CORSAllowedOrigins))
	for _, origin := range cfg.CORSAllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		corsOrigins[trimmed] = struct{}{}
	}

	var limiter *common.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = common.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	return &Adapter{
		registry: registry,
		store:    store,
		service: &common.Service{
			Source:    "web",
			Registry:  registry,
			AuditSink: store,
		},
		limiter:     limiter,
		logger:      logger,
		cfg:         cfg,
		corsOrigins: corsOrigins,
	}
}

func (a *Adapter) Name() string { return "web" }

// Start открывает listener и обслуживает запросы до отмены контекста.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.server != nil {
		a.mu.Unlock()
		return errors.New("web transport already started")
	}
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	srv := &http.Server{
		Handler:      a.routes(),
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
	}
	a.server = srv
	a.addr = ln.Addr().String()
	a.mu.Unlock()

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		_ = a.Stop(stopCtx)
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("web server stopped", "err", err)
		}
	}()
	a.logger.Info("web transport listening", "addr", a.addr)
	return nil
}

// Addr возвращает фактический адрес после Start.
func (a *Adapter) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// Stop завершает HTTP server.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	a.server = nil
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type middleware func(http.Handler) http.Handler

func chain(h http.Handler, mws ...middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (a *Adapter) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", a.handleHealth)
	mux.HandleFunc("GET /v1/modules", a.handleModules)
	mux.HandleFunc("POST /v1/commands/execute", a.handleExecute)
	mux.HandleFunc("POST /v1/server/command", a.handleServerCommand)

	mux.HandleFunc("GET /v1/tickets", a.handleListTickets)
	mux.HandleFunc("POST /v1/tickets", a.handleCreateTicket)
	mux.HandleFunc("GET /v1/tickets/{id}", a.handleGetTicket)
	mux.HandleFunc("PATCH /v1/tickets/{id}", a.handleUpdateTicket)
	mux.HandleFunc("DELETE /v1/tickets/{id}", a.handleDeleteTicket)

	mux.HandleFunc("GET /v1/players", a.handleSearchPlayers)
	mux.HandleFunc("POST /v1/players", a.handleSavePlayer)
	mux.HandleFunc("GET /v1/players/{steamID}", a.handleGetPlayer)
	mux.HandleFunc("DELETE /v1/players/{steamID}", a.handleDeletePlayer)

	mux.HandleFunc("GET /v1/stats/{username}", a.handleGetStats)
	mux.HandleFunc("PUT /v1/stats/{username}", a.handleSaveStats)

	mux.HandleFunc("GET /v1/sandbox", a.handleListSandbox)
	mux.HandleFunc("GET /v1/sandbox/{key}", a.handleGetSandbox)
	mux.HandleFunc("PUT /v1/sandbox/{key}", a.handleSaveSandbox)
	mux.HandleFunc("DELETE /v1/sandbox/{key}", a.handleDeleteSandbox)

	mux.HandleFunc("GET /v1/metrics/latest", a.handleLatestMetric)
	mux.HandleFunc("GET /v1/audit", a.handleAudit)

	return chain(mux,
		a.requestIDMiddleware(),
		a.corsMiddleware(),
		a.subjectMiddleware(),
		a.rateLimitMiddleware(),
		a.timeoutMiddleware(),
		a.maxBodyMiddleware(),
	)
}

func (a *Adapter) requestIDMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := sanitizeID(r.Header.Get("X-Request-ID"))
			if requestID == "" {
				requestID = common.NewRequestID()
			}
			w.Header().Set("X-Request-ID", requestID)
			ctx := common.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Adapter) corsMiddleware() middleware {
	allowMethods := strings.Join(a.cfg.CORSAllowedMethods, ", ")
	allowHeaders := strings.Join(a.cfg.CORSAllowedHeaders, ", ")

	isMethodAllowed := func(method string) bool {
		for _, m := range a.cfg.CORSAllowedMethods {
			if strings.EqualFold(strings.TrimSpace(m), method) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if _, ok := a.corsOrigins[origin]; !ok {
				writeError(w, r, http.StatusForbidden, "cors_denied")
				return
			}

			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", allowMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)

			if r.Method == http.MethodOptions {
				preflightMethod := strings.TrimSpace(r.Header.Get("Access-Control-Request-Method"))
				if preflightMethod != "" && !isMethodAllowed(preflightMethod) {
					writeError(w, r, http.StatusForbidden, "cors_method_denied")
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// subjectMiddleware определяет субъект для аудита; проверки подлинности нет.
func (a *Adapter) subjectMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subjectID := sanitizeID(r.Header.Get("X-Subject-ID"))
			if subjectID == "" {
				subjectID = anonymousSubject
			}
			ctx := context.WithValue(r.Context(), ctxSubjectID, subjectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Adapter) rateLimitMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.limiter == nil || r.URL.Path == "/v1/health" {
				next.ServeHTTP(w, r)
				return
			}
			if !a.limiter.Allow(rateKey(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				writeError(w, r, http.StatusTooManyRequests, "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateKey возвращает адрес подключения: X-Subject-ID задает клиент, ему лимит не доверяет.
func rateKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (a *Adapter) timeoutMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), a.cfg.RequestTimeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *Adapter) maxBodyMiddleware() middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxRequestBody)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// decodeJSON строго читает единственный JSON-объект из тела запроса.
func decodeJSON(r *http.Request, dst interface{}) (string, int) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "payload_too_large", http.StatusRequestEntityTooLarge
		}
		return "invalid_json", http.StatusBadRequest
	}
	if dec.More() {
		return "invalid_json", http.StatusBadRequest
	}
	return "", 0
}

func sanitizeID(v string) string {
	id := strings.TrimSpace(v)
	if id == "" || len(id) > 64 {
		return ""
	}
	for _, ch := range id {
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			continue
		}
		switch ch {
		case '-', '_', '.', ':', '@':
			continue
		default:
			return ""
		}
	}
	return id
}

func subjectIDFromContext(ctx context.Context) string {
	v, ok := ctx.Value(ctxSubjectID).(string)
	if !ok || v == "" {
		return anonymousSubject
	}
	return v
}

func (a *Adapter) writeAudit(ctx context.Context, action, status string, payload interface{}) {
	var rawPayload []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err == nil {
			rawPayload = data
		}
	}
	err := a.store.SaveAudit(context.WithoutCancel(ctx), storage.AuditEvent{
		Subject:   subjectIDFromContext(ctx),
		Action:    action,
		Source:    "web",
		Status:    status,
		RequestID: common.RequestIDFrom(ctx),
		Payload:   rawPayload,
	})
	if err != nil {
		a.logger.Warn("write audit failed", "action", action, "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code string) {
	writeJSON(w, r, statusCode, map[string]string{
		"request_id": common.RequestIDFrom(r.Context()),
		"error_code": code,
		"message":    errorMessage(code),
	})
}

func errorMessage(code string) string {
	switch code {
	case "payload_too_large":
		return "request payload is too large"
	case "request_timeout":
		return "request timeout"
	case "rate_limited":
		return "too many requests"
	case "cors_denied", "cors_method_denied":
		return "cors policy denied request"
	case "invalid_json":
		return "request body is not valid JSON"
	case "command_failed":
		return "server command exited with non-zero status"
	case "command_timeout":
		return "server command timed out"
	case "delivery_failed":
		return "server command could not be delivered"
	default:
		return strings.ReplaceAll(code, "_", " ")
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", common.RequestIDFrom(r.Context()))
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
