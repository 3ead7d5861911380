package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pzadmin/internal/command"
	"pzadmin/internal/config"
	"pzadmin/internal/core"
	"pzadmin/internal/modules/host"
	"pzadmin/internal/modules/server"
	"pzadmin/internal/storage"
	"pzadmin/internal/storage/sqlite"
	"pzadmin/internal/transports/common"
	"pzadmin/internal/transports/web"
)

// App агрегирует зависимости ядра.
type App struct {
	Registry   *core.Registry
	Transports *core.TransportManager
	Executor   *command.Executor
	Store      storage.Store
	Config     config.Config
	Logger     *slog.Logger
}

// NewApp строит приложение: исполнитель команд, реестр модулей, хранилище и транспорты.
func NewApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	exec, err := command.New(command.Config{
		Delivery:        cfg.Server.Delivery,
		ControlFile:     cfg.Server.ControlFile,
		Shell:           cfg.Server.Shell,
		Timeout:         time.Duration(cfg.Server.TimeoutMS) * time.Millisecond,
		SerializeWrites: cfg.Server.SerializeWrites,
		RCONAddr:        cfg.Server.RCON.Addr,
		RCONPassword:    cfg.Server.RCON.Password,
	}, logger.With("component", "executor"))
	if err != nil {
		return nil, fmt.Errorf("build executor: %w", err)
	}

	r := core.NewRegistry()
	if err := r.Register(ctx, &host.Module{ProcessName: cfg.Server.ProcessName}); err != nil {
		return nil, fmt.Errorf("register host module: %w", err)
	}
	if err := r.Register(ctx, server.New(exec)); err != nil {
		return nil, fmt.Errorf("register server module: %w", err)
	}

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	st, err := sqlite.Open(cfg.SQLite.Driver, cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	transports := core.NewTransportManager()
	if cfg.Web.Enabled {
		webAdapter := web.NewAdapter(r, st, web.Config{
			ListenAddr:         cfg.Web.ListenAddr,
			ReadTimeout:        time.Duration(cfg.Web.ReadTimeoutMS) * time.Millisecond,
			WriteTimeout:       time.Duration(cfg.Web.WriteTimeoutMS) * time.Millisecond,
			RequestTimeout:     time.Duration(cfg.Web.RequestTimeoutMS) * time.Millisecond,
			ShutdownTimeout:    time.Duration(cfg.Web.ShutdownTimeoutS) * time.Second,
			MaxRequestBody:     cfg.Web.MaxBodyBytes,
			RateLimitRPS:       cfg.Web.RateLimitRPS,
			RateLimitBurst:     cfg.Web.RateLimitBurst,
			CORSAllowedOrigins: cfg.Web.CORSOrigins,
		}, logger.With("component", "web"))
		if err := transports.Register(webAdapter); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("register web transport: %w", err)
		}
	}

	return &App{
		Registry:   r,
		Transports: transports,
		Executor:   exec,
		Store:      st,
		Config:     cfg,
		Logger:     logger,
	}, nil
}

// Close высвобождает ресурсы приложения.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// Service возвращает пайплайн выполнения команд с аудитом для источника source.
func (a *App) Service(source string) *common.Service {
	return &common.Service{Source: source, Registry: a.Registry, AuditSink: a.Store}
}

// Serve запускает транспорты и планировщик до отмены контекста.
func (a *App) Serve(ctx context.Context) error {
	sched := core.NewScheduler(a.Logger.With("component", "scheduler"))
	for _, j := range a.jobs() {
		if err := sched.Add(j.name, j.spec, j.run); err != nil {
			return err
		}
	}

	if err := a.Transports.StartAll(ctx); err != nil {
		return fmt.Errorf("start transports: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Transports.StopAll(stopCtx); err != nil {
			a.Logger.Warn("stop transports", "err", err)
		}
	}()

	a.Logger.Info("pzadmin started", "jobs", sched.Len(), "delivery", a.Config.Server.Delivery)
	sched.Start(ctx)
	a.Logger.Info("pzadmin stopped")
	return nil
}

type job struct {
	name string
	spec string
	run  core.Job
}

func (a *App) jobs() []job {
	interval := a.Config.Scheduler.IntervalSeconds
	if interval <= 0 {
		interval = 60
	}
	jobs := []job{{
		name: "host-metrics",
		spec: fmt.Sprintf("@every %ds", interval),
		run:  a.collectHostMetrics,
	}}
	if a.Config.SQLite.RetentionDays > 0 {
		jobs = append(jobs, job{name: "retention", spec: "@daily", run: a.prune})
	}

	svc := a.Service("scheduler")
	for _, sc := range a.Config.Scheduler.Commands {
		text := sc.Command
		jobs = append(jobs, job{
			name: "command:" + text,
			spec: sc.Spec,
			run: func(ctx context.Context) error {
				_, err := svc.Execute(ctx, "scheduler", "server", "send", []string{text})
				return err
			},
		})
	}
	return jobs
}

func (a *App) collectHostMetrics(ctx context.Context) error {
	runCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := a.Registry.Execute(runCtx, "host", "status", nil)
	if err != nil {
		return fmt.Errorf("host status: %w", err)
	}
	payload, err := sqlite.MarshalPayload(resp.Data)
	if err != nil {
		return err
	}
	return a.Store.SaveMetric(ctx, storage.MetricRecord{Module: "host", Payload: payload})
}

func (a *App) prune(ctx context.Context) error {
	before := time.Now().AddDate(0, 0, -a.Config.SQLite.RetentionDays)
	n, err := a.Store.Prune(ctx, before)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	a.Logger.Info("retention pruned", "rows", n, "before", before.UTC().Format(time.RFC3339))
	return nil
}
