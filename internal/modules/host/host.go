package host

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"pzadmin/internal/core"
)

// linuxCommLen ограничивает длину имени процесса в /proc/<pid>/comm.
const linuxCommLen = 15

// Module предоставляет метрики узла и состояние процесса игрового сервера.
type Module struct {
	// ProcessName: имя процесса сервера, например ProjectZomboid64.
	ProcessName string
}

func (m *Module) Name() string { return "host" }

func (m *Module) Commands() []string { return []string{"status", "game"} }

func (m *Module) Init(ctx context.Context) error {
	return nil
}

func (m *Module) Execute(ctx context.Context, cmd string, args []string) (core.Response, error) {
	switch cmd {
	case "status":
		return m.status(ctx)
	case "game":
		game, err := m.game(ctx)
		if err != nil {
			return core.Fail("process_info_failed"), err
		}
		return core.OK(game), nil
	default:
		return core.Fail("unknown_command"), fmt.Errorf("%s: %w", cmd, core.ErrUnknownCommand)
	}
}

func (m *Module) status(ctx context.Context) (core.Response, error) {
	hInfo, err := host.InfoWithContext(ctx)
	if err != nil {
		return core.Fail("host_info_failed"), fmt.Errorf("host info: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return core.Fail("mem_info_failed"), fmt.Errorf("memory info: %w", err)
	}
	ld, err := load.AvgWithContext(ctx)
	if err != nil {
		return core.Fail("load_info_failed"), fmt.Errorf("load info: %w", err)
	}
	game, err := m.game(ctx)
	if err != nil {
		return core.Fail("process_info_failed"), err
	}
	resp := map[string]interface{}{
		"hostname":     hInfo.Hostname,
		"platform":     hInfo.Platform,
		"platformVer":  hInfo.PlatformVersion,
		"kernel":       hInfo.KernelVersion,
		"uptime_sec":   hInfo.Uptime,
		"boot_time":    time.Unix(int64(hInfo.BootTime), 0).UTC().Format(time.RFC3339),
		"mem_total":    vm.Total,
		"mem_used":     vm.Used,
		"mem_used_pct": vm.UsedPercent,
		"load1":        ld.Load1,
		"load5":        ld.Load5,
		"load15":       ld.Load15,
		"game":         game,
	}
	return core.OK(resp), nil
}

// GameProcess описывает найденные процессы сервера.
type GameProcess struct {
	Name    string  `json:"name"`
	Running bool    `json:"running"`
	PIDs    []int32 `json:"pids"`
	RSS     uint64  `json:"rss_bytes"`
}

func (m *Module) game(ctx context.Context) (GameProcess, error) {
	res := GameProcess{Name: m.ProcessName, PIDs: []int32{}}
	if m.ProcessName == "" {
		return res, nil
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return res, fmt.Errorf("list processes: %w", err)
	}
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || !matchProcess(name, m.ProcessName) {
			continue
		}
		res.PIDs = append(res.PIDs, p.Pid)
		if mi, err := p.MemoryInfoWithContext(ctx); err == nil && mi != nil {
			res.RSS += mi.RSS
		}
	}
	res.Running = len(res.PIDs) > 0
	return res, nil
}

// matchProcess сравнивает имена без учета регистра, допуская обрезанное ядром имя.
func matchProcess(name, want string) bool {
	if strings.EqualFold(name, want) {
		return true
	}
	return len(name) == linuxCommLen && len(want) > linuxCommLen &&
		strings.EqualFold(name, want[:linuxCommLen])
}
