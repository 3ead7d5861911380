package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound возвращается, когда запись отсутствует.
var ErrNotFound = errors.New("record not found")

// Статусы тикетов.
const (
	TicketOpen   = "open"
	TicketClosed = "closed"
)

// ValidTicketStatus сообщает, допустим ли статус тикета.
func ValidTicketStatus(s string) bool {
	return s == TicketOpen || s == TicketClosed
}

// Ticket: обращение игрока к администрации.
type Ticket struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Player: учетная запись игрока, SteamID служит внешним идентификатором.
type Player struct {
	ID        int64     `json:"id"`
	SteamID   string    `json:"steam_id"`
	Name      string    `json:"name"`
	Banned    bool      `json:"banned"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// PlayerQuery задает поиск подстроки по имени или SteamID с пагинацией.
// Page считается с нуля.
type PlayerQuery struct {
	Search string
	Page   int
	Size   int
}

// PlayerPage: страница результата поиска игроков.
type PlayerPage struct {
	Items []Player `json:"items"`
	Total int      `json:"total"`
	Page  int      `json:"page"`
	Size  int      `json:"size"`
}

// PlayerStats: статистика персонажа по имени пользователя.
type PlayerStats struct {
	Username      string    `json:"username"`
	Profession    string    `json:"profession"`
	ZombieKills   int       `json:"zombie_kills"`
	HoursSurvived float64   `json:"hours_survived"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SandboxProperty: параметр SandboxVars, например ZombieLore.Speed.
type SandboxProperty struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MetricRecord сохраняет метрики модуля.
type MetricRecord struct {
	Module  string
	Payload []byte
	TS      time.Time
}

// AuditEvent фиксирует действия пользователей/транспорта.
type AuditEvent struct {
	Subject   string
	Action    string
	Source    string
	Status    string
	RequestID string
	Payload   []byte
	TS        time.Time
}

// AuditQuery задает фильтры выборки аудита.
type AuditQuery struct {
	From    time.Time
	To      time.Time
	Subject string
	Limit   int
}

// TicketStore хранит тикеты.
type TicketStore interface {
	CreateTicket(ctx context.Context, t Ticket) (Ticket, error)
	// ListTickets возвращает тикеты по убыванию id; пустой status означает все.
	ListTickets(ctx context.Context, status string) ([]Ticket, error)
	GetTicket(ctx context.Context, id int64) (Ticket, error)
	UpdateTicketStatus(ctx context.Context, id int64, status string) (Ticket, error)
	DeleteTicket(ctx context.Context, id int64) error
}

// PlayerStore хранит игроков.
type PlayerStore interface {
	SavePlayer(ctx context.Context, p Player) (Player, error)
	PlayerBySteamID(ctx context.Context, steamID string) (Player, error)
	SearchPlayers(ctx context.Context, q PlayerQuery) (PlayerPage, error)
	DeletePlayer(ctx context.Context, steamID string) error
}

// StatsStore хранит статистику игроков.
type StatsStore interface {
	StatsByUsername(ctx context.Context, username string) (PlayerStats, error)
	SaveStats(ctx context.Context, s PlayerStats) (PlayerStats, error)
}

// SandboxStore хранит параметры песочницы.
type SandboxStore interface {
	ListSandbox(ctx context.Context) ([]SandboxProperty, error)
	SandboxProperty(ctx context.Context, key string) (SandboxProperty, error)
	SaveSandboxProperty(ctx context.Context, p SandboxProperty) (SandboxProperty, error)
	DeleteSandboxProperty(ctx context.Context, key string) error
}

// MetricStore хранит снимки метрик.
type MetricStore interface {
	SaveMetric(ctx context.Context, rec MetricRecord) error
	LatestMetric(ctx context.Context, module string) (MetricRecord, error)
}

// AuditStore хранит аудит.
type AuditStore interface {
	SaveAudit(ctx context.Context, ev AuditEvent) error
	// Write совпадает с SaveAudit, чтобы хранилище служило приемником аудита транспортов.
	Write(ctx context.Context, ev AuditEvent) error
	QueryAudit(ctx context.Context, q AuditQuery) ([]AuditEvent, error)
}

// Store описывает операции хранилища.
type Store interface {
	TicketStore
	PlayerStore
	StatsStore
	SandboxStore
	MetricStore
	AuditStore
	// Prune удаляет метрики и аудит старше before.
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
