package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pzadmin/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

const playerColumns = `id, steam_id, name, banned, first_seen, last_seen`

func scanPlayer(row rowScanner) (storage.Player, error) {
	var p storage.Player
	var banned int
	var first, last int64
	if err := row.Scan(&p.ID, &p.SteamID, &p.Name, &banned, &first, &last); err != nil {
		return storage.Player{}, err
	}
	p.Banned = banned != 0
	p.FirstSeen = fromMillis(first)
	p.LastSeen = fromMillis(last)
	return p, nil
}

// SavePlayer создает игрока или обновляет его по SteamID.
// first_seen при обновлении сохраняется.
func (s *Store) SavePlayer(ctx context.Context, p storage.Player) (storage.Player, error) {
	now := time.Now().UTC()
	first := p.FirstSeen
	if first.IsZero() {
		first = now
	}
	last := p.LastSeen
	if last.IsZero() {
		last = now
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO players(steam_id, name, banned, first_seen, last_seen) VALUES(?,?,?,?,?)
ON CONFLICT(steam_id) DO UPDATE SET
	name = excluded.name,
	banned = excluded.banned,
	last_seen = excluded.last_seen`,
		p.SteamID, p.Name, boolToInt(p.Banned), toMillis(first), toMillis(last))
	if err != nil {
		return storage.Player{}, fmt.Errorf("upsert player: %w", err)
	}
	return s.PlayerBySteamID(ctx, p.SteamID)
}

func (s *Store) PlayerBySteamID(ctx context.Context, steamID string) (storage.Player, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE steam_id = ?`, steamID)
	p, err := scanPlayer(row)
	if err != nil {
		return storage.Player{}, notFound("player", err)
	}
	return p, nil
}

// SearchPlayers ищет подстроку без учета регистра в имени или SteamID.
func (s *Store) SearchPlayers(ctx context.Context, q storage.PlayerQuery) (storage.PlayerPage, error) {
	size := q.Size
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	page := q.Page
	if page < 0 {
		page = 0
	}
	search := strings.TrimSpace(q.Search)
	pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
	const where = `WHERE (? = '' OR lower(name) LIKE ? ESCAPE '\' OR lower(steam_id) LIKE ? ESCAPE '\')`

	result := storage.PlayerPage{Items: make([]storage.Player, 0), Page: page, Size: size}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players `+where, search, pattern, pattern).Scan(&result.Total); err != nil {
		return storage.PlayerPage{}, fmt.Errorf("count players: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players `+where+` ORDER BY name, id LIMIT ? OFFSET ?`,
		search, pattern, pattern, size, page*size)
	if err != nil {
		return storage.PlayerPage{}, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return storage.PlayerPage{}, fmt.Errorf("scan player: %w", err)
		}
		result.Items = append(result.Items, p)
	}
	if err := rows.Err(); err != nil {
		return storage.PlayerPage{}, fmt.Errorf("iterate players: %w", err)
	}
	return result, nil
}

func (s *Store) DeletePlayer(ctx context.Context, steamID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM players WHERE steam_id = ?`, steamID)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	return affectedOrNotFound(res, "player")
}

func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}

func (s *Store) StatsByUsername(ctx context.Context, username string) (storage.PlayerStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT username, profession, zombie_kills, hours_survived, updated_at FROM player_stats WHERE username = ?`, username)
	var st storage.PlayerStats
	var updated int64
	if err := row.Scan(&st.Username, &st.Profession, &st.ZombieKills, &st.HoursSurvived, &updated); err != nil {
		return storage.PlayerStats{}, notFound("player stats", err)
	}
	st.UpdatedAt = fromMillis(updated)
	return st, nil
}

// SaveStats перезаписывает статистику пользователя целиком.
func (s *Store) SaveStats(ctx context.Context, st storage.PlayerStats) (storage.PlayerStats, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO player_stats(username, profession, zombie_kills, hours_survived, updated_at) VALUES(?,?,?,?,?)
ON CONFLICT(username) DO UPDATE SET
	profession = excluded.profession,
	zombie_kills = excluded.zombie_kills,
	hours_survived = excluded.hours_survived,
	updated_at = excluded.updated_at`,
		st.Username, st.Profession, st.ZombieKills, st.HoursSurvived, toMillis(nowOr(st.UpdatedAt)))
	if err != nil {
		return storage.PlayerStats{}, fmt.Errorf("upsert player stats: %w", err)
	}
	return s.StatsByUsername(ctx, st.Username)
}
