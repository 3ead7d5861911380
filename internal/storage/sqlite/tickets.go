package sqlite

import (
	"context"
	"fmt"
	"time"

	"pzadmin/internal/storage"
)

const ticketColumns = `id, author, message, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (storage.Ticket, error) {
	var t storage.Ticket
	var created, updated int64
	if err := row.Scan(&t.ID, &t.Author, &t.Message, &t.Status, &created, &updated); err != nil {
		return storage.Ticket{}, err
	}
	t.CreatedAt = fromMillis(created)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

// CreateTicket сохраняет тикет; пустой статус становится open.
func (s *Store) CreateTicket(ctx context.Context, t storage.Ticket) (storage.Ticket, error) {
	if t.Status == "" {
		t.Status = storage.TicketOpen
	}
	t.CreatedAt = nowOr(t.CreatedAt)
	t.UpdatedAt = t.CreatedAt
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tickets(author, message, status, created_at, updated_at) VALUES(?,?,?,?,?)`,
		t.Author, t.Message, t.Status, toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
	if err != nil {
		return storage.Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return storage.Ticket{}, fmt.Errorf("ticket id: %w", err)
	}
	t.ID = id
	t.CreatedAt = fromMillis(toMillis(t.CreatedAt))
	t.UpdatedAt = t.CreatedAt
	return t, nil
}

// ListTickets возвращает тикеты по убыванию id.
func (s *Store) ListTickets(ctx context.Context, status string) ([]storage.Ticket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE (? = '' OR status = ?) ORDER BY id DESC`,
		status, status)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]storage.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return tickets, nil
}

func (s *Store) GetTicket(ctx context.Context, id int64) (storage.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err != nil {
		return storage.Ticket{}, notFound("ticket", err)
	}
	return t, nil
}

func (s *Store) UpdateTicketStatus(ctx context.Context, id int64, status string) (storage.Ticket, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tickets SET status = ?, updated_at = ? WHERE id = ?`,
		status, toMillis(time.Now()), id)
	if err != nil {
		return storage.Ticket{}, fmt.Errorf("update ticket: %w", err)
	}
	if err := affectedOrNotFound(res, "ticket"); err != nil {
		return storage.Ticket{}, err
	}
	return s.GetTicket(ctx, id)
}

func (s *Store) DeleteTicket(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	return affectedOrNotFound(res, "ticket")
}
