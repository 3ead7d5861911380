package sqlite

import (
	"context"
	"fmt"
	"time"

	"pzadmin/internal/storage"
)

// SaveMetric сохраняет метрику.
func (s *Store) SaveMetric(ctx context.Context, rec storage.MetricRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO metrics(module, payload, ts) VALUES(?,?,?)`,
		rec.Module, rec.Payload, toMillis(nowOr(rec.TS)))
	if err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}
	return nil
}

// LatestMetric возвращает последнюю метрику по модулю.
func (s *Store) LatestMetric(ctx context.Context, module string) (storage.MetricRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT module, payload, ts FROM metrics WHERE module = ? ORDER BY ts DESC, id DESC LIMIT 1`, module)
	var rec storage.MetricRecord
	var ts int64
	if err := row.Scan(&rec.Module, &rec.Payload, &ts); err != nil {
		return storage.MetricRecord{}, notFound("latest metric", err)
	}
	rec.TS = fromMillis(ts)
	return rec, nil
}

// SaveAudit сохраняет аудиторное событие.
func (s *Store) SaveAudit(ctx context.Context, ev storage.AuditEvent) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_events(subject, action, source, status, request_id, payload, ts) VALUES(?,?,?,?,?,?,?)`,
		ev.Subject, ev.Action, ev.Source, ev.Status, ev.RequestID, ev.Payload, toMillis(nowOr(ev.TS)))
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// Write реализует общий AuditSink интерфейс.
func (s *Store) Write(ctx context.Context, ev storage.AuditEvent) error {
	return s.SaveAudit(ctx, ev)
}

// QueryAudit возвращает аудит по фильтрам, новые события первыми.
func (s *Store) QueryAudit(ctx context.Context, q storage.AuditQuery) ([]storage.AuditEvent, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	from := q.From
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	to := q.To
	if to.IsZero() {
		to = time.Now().UTC()
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT subject, action, source, status, request_id, payload, ts
FROM audit_events
WHERE ts >= ? AND ts <= ? AND (? = '' OR subject = ?)
ORDER BY ts DESC, id DESC
LIMIT ?`, toMillis(from), toMillis(to), q.Subject, q.Subject, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	events := make([]storage.AuditEvent, 0, limit)
	for rows.Next() {
		var ev storage.AuditEvent
		var ts int64
		if err := rows.Scan(&ev.Subject, &ev.Action, &ev.Source, &ev.Status, &ev.RequestID, &ev.Payload, &ts); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		ev.TS = fromMillis(ts)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit: %w", err)
	}
	return events, nil
}
