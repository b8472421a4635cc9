package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
)

// PostgresStore is the transactional durable store of a service: business
// entities plus the outbox and inbox auxiliary tables, all behind one commit
// boundary.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// InitSchema creates the tables if absent. No further migration behavior is
// supported.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			customer_email TEXT NOT NULL,
			total_amount TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL,
			payment_id TEXT NOT NULL UNIQUE,
			amount TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'completed',
			customer_email TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL,
			email TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS outbox (
			id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			retry_count INT NOT NULL DEFAULT 0,
			headers JSONB,
			routing_key TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			sent_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS inbox (
			message_id TEXT PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed_at TIMESTAMPTZ
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tracer := otel.Tracer("go-shop-saga")
	ctx, span := tracer.Start(ctx, "WithinTx")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		span.RecordError(err)
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *PostgresStore) MarkInboxFailed(ctx context.Context, msg *InboxMessage) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO inbox (message_id, event_type, payload, status, attempts)
         VALUES ($1, $2, $3, $4, 1)
         ON CONFLICT (message_id)
         DO UPDATE SET status=$4, attempts=inbox.attempts + 1
         RETURNING attempts`,
		msg.MessageID, msg.EventType, msg.Payload, InboxFailed).Scan(&attempts)
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	return scanOrder(s.db.QueryRowContext(ctx,
		`SELECT id, customer_email, total_amount, status, created_at FROM orders WHERE id=$1`, orderID))
}

func (s *PostgresStore) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_email, total_amount, status, created_at FROM orders ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		var amount string
		if err := rows.Scan(&o.ID, &o.CustomerEmail, &amount, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		if o.TotalAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("order %d: bad amount %q: %w", o.ID, amount, err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) ListPayments(ctx context.Context) ([]Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, payment_id, amount, status, COALESCE(customer_email, ''), created_at FROM payments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		var amount string
		if err := rows.Scan(&p.ID, &p.OrderID, &p.PaymentID, &amount, &p.Status, &p.CustomerEmail, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("payment %d: bad amount %q: %w", p.ID, amount, err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// pgTx implements Tx over one open *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) CreateOrder(ctx context.Context, order *Order) error {
	if order.Status == "" {
		order.Status = OrderPending
	}
	return t.tx.QueryRowContext(ctx,
		`INSERT INTO orders (customer_email, total_amount, status) VALUES ($1, $2, $3) RETURNING id, created_at`,
		order.CustomerEmail, order.TotalAmount.String(), order.Status).Scan(&order.ID, &order.CreatedAt)
}

func (t *pgTx) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	return scanOrder(t.tx.QueryRowContext(ctx,
		`SELECT id, customer_email, total_amount, status, created_at FROM orders WHERE id=$1`, orderID))
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE orders SET status=$1 WHERE id=$2`, status, orderID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return nil
}

// GetInboxMessage returns (nil, nil) when no row exists for the fingerprint.
func (t *pgTx) GetInboxMessage(ctx context.Context, messageID string) (*InboxMessage, error) {
	var msg InboxMessage
	var processedAt sql.NullTime
	err := t.tx.QueryRowContext(ctx,
		`SELECT message_id, event_type, payload, status, attempts, created_at, processed_at FROM inbox WHERE message_id=$1`,
		messageID).Scan(&msg.MessageID, &msg.EventType, &msg.Payload, &msg.Status, &msg.Attempts, &msg.CreatedAt, &processedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if processedAt.Valid {
		msg.ProcessedAt = processedAt.Time
	}
	return &msg, nil
}

func (t *pgTx) InsertInboxMessage(ctx context.Context, msg *InboxMessage) error {
	if msg.Status == "" {
		msg.Status = InboxPending
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO inbox (message_id, event_type, payload, status, attempts) VALUES ($1, $2, $3, $4, $5)`,
		msg.MessageID, msg.EventType, msg.Payload, msg.Status, msg.Attempts)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateInbox
	}
	return err
}

func (t *pgTx) MarkInboxProcessed(ctx context.Context, messageID string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE inbox SET status=$1, processed_at=$2 WHERE message_id=$3`,
		InboxProcessed, time.Now(), messageID)
	return err
}

func (t *pgTx) CreatePayment(ctx context.Context, payment *Payment) error {
	return t.tx.QueryRowContext(ctx,
		`INSERT INTO payments (order_id, payment_id, amount, status, customer_email) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		payment.OrderID, payment.PaymentID, payment.Amount.String(), payment.Status, payment.CustomerEmail).
		Scan(&payment.ID, &payment.CreatedAt)
}

func (t *pgTx) CreateNotification(ctx context.Context, notification *Notification) error {
	return t.tx.QueryRowContext(ctx,
		`INSERT INTO notifications (order_id, email) VALUES ($1, $2) RETURNING id, sent_at`,
		notification.OrderID, notification.Email).Scan(&notification.ID, &notification.SentAt)
}

func (t *pgTx) InsertOutboxEvent(ctx context.Context, event *OutboxEvent) error {
	headers, err := json.Marshal(event.Headers)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO outbox (id, event_type, payload, status, retry_count, headers, routing_key) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.EventType, event.Payload, event.Status, event.RetryCount, headers, event.RoutingKey)
	return err
}

func scanOrder(row *sql.Row) (*Order, error) {
	var o Order
	var amount string
	err := row.Scan(&o.ID, &o.CustomerEmail, &amount, &o.Status, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.TotalAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("order %d: bad amount %q: %w", o.ID, amount, err)
	}
	return &o, nil
}
