package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"

	"github.com/storefront/cart-ledger/internal/domain"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

// RecordCheckout writes the checkout record and its outbox event in one
// transaction, so a crash between the two cannot lose the event.
func (r *Repository) RecordCheckout(ctx context.Context, orderID, cartKey string, order *domain.OrderSubmission) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order payload: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO checkout_records (order_id, cart_key, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, orderID, cartKey, payload, domain.OrderStatusPending, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateCheckout
		}
		return fmt.Errorf("failed to insert checkout record: %w", err)
	}

	event := map[string]interface{}{
		"order_id":     orderID,
		"cart_key":     cartKey,
		"items":        order.Items,
		"total_amount": order.TotalAmount,
		"currency":     order.Currency,
		"completed_at": now,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_events (order_id, payload, created_at)
		VALUES ($1, $2, $3)
	`, orderID, eventJSON, now)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout record: %w", err)
	}
	return nil
}

func (r *Repository) GetRecord(ctx context.Context, orderID string) (*CheckoutRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT order_id, cart_key, payload, status, created_at, updated_at
		FROM checkout_records
		WHERE order_id = $1
	`, orderID)

	record := &CheckoutRecord{}
	err := row.Scan(
		&record.OrderID,
		&record.CartKey,
		&record.Payload,
		&record.Status,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout record: %w", err)
	}

	return record, nil
}

func (r *Repository) ListRecords(ctx context.Context, cartKey string, limit int) ([]*CheckoutRecord, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, cart_key, payload, status, created_at, updated_at
		FROM checkout_records
		WHERE cart_key = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, cartKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkout records: %w", err)
	}
	defer rows.Close()

	var records []*CheckoutRecord
	for rows.Next() {
		record := &CheckoutRecord{}
		err := rows.Scan(
			&record.OrderID,
			&record.CartKey,
			&record.Payload,
			&record.Status,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkout record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// UpdateStatus moves an order along the status workflow, rejecting
// transitions the state machine does not allow.
func (r *Repository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM checkout_records WHERE order_id = $1 FOR UPDATE
	`, orderID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read current status: %w", err)
	}

	if !domain.CanTransitionTo(current, status) {
		return ErrIllegalTransition
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE checkout_records SET status = $1, updated_at = $2 WHERE order_id = $3
	`, status, time.Now(), orderID)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit status update: %w", err)
	}
	return nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, payload, created_at
		FROM outbox_events
		WHERE processed = false
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		event := &OutboxEvent{}
		if err := rows.Scan(&event.ID, &event.OrderID, &event.Payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE outbox_events SET processed = true, processed_at = $1 WHERE id = $2
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark event as processed: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	return false
}
