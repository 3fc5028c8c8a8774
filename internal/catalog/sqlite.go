package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/storefront/cart-ledger/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Snapshot(ctx context.Context, productID int64) (domain.ProductSnapshot, error) {
	query := `
		SELECT id, name, price, stock
		FROM products
		WHERE id = $1
	`

	var snap domain.ProductSnapshot
	err := r.db.QueryRowContext(ctx, query, productID).Scan(
		&snap.ID,
		&snap.Title,
		&snap.Price,
		&snap.Stock,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProductSnapshot{}, ErrProductNotFound
	}
	if err != nil {
		return domain.ProductSnapshot{}, fmt.Errorf("failed to query product: %w", err)
	}

	return snap, nil
}

func (r *Repository) List(ctx context.Context, page, perPage int) ([]domain.ProductSnapshot, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := `
		SELECT id, name, price, stock
		FROM products
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, perPage, (page-1)*perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.ProductSnapshot
	for rows.Next() {
		var snap domain.ProductSnapshot
		err := rows.Scan(
			&snap.ID,
			&snap.Title,
			&snap.Price,
			&snap.Stock,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}
