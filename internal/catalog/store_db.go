package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	batchTimeout = 10 * time.Second
)

// PostgresStore is the durable catalog. The conditional UPDATE in
// DecrementStock is the atomic primitive the no-oversell guarantee rests on;
// BulkReplace runs in one transaction so a reload never interleaves with a
// decrement on the same row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return storeErr(s.db.PingContext(ctx))
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (Product, bool, error) {
	return s.findWhere(ctx, `id = $1`, id)
}

func (s *PostgresStore) FindByNameOrID(ctx context.Context, key string) (Product, bool, error) {
	return s.findWhere(ctx, `id = $1 OR lower(name) = lower($1)`, key)
}

func (s *PostgresStore) findWhere(ctx context.Context, cond string, arg string) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT id, name, price, stock, controlled
			FROM products
			WHERE `+cond+`
			ORDER BY id ASC
			LIMIT 1
		`, arg).Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Controlled)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, storeErr(err)
	}
	return p, true, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, price, stock, controlled
			FROM products
			ORDER BY id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 32)
		for rows.Next() {
			var p Product
			if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Controlled); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (s *PostgresStore) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	var newStock int

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			UPDATE products
			SET stock = stock - $2
			WHERE id = $1 AND stock >= $2
			RETURNING stock
		`, id, qty).Scan(&newStock)
	})

	if errors.Is(err, sql.ErrNoRows) {
		// Either the product is missing or the precondition failed; one
		// extra read tells the caller which, and how much is left.
		p, found, ferr := s.FindByID(ctx, id)
		if ferr != nil {
			return 0, ferr
		}
		if !found {
			return 0, ErrNotFound
		}
		return 0, &InsufficientStockError{ID: id, Available: p.Stock}
	}
	if err != nil {
		return 0, storeErr(err)
	}
	return newStock, nil
}

func (s *PostgresStore) IncrementStock(ctx context.Context, id string, qty int) (int, error) {
	var newStock int

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			UPDATE products
			SET stock = stock + $2
			WHERE id = $1
			RETURNING stock
		`, id, qty).Scan(&newStock)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, storeErr(err)
	}
	return newStock, nil
}

func (s *PostgresStore) BulkReplace(ctx context.Context, products []Product) error {
	err := withTimeout(ctx, batchTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `TRUNCATE products`); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO products (id, name, price, stock, controlled)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range products {
			if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Price, p.Stock, p.Controlled); err != nil {
				return err
			}
		}

		return tx.Commit()
	})

	return storeErr(err)
}

// storeErr folds timeouts and connection-level failures into
// ErrStoreUnavailable so callers see one retryable class.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
