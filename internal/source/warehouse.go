package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// WarehouseLoader reads the same four relations from Postgres tables named after the CSV exports.
type WarehouseLoader struct {
	DB      *sql.DB
	Returns bool
}

// OpenWarehouse connects to dsn and verifies the connection.
func OpenWarehouse(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("warehouse ping failed: %w", err)
	}
	return db, nil
}

const (
	subcategoriesQuery = `SELECT product_subcategory_key::text, subcategory_name FROM product_subcategories`
	productsQuery      = `SELECT product_key::text, product_subcategory_key::text FROM products`
	salesQuery         = `SELECT order_date, stock_date, product_key::text, order_quantity FROM sales`
	returnsQuery       = `SELECT return_date, product_key::text, return_quantity FROM returns`
)

// Load reads every relation in one pass per table.
func (w *WarehouseLoader) Load(ctx context.Context) (*Dataset, error) {
	ds := &Dataset{Products: map[string]string{}, Subcategories: map[string]string{}}

	if err := w.query(ctx, subcategoriesQuery, func(rows *sql.Rows) error {
		var key, name string
		if err := rows.Scan(&key, &name); err != nil {
			return err
		}
		// char(n) columns come back space padded
		ds.Subcategories[strings.TrimSpace(key)] = strings.TrimSpace(name)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := w.query(ctx, productsQuery, func(rows *sql.Rows) error {
		var key string
		var sub sql.NullString
		if err := rows.Scan(&key, &sub); err != nil {
			return err
		}
		if sub.Valid {
			ds.Products[strings.TrimSpace(key)] = strings.TrimSpace(sub.String)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := w.query(ctx, salesQuery, func(rows *sql.Rows) error {
		var s SaleRow
		var stock sql.NullTime
		if err := rows.Scan(&s.OrderDate, &stock, &s.ProductKey, &s.Quantity); err != nil {
			return err
		}
		if stock.Valid {
			s.StockDate = stock.Time
		}
		s.ProductKey = strings.TrimSpace(s.ProductKey)
		ds.Sales = append(ds.Sales, s)
		return nil
	}); err != nil {
		return nil, err
	}

	if w.Returns {
		if err := w.query(ctx, returnsQuery, func(rows *sql.Rows) error {
			var r ReturnRow
			if err := rows.Scan(&r.ReturnDate, &r.ProductKey, &r.Quantity); err != nil {
				return err
			}
			r.ProductKey = strings.TrimSpace(r.ProductKey)
			ds.Returns = append(ds.Returns, r)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("sales", len(ds.Sales)).
		Int("returns", len(ds.Returns)).
		Msg("Loaded warehouse data")

	return ds, ds.Validate()
}

func (w *WarehouseLoader) query(ctx context.Context, q string, scan func(*sql.Rows) error) error {
	rows, err := w.DB.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("warehouse query failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan warehouse row: %w", err)
		}
	}
	return rows.Err()
}
