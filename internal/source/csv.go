package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Cleaned file names under the input directory.
const (
	SalesFile         = "Cleaned_Sales.csv"
	ReturnsFile       = "Cleaned_Returns.csv"
	ProductsFile      = "Cleaned_Products.csv"
	SubcategoriesFile = "Cleaned_Product_Subcategories.csv"
)

// dateLayouts are tried in order; day-first wins over month-first for ambiguous dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02-01-2006",
	"02/01/2006",
	"2/1/2006",
	"2-1-2006",
}

// ParseDate accepts ISO and day-first layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// CSVLoader reads the cleaned CSV exports from Dir.
type CSVLoader struct {
	Dir string
	// Returns is skipped when false, for the sales-only pipeline.
	Returns bool
}

// Load reads the relations. Sales, products and subcategories are mandatory.
func (l *CSVLoader) Load(ctx context.Context) (*Dataset, error) {
	ds := &Dataset{Products: map[string]string{}, Subcategories: map[string]string{}}

	// 1. Subcategories and products
	if err := l.each(SubcategoriesFile, []string{"ProductSubcategoryKey", "SubcategoryName"}, func(rec []string) error {
		ds.Subcategories[strings.TrimSpace(rec[0])] = strings.TrimSpace(rec[1])
		return nil
	}); err != nil {
		return nil, err
	}
	if err := l.each(ProductsFile, []string{"ProductKey", "ProductSubcategoryKey"}, func(rec []string) error {
		ds.Products[strings.TrimSpace(rec[0])] = strings.TrimSpace(rec[1])
		return nil
	}); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Sales
	skipped := 0
	if err := l.each(SalesFile, []string{"OrderDate", "StockDate", "ProductKey", "OrderQuantity"}, func(rec []string) error {
		orderDate, err := ParseDate(rec[0])
		if err != nil {
			skipped++
			return nil
		}
		stockDate, _ := ParseDate(rec[1])
		qty, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
		if err != nil {
			skipped++
			return nil
		}
		ds.Sales = append(ds.Sales, SaleRow{OrderDate: orderDate, StockDate: stockDate, ProductKey: strings.TrimSpace(rec[2]), Quantity: qty})
		return nil
	}); err != nil {
		return nil, err
	}

	// 3. Returns (optional)
	if l.Returns {
		if err := l.each(ReturnsFile, []string{"ReturnDate", "ProductKey", "ReturnQuantity"}, func(rec []string) error {
			returnDate, err := ParseDate(rec[0])
			if err != nil {
				skipped++
				return nil
			}
			qty, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
			if err != nil {
				skipped++
				return nil
			}
			ds.Returns = append(ds.Returns, ReturnRow{ReturnDate: returnDate, ProductKey: strings.TrimSpace(rec[1]), Quantity: qty})
			return nil
		}); err != nil {
			return nil, err
		}
	}

	if skipped > 0 {
		log.Warn().Int("rows", skipped).Msg("Skipped malformed CSV rows")
	}
	log.Info().
		Int("sales", len(ds.Sales)).
		Int("returns", len(ds.Returns)).
		Int("products", len(ds.Products)).
		Int("subcategories", len(ds.Subcategories)).
		Str("dir", l.Dir).
		Msg("Loaded cleaned data")

	return ds, ds.Validate()
}

// each streams the named columns of file to fn, in the order requested.
func (l *CSVLoader) each(file string, columns []string, fn func([]string) error) error {
	path := filepath.Join(l.Dir, file)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("failed to read %s header: %w", file, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	pos := make([]int, len(columns))
	for i, c := range columns {
		p, ok := index[c]
		if !ok {
			return fmt.Errorf("%s is missing column %q", file, c)
		}
		pos[i] = p
	}

	picked := make([]string, len(columns))
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", file, err)
		}
		for i, p := range pos {
			if p < len(rec) {
				picked[i] = rec[p]
			} else {
				picked[i] = ""
			}
		}
		if err := fn(picked); err != nil {
			return err
		}
	}
}
