package source

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"retailcast/internal/demand"

	"github.com/rs/zerolog/log"
)

// SaleRow is one cleaned order line.
type SaleRow struct {
	OrderDate  time.Time
	StockDate  time.Time
	ProductKey string
	Quantity   float64
}

// ReturnRow is one cleaned return line.
type ReturnRow struct {
	ReturnDate time.Time
	ProductKey string
	Quantity   float64
}

// Dataset is the four cleaned relations the pipelines read.
type Dataset struct {
	Sales   []SaleRow
	Returns []ReturnRow
	// Products maps ProductKey to ProductSubcategoryKey.
	Products map[string]string
	// Subcategories maps ProductSubcategoryKey to SubcategoryName.
	Subcategories map[string]string
}

// Loader reads a Dataset from some backing store.
type Loader interface {
	Load(ctx context.Context) (*Dataset, error)
}

// Master is the deduplicated, sorted list of subcategory names.
func (d *Dataset) Master() []string {
	names := make([]string, 0, len(d.Subcategories))
	for _, name := range d.Subcategories {
		name = strings.TrimSpace(name)
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// SubcategoryOf resolves a product to its subcategory name, trimmed the same way Master
// trims so both sides of the join agree.
func (d *Dataset) SubcategoryOf(productKey string) (string, bool) {
	sub, ok := d.Products[productKey]
	if !ok {
		return "", false
	}
	name, ok := d.Subcategories[sub]
	name = strings.TrimSpace(name)
	return name, ok && name != ""
}

// SalesTransactions joins order lines to subcategories. Lines whose product does not
// resolve are dropped and counted in the log.
func (d *Dataset) SalesTransactions() []demand.Transaction {
	out := make([]demand.Transaction, 0, len(d.Sales))
	unmapped := 0
	for _, s := range d.Sales {
		name, ok := d.SubcategoryOf(s.ProductKey)
		if !ok {
			unmapped++
			continue
		}
		out = append(out, demand.Transaction{
			Date:        s.OrderDate,
			Subcategory: name,
			Quantity:    s.Quantity,
			Secondary:   s.StockDate,
		})
	}
	if unmapped > 0 {
		log.Warn().Int("rows", unmapped).Msg("Sales lines without a subcategory were dropped")
	}
	return out
}

// ReturnsTransactions emits returns as Quantity and sales as Orders so the skeleton can
// merge both per (day, subcategory) across the union of their date ranges.
func (d *Dataset) ReturnsTransactions() []demand.Transaction {
	out := make([]demand.Transaction, 0, len(d.Sales)+len(d.Returns))
	unmapped := 0
	for _, r := range d.Returns {
		name, ok := d.SubcategoryOf(r.ProductKey)
		if !ok {
			unmapped++
			continue
		}
		out = append(out, demand.Transaction{Date: r.ReturnDate, Subcategory: name, Quantity: r.Quantity})
	}
	for _, s := range d.Sales {
		name, ok := d.SubcategoryOf(s.ProductKey)
		if !ok {
			unmapped++
			continue
		}
		out = append(out, demand.Transaction{Date: s.OrderDate, Subcategory: name, Orders: s.Quantity})
	}
	if unmapped > 0 {
		log.Warn().Int("rows", unmapped).Msg("Sales or return lines without a subcategory were dropped")
	}
	return out
}

// Validate reports relations that would make every downstream stage empty.
func (d *Dataset) Validate() error {
	if len(d.Subcategories) == 0 {
		return fmt.Errorf("subcategory relation is empty")
	}
	if len(d.Products) == 0 {
		return fmt.Errorf("product relation is empty")
	}
	return nil
}
