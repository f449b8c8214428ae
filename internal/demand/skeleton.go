package demand

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
)

// Transaction is one cleaned, subcategory-resolved demand event.
type Transaction struct {
	Date        time.Time
	Subcategory string
	Quantity    float64
	// Secondary is a per-event date whose daily minimum is carried along (stock date for sales).
	Secondary time.Time
	// Orders is a companion volume summed alongside Quantity (sales orders for returns).
	Orders float64
}

// Series is the dense daily history of one subcategory.
type Series struct {
	Name string
	// ID is -1 until AttachIDs stamps the registry identity.
	ID         int
	Quantity   []float64
	StockDate  []time.Time
	Orders     []float64
	OrdersLag1 []float64
}

// Total returns the summed quantity over the whole window.
func (s *Series) Total() float64 {
	total := 0.0
	for _, q := range s.Quantity {
		total += q
	}
	return total
}

// HasExog reports whether the series carries the lagged orders regressor.
func (s *Series) HasExog() bool {
	return len(s.OrdersLag1) == len(s.Quantity) && len(s.Quantity) > 0
}

// Table is the dense (date x subcategory) grid. Every series spans every date.
type Table struct {
	Dates  []time.Time
	Series []*Series
}

// Record is one flattened row of a Table.
type Record struct {
	Date        time.Time
	Subcategory string
	ID          int
	Quantity    float64
	StockDate   time.Time
	Orders      float64
	OrdersLag1  float64
}

// BuildOptions controls which companion columns the skeleton tracks.
type BuildOptions struct {
	// StockDateFallback fills days without a secondary date. When zero, the global
	// minimum secondary date observed in rows is used.
	StockDateFallback time.Time
	TrackSecondary    bool
	TrackOrders       bool
}

// Build densifies transactions over every calendar day between the earliest and latest
// observed date, crossed with every master subcategory. Missing cells are zero-filled.
func Build(rows []Transaction, master []string, opts BuildOptions) (*Table, error) {
	// 1. Deduplicate master list, keep first-seen order then sort for stable output
	names := make([]string, 0, len(master))
	index := make(map[string]int, len(master))
	for _, name := range master {
		if _, ok := index[name]; ok {
			continue
		}
		index[name] = -1
		names = append(names, name)
	}
	slices.Sort(names)
	for i, name := range names {
		index[name] = i
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("master subcategory list is empty")
	}

	// 2. Observed range and global secondary minimum
	var minDate, maxDate, minSecondary time.Time
	dropped := 0
	for _, r := range rows {
		if _, ok := index[r.Subcategory]; !ok {
			dropped++
			continue
		}
		d := Day(r.Date)
		if minDate.IsZero() || d.Before(minDate) {
			minDate = d
		}
		if maxDate.IsZero() || d.After(maxDate) {
			maxDate = d
		}
		if s := Day(r.Secondary); !s.IsZero() && (minSecondary.IsZero() || s.Before(minSecondary)) {
			minSecondary = s
		}
	}
	if dropped > 0 {
		log.Warn().Int("rows", dropped).Msg("Dropped transactions for subcategories outside the master list")
	}
	if minDate.IsZero() {
		return nil, fmt.Errorf("no transactions fall on a known subcategory")
	}

	dates := DateRange(minDate, maxDate)
	fallback := Day(opts.StockDateFallback)
	if fallback.IsZero() {
		fallback = minSecondary
	}

	// 3. Allocate the full grid
	table := &Table{Dates: dates, Series: make([]*Series, len(names))}
	for i, name := range names {
		s := &Series{Name: name, ID: -1, Quantity: make([]float64, len(dates))}
		if opts.TrackSecondary {
			s.StockDate = make([]time.Time, len(dates))
		}
		if opts.TrackOrders {
			s.Orders = make([]float64, len(dates))
		}
		table.Series[i] = s
	}

	// 4. Aggregate (sum quantity, earliest secondary)
	for _, r := range rows {
		col, ok := index[r.Subcategory]
		if !ok {
			continue
		}
		row := DaysBetween(minDate, r.Date)
		s := table.Series[col]
		s.Quantity[row] += r.Quantity
		if opts.TrackOrders {
			s.Orders[row] += r.Orders
		}
		if opts.TrackSecondary {
			if sec := Day(r.Secondary); !sec.IsZero() && (s.StockDate[row].IsZero() || sec.Before(s.StockDate[row])) {
				s.StockDate[row] = sec
			}
		}
	}

	// 5. Secondary fallback for empty cells
	if opts.TrackSecondary {
		for _, s := range table.Series {
			for i := range s.StockDate {
				if s.StockDate[i].IsZero() {
					s.StockDate[i] = fallback
				}
			}
		}
	}

	log.Debug().
		Int("days", len(dates)).
		Int("subcategories", len(names)).
		Str("from", DateKey(minDate)).
		Str("to", DateKey(maxDate)).
		Msg("Demand skeleton built")

	return table, nil
}

// Len is the number of cells in the grid.
func (t *Table) Len() int {
	return len(t.Dates) * len(t.Series)
}

// LastDate is the final day of the grid.
func (t *Table) LastDate() time.Time {
	if len(t.Dates) == 0 {
		return time.Time{}
	}
	return t.Dates[len(t.Dates)-1]
}

// Lookup finds a series by name.
func (t *Table) Lookup(name string) *Series {
	for _, s := range t.Series {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Rows flattens the grid in (date, subcategory) order.
func (t *Table) Rows() []Record {
	out := make([]Record, 0, t.Len())
	for i, d := range t.Dates {
		for _, s := range t.Series {
			rec := Record{Date: d, Subcategory: s.Name, ID: s.ID, Quantity: s.Quantity[i]}
			if s.StockDate != nil {
				rec.StockDate = s.StockDate[i]
			}
			if s.Orders != nil {
				rec.Orders = s.Orders[i]
			}
			if s.OrdersLag1 != nil {
				rec.OrdersLag1 = s.OrdersLag1[i]
			}
			out = append(out, rec)
		}
	}
	return out
}

// AttachIDs stamps every series with its registry ID. Names missing from the mapping are an error.
func (t *Table) AttachIDs(mapping map[string]int) error {
	for _, s := range t.Series {
		id, ok := mapping[s.Name]
		if !ok {
			return fmt.Errorf("subcategory %q has no registered ID", s.Name)
		}
		s.ID = id
	}
	slices.SortFunc(t.Series, func(a, b *Series) int { return a.ID - b.ID })
	return nil
}

// AddLag builds OrdersLag1 as orders shifted by one day within each series. The leading
// gap is filled with the series mean of orders, truncated to an integer.
func (t *Table) AddLag() {
	for _, s := range t.Series {
		if s.Orders == nil {
			continue
		}
		lag := make([]float64, len(s.Orders))
		if len(lag) == 0 {
			s.OrdersLag1 = lag
			continue
		}
		mean := 0.0
		for _, o := range s.Orders {
			mean += o
		}
		mean /= float64(len(s.Orders))
		lag[0] = math.Trunc(mean)
		for i := 1; i < len(lag); i++ {
			lag[i] = math.Trunc(s.Orders[i-1])
		}
		s.OrdersLag1 = lag
	}
}
