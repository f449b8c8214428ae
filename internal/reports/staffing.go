package reports

import (
	"slices"
	"time"

	"retailcast/internal/demand"
	"retailcast/internal/forecast"
	"retailcast/internal/stats"
)

const (
	benchmarkRecentDays  = 30
	lastYearFromDays     = 335
	lastYearToDays       = 305
	seasonalSignificance = 0.7
	highTrafficFactor    = 1.2
)

// Weekdays are the heatmap columns, Monday first.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// HeatmapRow is one week-of-month row of mean forecast units per weekday.
type HeatmapRow struct {
	Week  int        `json:"week"`
	Units [7]float64 `json:"units"`
}

// DailyLoad is the aggregate forecast of one horizon day.
type DailyLoad struct {
	Date        string  `json:"date"`
	Units       float64 `json:"units"`
	HighTraffic bool    `json:"high_traffic"`
}

// Heatmap is the staffing plan over the forecast horizon.
type Heatmap struct {
	BenchmarkName   string       `json:"benchmark_name"`
	Benchmark       float64      `json:"benchmark"`
	PrevMonthAvg    float64      `json:"prev_month_avg"`
	LastYearAvg     float64      `json:"last_year_avg"`
	Rows            []HeatmapRow `json:"rows"`
	Daily           []DailyLoad  `json:"daily"`
	HighTrafficDays []string     `json:"high_traffic_days"`
}

// BuildStaffingHeatmap compares the aggregated daily sales forecast against a historical
// benchmark. The benchmark is the same month last year when it carries more than 70% of the
// recent daily volume, otherwise the trailing 30-day mean.
func BuildStaffingHeatmap(history *demand.Table, sales forecast.SalesForecast) Heatmap {
	h := Heatmap{Rows: []HeatmapRow{}, Daily: []DailyLoad{}, HighTrafficDays: []string{}}

	// 1. Aggregate forecast per day
	perDay := map[string]float64{}
	for _, e := range sales {
		for date, qty := range e.DailyForecast {
			perDay[date] += qty
		}
	}

	// 2. Benchmarks from historical daily totals
	h.PrevMonthAvg, h.LastYearAvg = benchmarks(history)
	if h.LastYearAvg > h.PrevMonthAvg*seasonalSignificance {
		h.BenchmarkName, h.Benchmark = "Same Month Prev Year", h.LastYearAvg
	} else {
		h.BenchmarkName, h.Benchmark = "Prev Month Average", h.PrevMonthAvg
	}
	h.Benchmark = stats.Round(h.Benchmark, 2)

	// 3. Week-of-month x weekday grid (mean per cell)
	keys := make([]string, 0, len(perDay))
	for k := range perDay {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	type cell struct {
		sum float64
		n   int
	}
	grid := map[int]*[7]cell{}
	for _, k := range keys {
		d, err := time.Parse("2006-01-02", k)
		if err != nil {
			continue
		}
		units := stats.Round(perDay[k], 2)
		high := units > h.Benchmark*highTrafficFactor
		h.Daily = append(h.Daily, DailyLoad{Date: k, Units: units, HighTraffic: high})
		if high {
			h.HighTrafficDays = append(h.HighTrafficDays, k)
		}

		week := (d.Day()-1)/7 + 1
		if grid[week] == nil {
			grid[week] = &[7]cell{}
		}
		col := (int(d.Weekday()) + 6) % 7
		grid[week][col].sum += units
		grid[week][col].n++
	}

	weeks := make([]int, 0, len(grid))
	for w := range grid {
		weeks = append(weeks, w)
	}
	slices.Sort(weeks)
	for _, w := range weeks {
		row := HeatmapRow{Week: w}
		for i, c := range grid[w] {
			if c.n > 0 {
				row.Units[i] = stats.Round(c.sum/float64(c.n), 2)
			}
		}
		h.Rows = append(h.Rows, row)
	}

	return h
}

// benchmarks returns the mean daily total of the trailing 30 days and of the window
// 335 to 305 days before the last observed date (0 when that window is empty).
func benchmarks(t *demand.Table) (prevMonth, lastYear float64) {
	if t == nil || len(t.Dates) == 0 {
		return 0, 0
	}
	last := t.LastDate()
	recentFloor := last.AddDate(0, 0, -benchmarkRecentDays)
	yearFrom := last.AddDate(0, 0, -lastYearFromDays)
	yearTo := last.AddDate(0, 0, -lastYearToDays)

	var recent, year []float64
	for i, d := range t.Dates {
		total := 0.0
		for _, s := range t.Series {
			total += s.Quantity[i]
		}
		if d.After(recentFloor) {
			recent = append(recent, total)
		}
		if !d.Before(yearFrom) && !d.After(yearTo) {
			year = append(year, total)
		}
	}
	return stats.Mean(recent), stats.Mean(year)
}
