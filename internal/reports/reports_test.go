package reports

import (
	"path/filepath"
	"testing"
	"time"

	"retailcast/internal/demand"
	"retailcast/internal/forecast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func daily(start time.Time, values ...float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for i, v := range values {
		out[demand.DateKey(start.AddDate(0, 0, i))] = v
	}
	return out
}

var horizonStart = time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC) // Saturday

func TestBuildStockingReport(t *testing.T) {
	sales := forecast.SalesForecast{
		// trained: 0.15*40 = 6 vs median 10 * 4/2 = 20 -> 6
		"0": {ModelSource: "SeasonalAR", DailyForecast: daily(horizonStart, 10, 10, 10, 10), TotalHorizonVolume: 40},
		// trained, median cap binds: 0.15*100 = 15 vs median 1 * 4/2 = 2 -> 2
		"1": {ModelSource: "Decomposition", DailyForecast: daily(horizonStart, 97, 1, 1, 1), TotalHorizonVolume: 100},
		// cold start, flat: CV 0 -> 15%
		"2": {ModelSource: "ColdStart", DailyForecast: daily(horizonStart, 2, 2, 2, 2), TotalHorizonVolume: 8},
		// cold start, intermittent: CV > 0.5 -> 30%
		"3": {ModelSource: "ColdStart", DailyForecast: daily(horizonStart, 9, 0, 0, 1), TotalHorizonVolume: 10},
	}

	report := BuildStockingReport(sales, 4)
	require.Len(t, report, 4)

	tests := []struct {
		id     int
		safety float64
		total  float64
		logic  string
	}{
		{0, 6, 46, "Error-Adjusted"},
		{1, 2, 102, "Error-Adjusted"},
		{2, 1.2, 9.2, "Volatility-Adjusted"},
		{3, 3, 13, "Volatility-Adjusted"},
	}
	for _, tt := range tests {
		e, ok := report.Entry(tt.id)
		require.True(t, ok)
		assert.InDelta(t, tt.safety, e.SafetyStockEstimate, 1e-9, "id %d", tt.id)
		assert.InDelta(t, tt.total, e.TotalStockRecommendation, 1e-9, "id %d", tt.id)
		assert.Equal(t, tt.logic, e.StockLogic)
	}
	e, _ := report.Entry(2)
	assert.Equal(t, "2", e.ItemID)
	assert.Equal(t, "ColdStart", e.ModelUsed)
}

func history(t *testing.T, last time.Time, days int, level func(d time.Time) float64) *demand.Table {
	t.Helper()
	dates := demand.DateRange(last.AddDate(0, 0, -(days-1)), last)
	q := make([]float64, len(dates))
	for i, d := range dates {
		q[i] = level(d)
	}
	return &demand.Table{Dates: dates, Series: []*demand.Series{{Name: "All", Quantity: q}}}
}

func TestBuildStaffingHeatmap_SeasonalBenchmark(t *testing.T) {
	last := horizonStart.AddDate(0, 0, -1)
	// last year's window runs at 8/day, the trailing month at 10/day: 8 > 7 -> seasonal
	hist := history(t, last, 400, func(d time.Time) float64 {
		if d.After(last.AddDate(0, 0, -30)) {
			return 10
		}
		return 8
	})

	sales := forecast.SalesForecast{
		"0": {DailyForecast: daily(horizonStart, 5, 5, 5, 5, 5, 5, 5, 5)},
		"1": {DailyForecast: daily(horizonStart, 1, 1, 1, 1, 1, 1, 1, 5)},
	}

	h := BuildStaffingHeatmap(hist, sales)
	assert.Equal(t, "Same Month Prev Year", h.BenchmarkName)
	assert.Equal(t, 8.0, h.Benchmark)
	assert.Equal(t, 10.0, h.PrevMonthAvg)

	require.Len(t, h.Daily, 8)
	// 6 units on 7 days, 10 on the 8th; high traffic is > 9.6
	assert.Equal(t, []string{"2017-07-08"}, h.HighTrafficDays)

	// July 1-7 is week 1, July 8 is week 2
	require.Len(t, h.Rows, 2)
	assert.Equal(t, 1, h.Rows[0].Week)
	assert.Equal(t, 6.0, h.Rows[0].Units[5], "Saturday column")
	assert.Equal(t, 6.0, h.Rows[0].Units[0], "Monday column")
	assert.Equal(t, 10.0, h.Rows[1].Units[5])
	assert.Equal(t, 0.0, h.Rows[1].Units[0])
}

func TestBuildStaffingHeatmap_GrowthBenchmark(t *testing.T) {
	last := horizonStart.AddDate(0, 0, -1)
	// too little history for a year-ago window
	hist := history(t, last, 60, func(time.Time) float64 { return 4 })

	h := BuildStaffingHeatmap(hist, forecast.SalesForecast{"0": {DailyForecast: daily(horizonStart, 3)}})
	assert.Equal(t, "Prev Month Average", h.BenchmarkName)
	assert.Equal(t, 4.0, h.Benchmark)
	assert.Equal(t, 0.0, h.LastYearAvg)
	assert.Empty(t, h.HighTrafficDays)
}

func TestWriteHeatmapWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "staffing_heatmap.xlsx")
	h := Heatmap{
		BenchmarkName: "Prev Month Average",
		Benchmark:     4,
		Rows:          []HeatmapRow{{Week: 1, Units: [7]float64{1, 2, 3, 4, 5, 6, 7}}},
		Daily:         []DailyLoad{{Date: "2017-07-01", Units: 6, HighTraffic: true}},
	}
	require.NoError(t, WriteHeatmapWorkbook(path, h))

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Staffing", "Daily"}, wb.GetSheetList())

	v, err := wb.GetCellValue("Staffing", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Mon", v)

	v, err = wb.GetCellValue("Staffing", "H2")
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	v, err = wb.GetCellValue("Daily", "A2")
	require.NoError(t, err)
	assert.Equal(t, "2017-07-01", v)
}
