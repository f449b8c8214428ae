package demand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestBuild_CardinalityAndZeroFill(t *testing.T) {
	rows := []Transaction{
		{Date: day("2017-01-01"), Subcategory: "Helmets", Quantity: 2},
		{Date: day("2017-01-01"), Subcategory: "Helmets", Quantity: 3},
		{Date: day("2017-01-05"), Subcategory: "Tires and Tubes", Quantity: 4},
	}
	master := []string{"Helmets", "Tires and Tubes", "Locks", "Helmets"}

	table, err := Build(rows, master, BuildOptions{})
	require.NoError(t, err)

	assert.Len(t, table.Dates, 5)
	assert.Len(t, table.Series, 3, "master list must be deduplicated")
	assert.Equal(t, 15, table.Len())
	assert.Len(t, table.Rows(), 15)

	helmets := table.Lookup("Helmets")
	require.NotNil(t, helmets)
	assert.Equal(t, []float64{5, 0, 0, 0, 0}, helmets.Quantity)

	locks := table.Lookup("Locks")
	require.NotNil(t, locks)
	assert.Equal(t, 0.0, locks.Total())
	assert.Equal(t, -1, locks.ID)
}

func TestBuild_SecondaryDateMinimumAndFallback(t *testing.T) {
	rows := []Transaction{
		{Date: day("2017-03-02"), Subcategory: "Caps", Quantity: 1, Secondary: day("2017-02-20")},
		{Date: day("2017-03-02"), Subcategory: "Caps", Quantity: 1, Secondary: day("2017-02-10")},
		{Date: day("2017-03-03"), Subcategory: "Caps", Quantity: 1, Secondary: day("2017-02-01")},
	}

	table, err := Build(rows, []string{"Caps", "Socks"}, BuildOptions{TrackSecondary: true})
	require.NoError(t, err)

	caps := table.Lookup("Caps")
	assert.Equal(t, day("2017-02-10"), caps.StockDate[0])
	assert.Equal(t, day("2017-02-01"), caps.StockDate[1])

	// Fallback is the global minimum secondary date
	socks := table.Lookup("Socks")
	assert.Equal(t, day("2017-02-01"), socks.StockDate[0])

	explicit, err := Build(rows, []string{"Caps", "Socks"}, BuildOptions{TrackSecondary: true, StockDateFallback: day("2016-12-31")})
	require.NoError(t, err)
	assert.Equal(t, day("2016-12-31"), explicit.Lookup("Socks").StockDate[1])
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, nil, BuildOptions{})
	assert.Error(t, err)

	_, err = Build([]Transaction{{Date: day("2017-01-01"), Subcategory: "Unknown", Quantity: 1}}, []string{"Helmets"}, BuildOptions{})
	assert.Error(t, err, "rows outside the master list leave no observed dates")
}

func TestBuild_UnknownSubcategoryDropped(t *testing.T) {
	rows := []Transaction{
		{Date: day("2017-01-01"), Subcategory: "Helmets", Quantity: 1},
		{Date: day("2017-01-09"), Subcategory: "Unknown", Quantity: 50},
	}
	table, err := Build(rows, []string{"Helmets"}, BuildOptions{})
	require.NoError(t, err)
	assert.Len(t, table.Dates, 1, "dropped rows must not widen the date range")
}

func TestAttachIDsAndLag(t *testing.T) {
	rows := []Transaction{
		{Date: day("2017-01-01"), Subcategory: "Road Bikes", Quantity: 1, Orders: 3},
		{Date: day("2017-01-02"), Subcategory: "Road Bikes", Quantity: 0, Orders: 5},
		{Date: day("2017-01-03"), Subcategory: "Road Bikes", Quantity: 2, Orders: 2},
		{Date: day("2017-01-02"), Subcategory: "Pedals", Quantity: 1, Orders: 1},
	}
	table, err := Build(rows, []string{"Road Bikes", "Pedals"}, BuildOptions{TrackOrders: true})
	require.NoError(t, err)

	require.NoError(t, table.AttachIDs(map[string]int{"Road Bikes": 3, "Pedals": 9}))
	assert.Equal(t, 3, table.Series[0].ID, "series are ordered by ID")

	table.AddLag()
	bikes := table.Lookup("Road Bikes")
	require.True(t, bikes.HasExog())
	// mean(3,5,2) = 3.33 -> 3, then shifted orders
	assert.Equal(t, []float64{3, 3, 5}, bikes.OrdersLag1)

	pedals := table.Lookup("Pedals")
	assert.Equal(t, []float64{0, 0, 1}, pedals.OrdersLag1)

	assert.Error(t, table.AttachIDs(map[string]int{"Road Bikes": 3}))
}

func TestWindow(t *testing.T) {
	rows := []Transaction{
		{Date: day("2016-07-30"), Subcategory: "a"},
		{Date: day("2016-08-01"), Subcategory: "a"},
		{Date: day("2017-06-01"), Subcategory: "a"},
		{Date: day("2017-06-10"), Subcategory: "a"},
	}

	tests := []struct {
		name       string
		windowDays int
		want       int
	}{
		{"cutoff only", 0, 3},
		{"ten day window", 10, 2},
		{"single day", 1, 1},
		{"wide window", 365, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := append([]Transaction(nil), rows...)
			got := Window(in, day("2016-08-01"), tt.windowDays)
			if len(got) != tt.want {
				t.Errorf("Expected %d rows, got %d", tt.want, len(got))
			}
		})
	}
}

func TestCalendarHelpers(t *testing.T) {
	future := FutureDates(day("2017-01-30"), 3)
	require.Len(t, future, 3)
	assert.Equal(t, "2017-01-31", DateKey(future[0]))
	assert.Equal(t, "2017-02-02", DateKey(future[2]))

	assert.True(t, IsPayday(day("2017-01-15")))
	assert.True(t, IsPayday(day("2017-01-30")))
	assert.False(t, IsPayday(day("2017-02-28")))

	assert.Empty(t, FutureDates(day("2017-01-01"), 0))
	assert.Len(t, DateRange(day("2016-02-27"), day("2016-03-01")), 4)
}
