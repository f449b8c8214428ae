package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"retailcast/internal/demand"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixture() *Dataset {
	return &Dataset{
		Subcategories: map[string]string{"1": "Mountain Bikes", "2": "Helmets", "3": "Mountain Bikes", "4": "Tires"},
		Products:      map[string]string{"100": "1", "200": "2", "300": "4", "400": "9"},
		Sales: []SaleRow{
			{OrderDate: date(2017, 1, 1), StockDate: date(2016, 11, 3), ProductKey: "100", Quantity: 2},
			{OrderDate: date(2017, 1, 2), StockDate: date(2016, 12, 1), ProductKey: "200", Quantity: 1},
			{OrderDate: date(2017, 1, 2), ProductKey: "400", Quantity: 7},
		},
		Returns: []ReturnRow{
			{ReturnDate: date(2017, 1, 5), ProductKey: "200", Quantity: 1},
			{ReturnDate: date(2017, 1, 6), ProductKey: "999", Quantity: 1},
		},
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2017-03-04", date(2017, 3, 4)},
		{"04-03-2017", date(2017, 3, 4)},
		{"04/03/2017", date(2017, 3, 4)},
		{"4/3/2017", date(2017, 3, 4)},
		{" 2017-03-04 ", date(2017, 3, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := ParseDate("March 4th")
	assert.Error(t, err)
}

func TestDataset_Master(t *testing.T) {
	assert.Equal(t, []string{"Helmets", "Mountain Bikes", "Tires"}, fixture().Master())
}

func TestDataset_SalesTransactions(t *testing.T) {
	txs := fixture().SalesTransactions()
	// product 400 maps to an unknown subcategory key
	require.Len(t, txs, 2)
	assert.Equal(t, "Mountain Bikes", txs[0].Subcategory)
	assert.Equal(t, 2.0, txs[0].Quantity)
	assert.True(t, txs[0].Secondary.Equal(date(2016, 11, 3)))
	assert.Equal(t, "Helmets", txs[1].Subcategory)
}

func TestDataset_PaddedNamesJoinMaster(t *testing.T) {
	ds := &Dataset{
		Subcategories: map[string]string{"1": "Helmets   ", "2": " Tires"},
		Products:      map[string]string{"100": "1", "200": "2"},
		Sales: []SaleRow{
			{OrderDate: date(2017, 1, 1), ProductKey: "100", Quantity: 3},
			{OrderDate: date(2017, 1, 2), ProductKey: "200", Quantity: 5},
		},
	}

	name, ok := ds.SubcategoryOf("100")
	require.True(t, ok)
	assert.Equal(t, "Helmets", name)

	master := ds.Master()
	assert.Equal(t, []string{"Helmets", "Tires"}, master)

	txs := ds.SalesTransactions()
	require.Len(t, txs, 2)

	table, err := demand.Build(txs, master, demand.BuildOptions{})
	require.NoError(t, err)
	helmets := table.Lookup("Helmets")
	require.NotNil(t, helmets)
	assert.Equal(t, 3.0, helmets.Total())
	assert.Equal(t, 5.0, table.Lookup("Tires").Total())
}

func TestDataset_ReturnsTransactions(t *testing.T) {
	txs := fixture().ReturnsTransactions()
	require.Len(t, txs, 3)

	// returns first, then sales as orders
	assert.Equal(t, "Helmets", txs[0].Subcategory)
	assert.Equal(t, 1.0, txs[0].Quantity)
	assert.Equal(t, 0.0, txs[0].Orders)

	assert.Equal(t, "Mountain Bikes", txs[1].Subcategory)
	assert.Equal(t, 0.0, txs[1].Quantity)
	assert.Equal(t, 2.0, txs[1].Orders)
}

func TestCSVLoader_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDataset(dir, fixture()))

	ds, err := (&CSVLoader{Dir: dir, Returns: true}).Load(context.Background())
	require.NoError(t, err)

	assert.Len(t, ds.Sales, 3)
	assert.Len(t, ds.Returns, 2)
	assert.Equal(t, fixture().Master(), ds.Master())
	assert.True(t, ds.Sales[2].StockDate.IsZero(), "blank stock date stays zero")

	salesOnly, err := (&CSVLoader{Dir: dir}).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, salesOnly.Returns)
}

func TestCSVLoader_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := (&CSVLoader{Dir: t.TempDir()}).Load(context.Background())
		assert.ErrorContains(t, err, SubcategoriesFile)
	})

	t.Run("missing column", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, WriteCSV(dir, SubcategoriesFile, []string{"Key", "SubcategoryName"}, nil))
		_, err := (&CSVLoader{Dir: dir}).Load(context.Background())
		assert.ErrorContains(t, err, "ProductSubcategoryKey")
	})

	t.Run("malformed rows are skipped", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, WriteDataset(dir, fixture()))
		f, err := os.OpenFile(filepath.Join(dir, SalesFile), os.O_APPEND|os.O_WRONLY, 0644)
		require.NoError(t, err)
		_, err = f.WriteString("not-a-date,,100,3\n2017-01-03,,100,many\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		ds, err := (&CSVLoader{Dir: dir}).Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, ds.Sales, 3)
	})

	t.Run("byte order mark in header", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, WriteDataset(dir, fixture()))
		path := filepath.Join(dir, SubcategoriesFile)
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, append([]byte("\ufeff"), raw...), 0644))

		_, err = (&CSVLoader{Dir: dir}).Load(context.Background())
		assert.NoError(t, err)
	})
}

func TestDataset_Validate(t *testing.T) {
	assert.Error(t, (&Dataset{}).Validate())
	assert.Error(t, (&Dataset{Subcategories: map[string]string{"1": "Tires"}}).Validate())
	assert.NoError(t, fixture().Validate())
}
