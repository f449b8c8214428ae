package source

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteCSV writes a header and records to Dir/file, used for synthetic fixtures.
func WriteCSV(dir, file string, header []string, records [][]string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	f, err := os.Create(filepath.Join(dir, file))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", file, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s header: %w", file, err)
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	return f.Close()
}

// WriteDataset writes ds as the four cleaned CSV files, dates in ISO form.
func WriteDataset(dir string, ds *Dataset) error {
	subs := make([][]string, 0, len(ds.Subcategories))
	for key, name := range ds.Subcategories {
		subs = append(subs, []string{key, name})
	}
	if err := WriteCSV(dir, SubcategoriesFile, []string{"ProductSubcategoryKey", "SubcategoryName"}, subs); err != nil {
		return err
	}

	products := make([][]string, 0, len(ds.Products))
	for key, sub := range ds.Products {
		products = append(products, []string{key, sub})
	}
	if err := WriteCSV(dir, ProductsFile, []string{"ProductKey", "ProductSubcategoryKey"}, products); err != nil {
		return err
	}

	sales := make([][]string, 0, len(ds.Sales))
	for _, s := range ds.Sales {
		stock := ""
		if !s.StockDate.IsZero() {
			stock = s.StockDate.Format("2006-01-02")
		}
		sales = append(sales, []string{s.OrderDate.Format("2006-01-02"), stock, s.ProductKey, strconv.FormatFloat(s.Quantity, 'f', -1, 64)})
	}
	if err := WriteCSV(dir, SalesFile, []string{"OrderDate", "StockDate", "ProductKey", "OrderQuantity"}, sales); err != nil {
		return err
	}

	returns := make([][]string, 0, len(ds.Returns))
	for _, r := range ds.Returns {
		returns = append(returns, []string{r.ReturnDate.Format("2006-01-02"), r.ProductKey, strconv.FormatFloat(r.Quantity, 'f', -1, 64)})
	}
	return WriteCSV(dir, ReturnsFile, []string{"ReturnDate", "ProductKey", "ReturnQuantity"}, returns)
}
