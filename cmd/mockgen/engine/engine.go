package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"retailcast/internal/source"
)

type GeneratorConfig struct {
	Scenario string // "mild", "sparse" or "drift"
	Days     int
	Seed     int64
	End      time.Time
}

// profile describes how one subcategory sells.
type profile struct {
	Name string
	// Rate is the mean units per day; zero means the subcategory never sells.
	Rate float64
	// Activity is the probability that a day has any demand at all.
	Activity float64
	// Spike places one bulk order of this many units mid-window.
	Spike float64
	// ReturnRate is the chance that one unit of a line comes back.
	ReturnRate float64
}

// Catalogue covers every routing regime: dense, intermittent, rare, silent and spiky.
var Catalogue = []profile{
	{Name: "Tires and Tubes", Rate: 14, Activity: 1, ReturnRate: 0.04},
	{Name: "Bottles and Cages", Rate: 8, Activity: 0.95, ReturnRate: 0.02},
	{Name: "Helmets", Rate: 4, Activity: 0.55, ReturnRate: 0.05},
	{Name: "Road Bikes", Rate: 3, Activity: 0.55, ReturnRate: 0.03},
	{Name: "Touring Frames", Rate: 1, Activity: 0.08},
	{Name: "Bike Racks", Rate: 1, Activity: 0.05, Spike: 200},
	{Name: "Pedals"},
}

const productsPerSubcategory = 3

func Generate(cfg GeneratorConfig) *source.Dataset {
	if cfg.End.IsZero() {
		cfg.End = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if cfg.Days <= 0 {
		cfg.Days = 365
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	ds := &source.Dataset{
		Products:      map[string]string{},
		Subcategories: map[string]string{},
	}

	// 1. Catalogue
	for i, p := range Catalogue {
		subKey := fmt.Sprintf("%d", i+1)
		ds.Subcategories[subKey] = p.Name
		for j := 0; j < productsPerSubcategory; j++ {
			ds.Products[productKey(i, j)] = subKey
		}
	}

	// 2. Daily demand per subcategory
	start := cfg.End.AddDate(0, 0, -(cfg.Days - 1))
	for day := 0; day < cfg.Days; day++ {
		date := start.AddDate(0, 0, day)
		progress := float64(day) / float64(cfg.Days)

		for i, p := range Catalogue {
			rate, activity := p.Rate, p.Activity
			switch cfg.Scenario {
			case "sparse":
				rate *= 0.4
				if activity < 1 {
					activity *= 0.5
				}
			case "drift":
				rate *= 1 + progress // Doubles over the window
			}
			if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
				rate *= 1.3
			}

			qty := 0.0
			if rate > 0 && rng.Float64() < activity {
				qty = float64(poisson(rng, rate))
			}
			if activity >= 1 && qty == 0 {
				qty = 1 // Always-on lines sell every day
			}
			if p.Spike > 0 && day == cfg.Days/2 {
				qty += p.Spike
			}
			if qty == 0 {
				continue
			}

			// Stock dates trail orders by one to three months
			stock := date.AddDate(0, -1-rng.Intn(3), 0)
			product := productKey(i, rng.Intn(productsPerSubcategory))
			ds.Sales = append(ds.Sales, source.SaleRow{OrderDate: date, StockDate: stock, ProductKey: product, Quantity: qty})

			// 3. Returns land 1-10 days after the sale, dropped past the window end
			returned := 0
			for u := 0; u < int(qty); u++ {
				if rng.Float64() < p.ReturnRate {
					returned++
				}
			}
			if returned > 0 {
				back := date.AddDate(0, 0, 1+rng.Intn(10))
				if !back.After(cfg.End) {
					ds.Returns = append(ds.Returns, source.ReturnRow{ReturnDate: back, ProductKey: product, Quantity: float64(returned)})
				}
			}
		}
	}

	return ds
}

func productKey(sub, n int) string {
	return fmt.Sprintf("%d", 100*(sub+1)+n)
}

// poisson uses Knuth's product method, fine for the small rates above.
func poisson(rng *rand.Rand, lambda float64) int {
	l := math.Exp(-lambda)
	k, p := 0, 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return k
		}
		k++
	}
}

func Save(outDir string, ds *source.Dataset) error {
	return source.WriteDataset(outDir, ds)
}
