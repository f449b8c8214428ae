package engine

import (
	"testing"
	"time"

	"retailcast/internal/demand"
	"retailcast/internal/routing"
)

func TestGenerate_CoversEveryRegime(t *testing.T) {
	end := time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC)
	ds := Generate(GeneratorConfig{Scenario: "mild", Days: 365, Seed: 7, End: end})

	if got := len(ds.Master()); got != len(Catalogue) {
		t.Fatalf("expected %d subcategories, got %d", len(Catalogue), got)
	}

	table, err := demand.Build(ds.SalesTransactions(), ds.Master(), demand.BuildOptions{TrackSecondary: true})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !table.LastDate().Equal(end) {
		t.Errorf("expected history to end on %s, got %s", demand.DateKey(end), demand.DateKey(table.LastDate()))
	}

	ids := map[string]int{}
	for i, name := range ds.Master() {
		ids[name] = i
	}
	if err := table.AttachIDs(ids); err != nil {
		t.Fatalf("AttachIDs failed: %v", err)
	}

	res := routing.Route(table, routing.SalesThresholds())
	for _, r := range routing.Regimes {
		if res.Counts[r] == 0 {
			t.Errorf("expected at least one %s subcategory, got none", r)
		}
	}
	if regime, _ := res.RegimeOf(ids["Pedals"]); regime != routing.LowSignal {
		t.Errorf("silent subcategory should be low signal, got %s", regime)
	}
	if regime, _ := res.RegimeOf(ids["Bike Racks"]); regime != routing.LowSignal {
		t.Errorf("spiky subcategory should be low signal, got %s", regime)
	}
}

func TestGenerate_Scenarios(t *testing.T) {
	end := time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC)
	volume := map[string]float64{}
	for _, scen := range []string{"mild", "sparse", "drift"} {
		ds := Generate(GeneratorConfig{Scenario: scen, Days: 200, Seed: 3, End: end})
		for _, s := range ds.Sales {
			volume[scen] += s.Quantity
			if s.OrderDate.After(end) {
				t.Fatalf("[%s] sale after window end: %s", scen, s.OrderDate)
			}
		}
		for _, r := range ds.Returns {
			if r.ReturnDate.After(end) {
				t.Fatalf("[%s] return after window end: %s", scen, r.ReturnDate)
			}
		}
	}

	if volume["sparse"] >= volume["mild"] {
		t.Errorf("sparse volume %.0f should be below mild %.0f", volume["sparse"], volume["mild"])
	}
	if volume["drift"] <= volume["mild"] {
		t.Errorf("drift volume %.0f should exceed mild %.0f", volume["drift"], volume["mild"])
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	ds := Generate(GeneratorConfig{Days: 30, Seed: 1})
	if err := Save(dir, ds); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}
