package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolve_AssignsSortedIDsFromZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoder", "encoder.json")
	r := Open(path)

	mapping, err := r.Resolve([]string{"Tires", "Pedals"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if mapping["Pedals"] != 0 {
		t.Errorf("Expected Pedals=0, got %d", mapping["Pedals"])
	}
	if mapping["Tires"] != 1 {
		t.Errorf("Expected Tires=1, got %d", mapping["Tires"])
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected mapping file to be written: %v", err)
	}
}

func TestResolve_IdempotentWithoutRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoder.json")
	r := Open(path)

	if _, err := r.Resolve([]string{"Bottles and Cages", "Caps"}); err != nil {
		t.Fatalf("First resolve failed: %v", err)
	}

	past := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	second, err := r.Resolve([]string{"Caps", "Bottles and Cages"})
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(past) {
		t.Errorf("Expected mapping file untouched, mtime moved to %v", info.ModTime())
	}
	if len(second) != 2 {
		t.Errorf("Expected 2 entries, got %d", len(second))
	}
}

func TestResolve_SupersetKeepsExistingIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoder.json")
	r := Open(path)

	first, err := r.Resolve([]string{"Jerseys", "Gloves", "Socks"})
	if err != nil {
		t.Fatal(err)
	}

	second, err := Open(path).Resolve([]string{"Vests", "Jerseys", "Bib-Shorts", "Gloves", "Socks"})
	if err != nil {
		t.Fatal(err)
	}

	for name, id := range first {
		if second[name] != id {
			t.Errorf("ID drift for %s: %d -> %d", name, id, second[name])
		}
	}

	// New names continue from max+1 in sorted order.
	if second["Bib-Shorts"] != 3 || second["Vests"] != 4 {
		t.Errorf("Expected Bib-Shorts=3 Vests=4, got %d %d", second["Bib-Shorts"], second["Vests"])
	}
}

func TestResolve_RoundTripExistingMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoder.json")
	data, _ := json.Marshal(Mapping{"Road Bikes": 3})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatal(err)
	}

	mapping, err := Open(path).Resolve([]string{"Road Bikes"})
	if err != nil {
		t.Fatal(err)
	}

	if len(mapping) != 1 || mapping["Road Bikes"] != 3 {
		t.Errorf("Expected {Road Bikes: 3}, got %v", mapping)
	}

	info, _ := os.Stat(path)
	if !info.ModTime().Equal(past) {
		t.Error("Expected no rewrite for an already known name")
	}
}

func TestResolve_GapsContinueFromMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoder.json")
	data, _ := json.Marshal(Mapping{"Road Bikes": 3, "Helmets": 7})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	mapping, err := Open(path).Resolve([]string{"Locks"})
	if err != nil {
		t.Fatal(err)
	}
	if mapping["Locks"] != 8 {
		t.Errorf("Expected Locks=8, got %d", mapping["Locks"])
	}
}

func TestResolve_CorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoder.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	mapping, err := Open(path).Resolve([]string{"Fenders"})
	if err != nil {
		t.Fatalf("Corrupt mapping must not be an error: %v", err)
	}
	if mapping["Fenders"] != 0 {
		t.Errorf("Expected Fenders=0, got %d", mapping["Fenders"])
	}
}

func TestResolve_DuplicateIDsTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encoder.json")
	if err := os.WriteFile(path, []byte(`{"Road Bikes":3,"Helmets":3}`), 0644); err != nil {
		t.Fatal(err)
	}

	mapping, err := Open(path).Resolve([]string{"Road Bikes", "Helmets"})
	if err != nil {
		t.Fatalf("Duplicate IDs must not be an error: %v", err)
	}
	if mapping["Helmets"] != 0 || mapping["Road Bikes"] != 1 {
		t.Errorf("Expected fresh IDs Helmets=0 Road Bikes=1, got %v", mapping)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var saved map[string]int
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatal(err)
	}
	if saved["Helmets"] == saved["Road Bikes"] {
		t.Errorf("Rewritten mapping still shares an ID: %v", saved)
	}
}

func TestRegistry_Views(t *testing.T) {
	r := Open(filepath.Join(t.TempDir(), "encoder.json"))
	if _, err := r.Resolve([]string{"b", "a", "c", "a"}); err != nil {
		t.Fatal(err)
	}

	names := r.Names()
	if len(names) != 3 || names[0] != "a" || names[2] != "c" {
		t.Errorf("Unexpected names order: %v", names)
	}
	if id, ok := r.Lookup("b"); !ok || id != 1 {
		t.Errorf("Expected b=1, got %d (%v)", id, ok)
	}
	if r.Reverse()[2] != "c" {
		t.Errorf("Expected reverse 2 -> c, got %q", r.Reverse()[2])
	}
}
