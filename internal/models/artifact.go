package models

import (
	"errors"
	"fmt"
	"time"
)

// Kind tags which payload of an Artifact is populated.
type Kind string

const (
	KindSeasonal      Kind = "seasonal"
	KindDecomposition Kind = "decomposition"
	KindColdStart     Kind = "cold_start"
)

var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrInsufficientVolume  = errors.New("insufficient volume")
	ErrMissingExog         = errors.New("missing future exogenous values")
	ErrNotFound            = errors.New("model artifact not found")
)

// Artifact is the persisted, per-subcategory model. Exactly one payload matches Kind.
type Artifact struct {
	Kind          Kind               `json:"kind"`
	SubcategoryID int                `json:"subcategory_id"`
	Subcategory   string             `json:"subcategory"`
	TrainedAt     time.Time          `json:"trained_at"`
	RunID         string             `json:"run_id,omitempty"`
	Seasonal      *SeasonalAR        `json:"seasonal,omitempty"`
	Decomposition *Decomposition     `json:"decomposition,omitempty"`
	ColdStart     *ColdStartBaseline `json:"cold_start,omitempty"`
}

// Validate checks the payload matches the kind tag.
func (a *Artifact) Validate() error {
	populated := 0
	for _, set := range []bool{a.Seasonal != nil, a.Decomposition != nil, a.ColdStart != nil} {
		if set {
			populated++
		}
	}
	if populated != 1 {
		return fmt.Errorf("artifact %d carries %d payloads, want exactly 1", a.SubcategoryID, populated)
	}

	switch a.Kind {
	case KindSeasonal:
		if a.Seasonal == nil {
			return fmt.Errorf("artifact %d is tagged %s without a seasonal payload", a.SubcategoryID, a.Kind)
		}
	case KindDecomposition:
		if a.Decomposition == nil {
			return fmt.Errorf("artifact %d is tagged %s without a decomposition payload", a.SubcategoryID, a.Kind)
		}
	case KindColdStart:
		if a.ColdStart == nil {
			return fmt.Errorf("artifact %d is tagged %s without a cold start payload", a.SubcategoryID, a.Kind)
		}
	default:
		return fmt.Errorf("artifact %d has unknown kind %q", a.SubcategoryID, a.Kind)
	}
	return nil
}

// ColdStartBaseline is the optional marker persisted for low-signal subcategories.
type ColdStartBaseline struct {
	Subcategory   string  `json:"subcategory"`
	DailyVelocity float64 `json:"daily_velocity"`
	Status        string  `json:"status"`
}

// NewColdStart computes velocity as total over active (non-zero) days.
func NewColdStart(name string, quantity []float64) *ColdStartBaseline {
	total, active := 0.0, 0
	for _, q := range quantity {
		total += q
		if q != 0 {
			active++
		}
	}
	velocity := 0.0
	if active > 0 {
		velocity = total / float64(active)
	}
	return &ColdStartBaseline{Subcategory: name, DailyVelocity: velocity, Status: "cold_start"}
}

// Options tune model fitting.
type Options struct {
	MaxAROrder             int     `toml:"max_ar_order"`
	SeasonalPeriod         int     `toml:"seasonal_period"`
	Ridge                  float64 `toml:"ridge"`
	YearlyTerms            int     `toml:"yearly_terms"`
	MinDecompositionVolume float64 `toml:"min_decomposition_volume"`
}

// DefaultOptions mirrors a weekly seasonal search with small regularisation.
func DefaultOptions() Options {
	return Options{
		MaxAROrder:             3,
		SeasonalPeriod:         7,
		Ridge:                  0.1,
		YearlyTerms:            2,
		MinDecompositionVolume: 5,
	}
}
