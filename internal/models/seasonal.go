package models

import (
	"fmt"
	"math"
)

// arRidge is the penalty applied to lag coefficients.
const arRidge = 1e-6

// SeasonalAR is an autoregressive model with an optional weekly seasonal lag and an
// optional exogenous regressor, selected by AIC over a small order grid.
type SeasonalAR struct {
	Order      int       `json:"order"`
	Seasonal   bool      `json:"seasonal"`
	Period     int       `json:"period"`
	Intercept  float64   `json:"intercept"`
	AR         []float64 `json:"ar"`
	SAR        float64   `json:"sar"`
	HasExog    bool      `json:"has_exog"`
	ExogCoef   float64   `json:"exog_coef"`
	History    []float64 `json:"history"`
	Sigma2     float64   `json:"sigma2"`
	AIC        float64   `json:"aic"`
	Candidates int       `json:"candidates"`
}

func (m *SeasonalAR) maxLag() int {
	lag := m.Order
	if m.Seasonal && m.Period > lag {
		lag = m.Period
	}
	return lag
}

func (m *SeasonalAR) row(hist []float64, t int, x float64) []float64 {
	r := make([]float64, 0, 3+m.Order)
	r = append(r, 1)
	for i := 1; i <= m.Order; i++ {
		r = append(r, hist[t-i])
	}
	if m.Seasonal {
		r = append(r, hist[t-m.Period])
	}
	if m.HasExog {
		r = append(r, x)
	}
	return r
}

func (m *SeasonalAR) setCoefficients(beta []float64) {
	m.Intercept = beta[0]
	m.AR = append([]float64(nil), beta[1:1+m.Order]...)
	idx := 1 + m.Order
	if m.Seasonal {
		m.SAR = beta[idx]
		idx++
	}
	if m.HasExog {
		m.ExogCoef = beta[idx]
	}
}

// stable rejects explosive recursions. A unit seasonal coefficient alone is allowed and
// repeats the last observed week.
func (m *SeasonalAR) stable() bool {
	s := 0.0
	for _, c := range m.AR {
		s += math.Abs(c)
	}
	return s < 0.999 && s+math.Abs(m.SAR) <= 1.001
}

// FitSeasonal searches AR orders 0..MaxAROrder with and without the seasonal lag and keeps
// the stable candidate with the lowest AIC. exog may be nil; when given it must align with y.
func FitSeasonal(y, exog []float64, opts Options) (*SeasonalAR, error) {
	period := opts.SeasonalPeriod
	if period <= 0 {
		period = 7
	}
	if len(y) < 3*period {
		return nil, fmt.Errorf("%w: %d days, need %d", ErrInsufficientHistory, len(y), 3*period)
	}
	if exog != nil && len(exog) != len(y) {
		return nil, fmt.Errorf("exogenous series has %d values for %d observations", len(exog), len(y))
	}

	var best *SeasonalAR
	tried := 0
	for p := 0; p <= opts.MaxAROrder; p++ {
		for _, seasonal := range []bool{false, true} {
			cand := &SeasonalAR{Order: p, Seasonal: seasonal, Period: period, HasExog: exog != nil}
			if err := cand.fit(y, exog); err != nil {
				continue
			}
			tried++
			if !cand.stable() {
				continue
			}
			if best == nil || cand.AIC < best.AIC {
				best = cand
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no stable candidate among %d fitted orders", tried)
	}
	best.Candidates = tried
	return best, nil
}

func (m *SeasonalAR) fit(y, exog []float64) error {
	lag := m.maxLag()
	rows := make([][]float64, 0, len(y)-lag)
	target := make([]float64, 0, len(y)-lag)
	for t := lag; t < len(y); t++ {
		x := 0.0
		if m.HasExog {
			x = exog[t]
		}
		rows = append(rows, m.row(y, t, x))
		target = append(target, y[t])
	}

	beta, err := ridgeSolve(rows, target, arRidge)
	if err != nil {
		return err
	}
	m.setCoefficients(beta)

	n := float64(len(rows))
	m.Sigma2 = math.Max(residualVariance(rows, target, beta), 1e-9)
	m.AIC = n*math.Log(m.Sigma2) + 2*float64(len(beta)+1)

	keep := max(lag, 1)
	m.History = append([]float64(nil), y[len(y)-keep:]...)
	return nil
}

// Predict forecasts steps days ahead recursively from the stored history.
// Models trained with an exogenous regressor need at least steps future values.
func (m *SeasonalAR) Predict(steps int, futureExog []float64) ([]float64, error) {
	if m.HasExog && len(futureExog) < steps {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrMissingExog, len(futureExog), steps)
	}
	lag := m.maxLag()
	if len(m.History) < lag {
		return nil, fmt.Errorf("model history holds %d values, need %d", len(m.History), lag)
	}

	coef := m.coefficients()
	hist := append([]float64(nil), m.History...)
	out := make([]float64, steps)
	for i := 0; i < steps; i++ {
		x := 0.0
		if m.HasExog {
			x = futureExog[i]
		}
		v := dot(m.row(hist, len(hist), x), coef)
		out[i] = v
		hist = append(hist, v)
	}
	return out, nil
}

func (m *SeasonalAR) coefficients() []float64 {
	c := make([]float64, 0, 3+m.Order)
	c = append(c, m.Intercept)
	c = append(c, m.AR...)
	if m.Seasonal {
		c = append(c, m.SAR)
	}
	if m.HasExog {
		c = append(c, m.ExogCoef)
	}
	return c
}
