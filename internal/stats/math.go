package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Median finds the median value in a slice of floats.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	// Work on a copy to avoid mutating the original
	temp := make([]float64, len(values))
	copy(temp, values)
	slices.Sort(temp)

	n := len(temp)
	if n%2 == 1 {
		return temp[n/2]
	}
	return (temp[n/2-1] + temp[n/2]) / 2.0
}

// Mean is the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Tail returns the last n values (all of them when fewer exist).
func Tail(values []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}

// TailMean is the mean of the last n values.
func TailMean(values []float64, n int) float64 {
	return Mean(Tail(values, n))
}

// TailMedian is the median of the last n values.
func TailMedian(values []float64, n int) float64 {
	return Median(Tail(values, n))
}

// CoefficientOfVariation is the population standard deviation over the mean.
// A zero mean yields 0.
func CoefficientOfVariation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, variance := stat.PopMeanVariance(values, nil)
	if mean == 0 {
		return 0
	}
	return math.Sqrt(variance) / mean
}

// Sum adds every value.
func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// Max returns the largest value, 0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return slices.Max(values)
}

// ZeroRatio is the fraction of exactly-zero entries.
func ZeroRatio(values []float64) float64 {
	if len(values) == 0 {
		return 1
	}
	zeros := 0
	for _, v := range values {
		if v == 0 {
			zeros++
		}
	}
	return float64(zeros) / float64(len(values))
}

// Round rounds to the given number of decimals, half away from zero.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// MAE is the mean absolute error over the common prefix of actual and predicted.
func MAE(actual, predicted []float64) float64 {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		total += math.Abs(actual[i] - predicted[i])
	}
	return total / float64(n)
}

// RMSE is the root mean squared error over the common prefix of actual and predicted.
func RMSE(actual, predicted []float64) float64 {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return 0
	}
	total := 0.0
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		total += d * d
	}
	return math.Sqrt(total / float64(n))
}
