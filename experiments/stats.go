package experiments

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// zValue returns the two-tailed z-value of a confidence level in percent.
func zValue(confidence float64) float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: 1,
	}
	return dist.Quantile((1 + confidence/100) / 2)
}

// confidenceInterval returns the mean of samples and the bounds of its
// normal confidence interval. With fewer than two samples the interval is
// the mean itself.
func confidenceInterval(samples []float64, confidence float64) (avg, low, high float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	if len(samples) < 2 {
		return samples[0], samples[0], samples[0]
	}
	avg, std := stat.MeanStdDev(samples, nil)
	half := zValue(confidence) * std / math.Sqrt(float64(len(samples)))
	return avg, avg - half, avg + half
}

// mean returns the mean of samples, 0 if there are none.
func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return stat.Mean(samples, nil)
}
