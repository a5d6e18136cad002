package dsp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// HTK mel scale constants.
const (
	melScalar = 2595.0
	melBreak  = 700.0
)

func hzToMel(hz float64) float64 {
	return melScalar * math.Log10(1+hz/melBreak)
}

func melToHz(m float64) float64 {
	return melBreak * (math.Pow(10, m/melScalar) - 1)
}

// melBank builds an nMels x (nfft/2+1) triangular filterbank spanning
// [fmin, fmax] Hz on the HTK mel scale. Filter m rises over the bins between
// points m and m+1 and falls over the bins between points m+1 and m+2.
func melBank(rate, nfft, nMels int, fmin, fmax float64) *mat.Dense {
	bins := nfft/2 + 1
	minMel := hzToMel(fmin)
	maxMel := hzToMel(fmax)
	step := (maxMel - minMel) / float64(nMels+1)

	binPoints := make([]int, nMels+2)
	for i := range binPoints {
		hz := melToHz(minMel + float64(i)*step)
		binPoints[i] = int(math.Floor(float64(nfft+1) * hz / float64(rate)))
	}

	bank := mat.NewDense(nMels, bins, nil)
	for m := 0; m < nMels; m++ {
		start, center, end := binPoints[m], binPoints[m+1], binPoints[m+2]
		for f := start; f < center && f < bins; f++ {
			bank.Set(m, f, float64(f-start)/float64(center-start))
		}
		for f := center; f < end && f < bins; f++ {
			bank.Set(m, f, float64(end-f)/float64(end-center))
		}
	}
	return bank
}

// melBankInverse returns the transposed bank with each filter normalized by
// its weight sum: an approximate right inverse that spreads a band's energy
// back over the linear bins it was pooled from.
func melBankInverse(bank *mat.Dense) *mat.Dense {
	nMels, bins := bank.Dims()
	inv := mat.NewDense(bins, nMels, nil)
	for m := 0; m < nMels; m++ {
		sum := 0.0
		for f := 0; f < bins; f++ {
			sum += bank.At(m, f)
		}
		if sum == 0 {
			continue
		}
		for f := 0; f < bins; f++ {
			inv.Set(f, m, bank.At(m, f)/sum)
		}
	}
	return inv
}
