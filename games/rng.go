package games

import "math"

// RNG is a mulberry32 generator. The virtual products were audited against
// this exact stream, so the implementation must stay bit-compatible: same
// seed, same sequence, on every platform.
type RNG struct {
	state uint32
}

func NewRNG(seed uint32) *RNG {
	return &RNG{state: seed}
}

// Float64 returns the next value in [0,1).
func (r *RNG) Float64() float64 {
	r.state += 0x6D2B79F5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Intn returns a uniform int in [0,n).
func (r *RNG) Intn(n int) int {
	return int(r.Float64() * float64(n))
}

// Poisson draws one sample via Knuth's method. Fine for the small lambdas
// used by the football simulation.
func (r *RNG) Poisson(lambda float64) int {
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= r.Float64()
		if p <= l {
			break
		}
	}
	return k - 1
}

// SampleIndex draws an index from a discrete distribution. probs must sum
// to ~1; the last index absorbs rounding slack.
func (r *RNG) SampleIndex(probs []float64) int {
	u := r.Float64()
	acc := 0.0
	for i, p := range probs {
		acc += p
		if u <= acc {
			return i
		}
	}
	return len(probs) - 1
}

func softmax(xs []float64) []float64 {
	max := xs[0]
	for _, v := range xs[1:] {
		if v > max {
			max = v
		}
	}
	sum := 0.0
	exps := make([]float64, len(xs))
	for i, v := range xs {
		exps[i] = math.Exp(v - max)
		sum += exps[i]
	}
	for i := range exps {
		exps[i] /= sum
	}
	return exps
}

// priceOf inverts a probability into a posted price after shaving the house
// margin off. Probabilities at or below zero get the book's ceiling price.
func priceOf(p, margin float64) float64 {
	p = p * (1 - margin)
	if p <= 0 {
		return 1000
	}
	return round2(1 / p)
}

func pricesOf(probs []float64, margin float64) []float64 {
	out := make([]float64, len(probs))
	for i, p := range probs {
		out[i] = priceOf(p, margin)
	}
	return out
}

// poissonCDF is P(X <= k) for X ~ Poisson(lambda).
func poissonCDF(k int, lambda float64) float64 {
	p := math.Exp(-lambda)
	acc := p
	for i := 1; i <= k; i++ {
		p = p * lambda / float64(i)
		acc += p
	}
	return acc
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
