package dsp

import "math"

// amin floors magnitudes before the log so silence maps to a finite level.
// No top-of-range clamp; DBToAmplitude must invert AmplitudeToDB exactly
// above the floor.
const amin = 1e-10

// AmplitudeToDB converts a linear magnitude to decibels, flooring at amin.
func AmplitudeToDB(v float64) float64 {
	return 20 * math.Log10(math.Max(amin, v))
}

// DBToAmplitude inverts AmplitudeToDB for values above the silence floor.
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}
