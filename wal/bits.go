package wal

import "math"

func valueBits(v float64) uint64 {
	return math.Float64bits(v)
}

func valueFromBits(bits uint64) float64 {
	return math.Float64frombits(bits)
}
