package codec

import (
	"math"
	"strconv"
)

// Frequency is an absolute frequency in Hz, as stored in gpu-freq cells
type Frequency uint64

const (
	Hz  Frequency = 1
	MHz Frequency = 1_000_000
	GHz Frequency = 1_000_000_000
)

// MHz returns the frequency in megahertz
func (f Frequency) MHz() float64 {
	return float64(f) / float64(MHz)
}

// GHz returns the frequency in gigahertz
func (f Frequency) GHz() float64 {
	return float64(f) / float64(GHz)
}

// FromMHz converts megahertz back to Hz, rounding to the nearest Hz
func FromMHz(mhz float64) Frequency {
	return Frequency(math.Round(mhz * float64(MHz)))
}

// FromGHz converts gigahertz back to Hz, rounding to the nearest Hz
func FromGHz(ghz float64) Frequency {
	return Frequency(math.Round(ghz * float64(GHz)))
}

// String renders the frequency in MHz, e.g. "587 MHz"
func (f Frequency) String() string {
	return strconv.FormatFloat(f.MHz(), 'f', -1, 64) + " MHz"
}
