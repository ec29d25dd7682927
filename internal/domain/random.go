package domain

import (
	"math"
	"time"
)

const (
	mulberryIncrement = 0x6D2B79F5
	twoTo32           = 4294967296.0
)

// SeededRandom is a Mulberry32 generator. The same seed always yields the
// same stream. It is not safe for concurrent use; give every generation pass
// its own instance.
type SeededRandom struct {
	state uint32
}

// NewSeededRandom returns a generator positioned at the start of seed's
// stream.
func NewSeededRandom(seed uint32) *SeededRandom {
	return &SeededRandom{state: seed}
}

// Uint32 advances the generator and returns the next mixed 32-bit word.
func (r *SeededRandom) Uint32() uint32 {
	r.state += mulberryIncrement
	t := r.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns the next value in [0,1).
func (r *SeededRandom) Float64() float64 {
	return float64(r.Uint32()) / twoTo32
}

// Intn returns a uniform integer in [lo, hi].
func (r *SeededRandom) Intn(lo, hi int) int {
	return int(math.Floor(r.Float64()*float64(hi-lo+1))) + lo
}

// Shuffle returns a copy of items in Fisher-Yates order driven by r.
func Shuffle[T any](r *SeededRandom, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := int(math.Floor(r.Float64() * float64(i+1)))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Pick returns one element of items.
func (r *SeededRandom) Pick(items []string) string {
	return items[int(math.Floor(r.Float64()*float64(len(items))))]
}

// DayKey returns the yyyymmdd integer for t's calendar day in loc,
// e.g. 2024-03-07 becomes 20240307.
func DayKey(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return y*10000 + int(m)*100 + d
}

// DayString returns t's calendar day in loc as YYYY-MM-DD.
func DayString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}
