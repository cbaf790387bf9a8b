package chaos

// Params shapes the chaos ramp: the meter starts at Base and climbs by
// Slope per interaction recorded today, capped at Max.
type Params struct {
	Base  float64
	Slope float64
	Max   float64
}

// Compute maps today's interaction count to the chaos meter value.
// Pure; the result is monotone non-decreasing in interactionsToday and
// always stays within [Base, Max].
func Compute(interactionsToday int, p Params) float64 {
	if interactionsToday < 0 {
		interactionsToday = 0
	}
	v := p.Base + p.Slope*float64(interactionsToday)
	return clamp(v, p.Base, p.Max)
}

// The sampling temperature sent to the provider. A chaos of 0.5 is
// neutral; above that the meter pushes the temperature up, below it
// cools it down. Bounds stay inside every supported provider's range.
const (
	minTemperature = 0.2
	maxTemperature = 1.5
)

// Temperature derives the request temperature from the configured base
// temperature and the current chaos meter.
func Temperature(systemTemperature, chaos float64) float32 {
	return float32(clamp(systemTemperature+(chaos-0.5), minTemperature, maxTemperature))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
