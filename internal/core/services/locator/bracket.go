// Package locator places a fault distance on the tower sequence of a
// transmission line and draws the phase transposition around it.
package locator

// Bracket holds the indexes of the two neighbouring distances around a target.
type Bracket struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// LocateBracket returns the first i with distances[i] <= target <= distances[i+1].
// distances must be ascending.
func LocateBracket(target float64, distances []float64) (Bracket, bool) {
	for i := 0; i+1 < len(distances); i++ {
		if distances[i] <= target && target <= distances[i+1] {
			return Bracket{Lower: i, Upper: i + 1}, true
		}
	}
	return Bracket{}, false
}

// Interpolate maps target between (d0, v0) and (d1, v1). When d0 == d1 it
// returns v0.
func Interpolate(target, d0, d1, v0, v1 float64) float64 {
	if d1 == d0 {
		return v0
	}
	return v0 + (target-d0)/(d1-d0)*(v1-v0)
}

// linspace returns n evenly spaced values from start to end inclusive.
func linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = end
	return out
}
