// Package demography estimates gender and age for enriched client rows.
//
// Age comes from two independent estimators: the age-bracket distribution
// of the row's geo code and the birth-year distribution of its first name.
// A declared age flagged as authoritative bypasses both.
package demography

import (
	"math"
	"strings"

	"github.com/hazyhaar/geoenrich/pkg/normalize"
	"github.com/hazyhaar/geoenrich/pkg/reference"
)

// Midpoints weights the age brackets, in reference.BracketColumns order.
var Midpoints = [9]float64{2.5, 8, 14, 21, 32, 47, 60, 72, 85}

// Reliability tells where e_age came from.
type Reliability int

const (
	Declared    Reliability = 1
	Estimated   Reliability = 2
	Unavailable Reliability = 3
)

// Confidence labels.
const (
	ConfidenceHigh   = "Confiance ++"
	ConfidenceMedium = "Confiance +"
	ConfidenceLow    = "Confiance"
	ConfidenceSingle = "Confiance -"
	ConfidenceNone   = "Confiance --"
)

// WithinFiveYears is the constant probability written to e_p_5ans.
const WithinFiveYears = 0.9

// GenderFromName guesses "F" when the first name ends in "a", "M"
// otherwise. An empty name gives "".
func GenderFromName(name string) string {
	n := normalize.Name(name)
	if n == "" {
		return ""
	}
	if strings.HasSuffix(n, "a") {
		return "F"
	}
	return "M"
}

// Gender keeps a declared "H" or "F" and otherwise falls back to the name
// heuristic when estimate is set.
func Gender(declared string, firstName string, estimate bool) string {
	switch d := strings.TrimSpace(declared); d {
	case "H", "F":
		return d
	}
	if !estimate {
		return ""
	}
	return GenderFromName(firstName)
}

// GeoAge is the bracket-midpoint mean weighted by population counts. It
// abstains when the brackets hold no population.
func GeoAge(b reference.AgeBrackets) (float64, bool) {
	var sum, total float64
	for k, n := range b {
		if n <= 0 {
			continue
		}
		sum += n * Midpoints[k]
		total += n
	}
	if total == 0 {
		return 0, false
	}
	return sum / total, true
}

// NameCohortAge averages currentYear-y over the years y with a strictly
// positive count. Counts are not used as weights.
func NameCohortAge(h *reference.Histogram, currentYear int) (float64, bool) {
	if h == nil {
		return 0, false
	}
	var sum float64
	var n int
	for y := reference.FirstYear; y <= reference.LastYear; y++ {
		if h.Count(y) > 0 {
			sum += float64(currentYear - y)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Confidence grades the agreement between the two estimators. Only the
// absolute difference matters, so the arguments commute.
func Confidence(a float64, hasA bool, b float64, hasB bool) string {
	switch {
	case hasA && hasB:
		d := math.Abs(a - b)
		if d < 5 {
			return ConfidenceHigh
		}
		if d < 10 {
			return ConfidenceMedium
		}
		return ConfidenceLow
	case hasA || hasB:
		return ConfidenceSingle
	default:
		return ConfidenceNone
	}
}

// Shrink moves age halfway toward mean.
func Shrink(age, mean float64) float64 {
	return age - (age-mean)/2
}

// BirthYear subtracts the age rounded half to even.
func BirthYear(currentYear int, age float64) int {
	return currentYear - int(math.RoundToEven(age))
}
