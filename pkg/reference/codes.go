package reference

import (
	"math"
	"strconv"
	"strings"
)

// Code renders a code cell as text. Codes stored as numbers lose their
// leading zeros upstream (1001 for "01001"); the Pad helpers restore them.
func Code(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	case float64:
		if math.IsNaN(x) {
			return "", false
		}
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case string:
		s := strings.TrimSpace(x)
		if strings.HasSuffix(s, ".0") && isDigits(s[:len(s)-2]) {
			s = s[:len(s)-2]
		}
		return s, s != ""
	case []byte:
		return Code(string(x))
	default:
		return "", false
	}
}

// Code widths after padding.
const (
	CommuneWidth = 5
	PostalWidth  = 5
	GeoCodeWidth = 9
)

// PadCommune restores the leading zeros of an INSEE commune code: digit
// codes are left-padded to 5, any 4-character code gets one zero.
func PadCommune(code string) string {
	return pad(code, CommuneWidth)
}

// PadPostal left-pads a digit postal code to 5 characters.
func PadPostal(code string) string {
	if !isDigits(code) {
		return code
	}
	return pad(code, PostalWidth)
}

// PadGeoCode restores the leading zeros of a commune+IRIS code: digit codes
// are left-padded to 9, any 8-character code gets one zero.
func PadGeoCode(code string) string {
	return pad(code, GeoCodeWidth)
}

func pad(code string, width int) string {
	if len(code) == width-1 || (len(code) < width && isDigits(code)) {
		return strings.Repeat("0", width-len(code)) + code
	}
	return code
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
