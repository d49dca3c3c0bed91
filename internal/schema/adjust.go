package schema

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	metersRegex     = regexp.MustCompile(`^(-?\d+(?:[.,]\d+)?)\s*m$`)
	feetRegex       = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(?:ft|feet|')$`)
	feetInchesRegex = regexp.MustCompile(`^(\d+)\s*(?:'|ft)\s*(\d+(?:[.,]\d+)?)\s*(?:"|''|in)?$`)
	numberRegex     = regexp.MustCompile(`^(-?\d+(?:[.,]\d+)?)$`)
	floatRunRegex   = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)
)

const (
	metersPerFoot = 0.3048
	metersPerInch = 0.0254
)

// Boolean normalizes yes/no style values.
func Boolean(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1":
		return "yes", true
	case "no", "false", "0", "undefined", "null":
		return "no", true
	}
	return "", false
}

// Integer normalizes a decimal integer. Fractional values are truncated.
func Integer(v string) (string, bool) {
	s := strings.TrimSpace(v)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10), true
	}
	if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
		return strconv.FormatInt(int64(f), 10), true
	}
	return "", false
}

// Direction normalizes oneway style values to 1, -1 or 0.
func Direction(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true", "1":
		return "1"
	case "-1":
		return "-1"
	}
	return "0"
}

// ParseHeight parses a height expression into meters. Recognized forms are
// "12 m", "6 ft", 5'6" and bare numbers with either decimal separator.
func ParseHeight(v string) (float64, bool) {
	s := strings.ToLower(strings.TrimSpace(v))
	if m := metersRegex.FindStringSubmatch(s); m != nil {
		return parseDecimal(m[1])
	}
	if m := feetInchesRegex.FindStringSubmatch(s); m != nil {
		feet, ok1 := parseDecimal(m[1])
		inches, ok2 := parseDecimal(m[2])
		if ok1 && ok2 {
			return (feet*12 + inches) * metersPerInch, true
		}
	}
	if m := feetRegex.FindStringSubmatch(s); m != nil {
		if feet, ok := parseDecimal(m[1]); ok {
			return feet * metersPerFoot, true
		}
	}
	if m := numberRegex.FindStringSubmatch(s); m != nil {
		return parseDecimal(m[1])
	}
	if run := floatRunRegex.FindString(s); run != "" {
		return parseDecimal(run)
	}
	return 0, false
}

// HeightString is ParseHeight rendered back to a tag value.
func HeightString(v string) (string, bool) {
	h, ok := ParseHeight(v)
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(h, 'f', -1, 64), true
}

func parseDecimal(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
