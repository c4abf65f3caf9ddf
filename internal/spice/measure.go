package spice

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseMeasures extracts `.measure` results from simulator output.
//
// Both supported backends print results as "name = value" lines, with
// engineering suffixes in some hspice configurations and plain
// scientific notation in ngspice. A measure the simulator could not
// evaluate prints "failed"; those are omitted from the map so the
// caller can distinguish a missing threshold crossing from a zero.
func ParseMeasures(r io.Reader) (map[string]float64, error) {
	measures := make(map[string]float64)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		name, value, ok := splitMeasureLine(scanner.Text())
		if !ok {
			continue
		}
		v, err := parseEngineering(value)
		if err != nil {
			continue
		}
		measures[strings.ToLower(name)] = v
	}
	return measures, scanner.Err()
}

// splitMeasureLine recognizes "name  =  value [trailing]" lines and
// rejects everything else.
func splitMeasureLine(line string) (name, value string, ok bool) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return "", "", false
	}
	name = strings.TrimSpace(line[:eq])
	rest := strings.Fields(strings.TrimSpace(line[eq+1:]))
	if name == "" || len(rest) == 0 || strings.ContainsAny(name, " \t") {
		return "", "", false
	}
	value = rest[0]
	if strings.EqualFold(value, "failed") {
		return "", "", false
	}
	return name, value, true
}

// engineering suffixes per the SPICE convention. "m" is milli; "meg"
// must be checked before "m".
var engSuffixes = []struct {
	suffix string
	scale  float64
}{
	{"meg", 1e6},
	{"t", 1e12},
	{"g", 1e9},
	{"k", 1e3},
	{"m", 1e-3},
	{"u", 1e-6},
	{"n", 1e-9},
	{"p", 1e-12},
	{"f", 1e-15},
	{"a", 1e-18},
}

func parseEngineering(s string) (float64, error) {
	lower := strings.ToLower(s)
	for _, e := range engSuffixes {
		if strings.HasSuffix(lower, e.suffix) {
			v, err := strconv.ParseFloat(strings.TrimSuffix(lower, e.suffix), 64)
			if err != nil {
				// Not a suffixed number ("nan", "inf"); fall through to
				// the plain parse below.
				break
			}
			return v * e.scale, nil
		}
	}
	return strconv.ParseFloat(s, 64)
}

// missingMeasures returns the expected measure names absent from got.
func missingMeasures(expected []string, got map[string]float64) []string {
	var missing []string
	for _, name := range expected {
		if _, ok := got[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
