package indication

import (
	"fmt"
	"strconv"
	"strings"
)

// CockpitParam finds `name:value` in a cockpit parameter listing and parses
// the value.
func CockpitParam(listing, name string) (float64, error) {
	prefix := name + ":"
	for _, line := range strings.Split(listing, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		parts := strings.Split(line, ":")
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrParse, line)
		}
		return v, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrIndex, name)
}
