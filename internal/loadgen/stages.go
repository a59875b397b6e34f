package loadgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Stage is one step of a staged concurrency ramp: a constant request rate
// held for a duration.
type Stage struct {
	Rate     int
	Duration time.Duration
}

// ParseStages parses "100:30s,500:1m" into an ordered ramp.
func ParseStages(s string) ([]Stage, error) {
	parts := strings.Split(s, ",")
	stages := make([]Stage, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		rateStr, durStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid stage %q: want rate:duration", part)
		}

		rate, err := strconv.Atoi(rateStr)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid stage rate %q", rateStr)
		}

		dur, err := time.ParseDuration(durStr)
		if err != nil || dur <= 0 {
			return nil, fmt.Errorf("invalid stage duration %q", durStr)
		}

		stages = append(stages, Stage{Rate: rate, Duration: dur})
	}

	if len(stages) == 0 {
		return nil, fmt.Errorf("no stages in %q", s)
	}
	return stages, nil
}
