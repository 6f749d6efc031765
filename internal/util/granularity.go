package util

import (
	"fmt"
	"time"
)

// GranularityDuration maps a candle granularity string ("M1", "M5", "M15",
// "M30", "H1", "H4", "D") to its bar duration. It returns an error for
// unknown granularities so misconfigured charts fail fast.
func GranularityDuration(granularity string) (time.Duration, error) {
	switch granularity {
	case "M1":
		return time.Minute, nil
	case "M5":
		return 5 * time.Minute, nil
	case "M15":
		return 15 * time.Minute, nil
	case "M30":
		return 30 * time.Minute, nil
	case "H1":
		return time.Hour, nil
	case "H4":
		return 4 * time.Hour, nil
	case "D":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown granularity %q", granularity)
	}
}
