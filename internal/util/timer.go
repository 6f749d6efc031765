package util

import (
	"log/slog"
	"time"
)

// PerfTimer measures the duration of one run interval and reports it,
// together with total process uptime, when stopped.
type PerfTimer struct {
	appStart time.Time
	start    time.Time
	log      *slog.Logger
}

// NewPerfTimer starts a timer for a single run interval. appStart is the
// process start time used for the uptime report.
func NewPerfTimer(appStart time.Time, log *slog.Logger) *PerfTimer {
	return &PerfTimer{
		appStart: appStart,
		start:    time.Now(),
		log:      log,
	}
}

// Stop logs the elapsed interval and uptime, and returns the interval.
func (p *PerfTimer) Stop() time.Duration {
	end := time.Now()
	elapsed := end.Sub(p.start)
	p.log.Info("run interval complete",
		"interval", elapsed,
		"uptime", end.Sub(p.appStart),
		"finished_at", end.Format(time.DateTime),
	)
	return elapsed
}
