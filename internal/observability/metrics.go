package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Import run outcomes.
const (
	ImportSuccess      = "success"
	ImportNotConnected = "not_connected"
	ImportFetchFailed  = "fetch_failed"
)

var (
	tokenRefreshCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "athlete_log",
		Subsystem: "strava",
		Name:      "token_refresh_total",
		Help:      "Strava token refresh attempts, labeled by outcome.",
	}, []string{"outcome"})

	importRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "athlete_log",
		Subsystem: "strava",
		Name:      "import_runs_total",
		Help:      "Strava import runs, labeled by outcome.",
	}, []string{"outcome"})

	importRecordCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "athlete_log",
		Subsystem: "strava",
		Name:      "import_records_total",
		Help:      "Strava activities seen by the importer, labeled by result.",
	}, []string{"result"})

	lastImportGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "athlete_log",
		Subsystem: "strava",
		Name:      "last_import_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful import run.",
	})
)

func init() {
	prometheus.MustRegister(tokenRefreshCounter, importRunCounter, importRecordCounter, lastImportGauge)
}

// RecordTokenRefresh counts one refresh attempt.
func RecordTokenRefresh(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	tokenRefreshCounter.WithLabelValues(outcome).Inc()
}

// RecordImportRun counts a finished import run. A successful run also moves
// the last-import watermark to ts.
func RecordImportRun(outcome string, ts time.Time) {
	importRunCounter.WithLabelValues(outcome).Inc()
	if outcome == ImportSuccess && !ts.IsZero() {
		lastImportGauge.Set(float64(ts.Unix()))
	}
}

// RecordImportRecords adds the per-record tallies of one run.
func RecordImportRecords(imported, skipped, invalid int) {
	importRecordCounter.WithLabelValues("imported").Add(float64(imported))
	importRecordCounter.WithLabelValues("skipped").Add(float64(skipped))
	importRecordCounter.WithLabelValues("invalid").Add(float64(invalid))
}
