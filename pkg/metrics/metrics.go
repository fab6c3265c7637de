package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// MutationsValidated counts validated op batches. result is "accepted", "immutable" or "forbidden".
	MutationsValidated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Subsystem: "realtime", Name: "mutations_validated_total", Help: "Number of validated mutation batches by collection and result."},
		[]string{"collection", "result"},
	)
	DocumentsMigrated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Subsystem: "realtime", Name: "documents_migrated_total", Help: "Number of documents rewritten by schema migrations."},
		[]string{"collection"},
	)
	MigrationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Subsystem: "realtime", Name: "migration_failures_total", Help: "Number of collection migration runs that failed."},
		[]string{"collection"},
	)
	SchemaVersion = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "gogotex", Subsystem: "realtime", Name: "schema_version", Help: "Schema version currently stored per collection."},
		[]string{"collection"},
	)
	SnapshotCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "gogotex", Subsystem: "realtime", Name: "snapshot_cache_lookups_total", Help: "Snapshot cache lookups by result (hit, miss, error)."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(MutationsValidated)
	reg.MustRegister(DocumentsMigrated)
	reg.MustRegister(MigrationFailures)
	reg.MustRegister(SchemaVersion)
	reg.MustRegister(SnapshotCacheLookups)
}
