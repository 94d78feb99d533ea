package reconcileranking

// Config holds the reconciliation constants. FallbackConfidence signals
// degraded quality to callers; it must stay below any threshold a caller
// uses to distinguish model-backed rankings.
type Config struct {
	FallbackConfidence float64
}

func DefaultConfig() *Config {
	return &Config{
		FallbackConfidence: 0.3,
	}
}
