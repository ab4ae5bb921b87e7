package telemetry

// Config selects how spans leave the process.
type Config struct {
	Service string
	Version string

	// Enabled installs the SDK provider; otherwise spans are noops.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector URL, e.g.
	// "http://localhost:4318/v1/traces". Empty keeps spans in process.
	Endpoint string

	// SampleRate is the fraction of root traces kept, 0 to 1.
	SampleRate float64
}

// DefaultConfig has tracing off.
func DefaultConfig() Config {
	return Config{
		Service:    "adminctl",
		Version:    "dev",
		SampleRate: 1,
	}
}
