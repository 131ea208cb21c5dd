package config

import "time"

// DefaultConfig returns sensible defaults for every setting except the
// Gemini API key, which must always come from the environment or a file.
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Gemini:    DefaultGeminiConfig(),
		Fetch:     DefaultFetchConfig(),
		Pipeline:  DefaultPipelineConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig returns the default listener configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		// Analyze requests block for the whole pipeline run; the write
		// timeout has to outlast activation (300s) plus retries.
		WriteTimeout:    15 * time.Minute,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    10,
		RateLimitBurst:  20,
	}
}

// DefaultGeminiConfig returns the backend defaults. No API key default.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		Model: "gemini-2.0-flash",
	}
}

// DefaultFetchConfig returns the fetcher defaults.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Dir: "./videos",
	}
}

// DefaultPipelineConfig returns the orchestration defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ActivationTimeout: 300 * time.Second,
		PollInterval:      time.Second,
		MaxAttempts:       5,
		RetryDelay:        10 * time.Second,
		CallTimeout:       120 * time.Second,
	}
}

// DefaultLogConfig mirrors log output to the console and an append-only
// log file.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout", "vidlens.log"},
	}
}

// DefaultTelemetryConfig returns telemetry defaults (disabled).
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "vidlens",
		SampleRate:   1.0,
	}
}
