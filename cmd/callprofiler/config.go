package main

type (
	ServiceConfig struct {
		Environment string `env:"ENVIRONMENT" env-default:"development"`
		Port        int    `env:"PORT" env-default:"8080"`

		SentryDSN string `env:"SENTRY_DSN"`

		// Exactly one storage backend is used: a GCS bucket when
		// REPORTS_BUCKET is set, a local BadgerDB otherwise.
		ReportsBucket string `env:"REPORTS_BUCKET"`
		BadgerPath    string `env:"BADGER_PATH" env-default:"/var/lib/callprofiler/badger"`

		FunctionsKafkaBrokers []string `env:"FUNCTIONS_KAFKA_BROKERS" env-default:"localhost:9092" env-separator:","`
		FunctionsKafkaTopic   string   `env:"FUNCTIONS_KAFKA_TOPIC" env-default:"profiling-functions"`

		MaxTraceEvents int `env:"MAX_TRACE_EVENTS" env-default:"4000000"`
		MaxStackDepth  int `env:"MAX_STACK_DEPTH" env-default:"512"`
	}
)
