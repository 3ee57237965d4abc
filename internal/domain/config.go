package domain

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// AssessmentMode determines how assessments are produced
	// - "scoring": Metrics → Scores (fast, no review queue)
	// - "suitability": Metrics → Scores → Flag rules → Review priority
	AssessmentMode AssessmentMode `json:"assessmentMode"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`
	Engine     EngineConfig     `json:"engine"`
	Review     ReviewConfig     `json:"review"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// AssessmentMode determines the assessment pipeline strategy.
type AssessmentMode string

const (
	// ModeScoring derives metrics and scores only.
	// Fast, no rule evaluation, nothing lands in a review queue.
	// Use for: embedded scoring, robo onboarding flows.
	ModeScoring AssessmentMode = "scoring"

	// ModeSuitability runs flag rules over every assessment and assigns a
	// review priority. Full audit trail for advised business.
	// Use for: advisory firms, compliance teams.
	ModeSuitability AssessmentMode = "suitability"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds

	// RateLimitRPS caps requests per second per tenant. 0 disables limiting.
	RateLimitRPS int `json:"rateLimitRps"`
}

// EngineConfig holds flag-rule engine settings.
type EngineConfig struct {
	// MaxWorkers bounds concurrent rule evaluation per assessment.
	MaxWorkers int `json:"maxWorkers"`
}

// ReviewConfig holds review aggregation settings.
type ReviewConfig struct {
	// Bands map review scores to priorities, first match wins.
	Bands []ReviewBand `json:"bands"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"

	// TierEnterprise includes multi-node, SSO, etc.
	TierEnterprise Tier = "enterprise"
)

// DefaultReviewBands returns the standard review-score to priority mapping.
func DefaultReviewBands() []ReviewBand {
	return []ReviewBand{
		{Bound: 5.0, Priority: ReviewPriorityHigh},
		{Bound: 2.5, Priority: ReviewPriorityMedium},
		{Bound: 0.5, Priority: ReviewPriorityLow},
	}
}

// DefaultConfig returns a default configuration for Community tier.
// Suitability mode is on by default so flags work out of the box.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			RateLimitRPS: 0,
		},
		Tier:           TierCommunity,
		AssessmentMode: ModeSuitability,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300, // 5 minutes
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Engine: EngineConfig{
			MaxWorkers: 4,
		},
		Review: ReviewConfig{
			Bands: DefaultReviewBands(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
// Pro tier keeps Suitability mode and swaps in the clustered backends.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Engine.MaxWorkers = 16
	cfg.Tracing.Enabled = true
	return cfg
}
