package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"dualvision-worker-go/internal/models"
)

// Learned detector backends
const (
	BackendONNX = "onnx"
	BackendGRPC = "grpc"
	BackendNone = "none"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	GRPCPort    int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// NATS (events and remote control)
	// Default: nats://localhost:4222
	// Docker: nats://nats:4222
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration
	NatsSubjectPrefix  string
	NatsControlQueue   string

	// Redis (latest detection snapshots)
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	// Capture
	DefaultDeviceIndex int
	AutoStart          bool
	DeviceReleaseDelay time.Duration
	WarmupRetries      int
	WarmupInterval     time.Duration
	ReadTimeout        time.Duration
	CaptureBufferSize  int
	ProbeMaxIndex      int

	// Pipeline
	ResourceProfile    string
	DetectionInterval  int
	FreshnessWindow    time.Duration
	IdleInterval       time.Duration
	RetryInterval      time.Duration
	SubscriberBuffer   int
	FPSWindow          int
	EventQueueSize     int
	ErrorLogEvery      int
	StatusPublishEvery time.Duration
	StreamKeepalive    time.Duration

	// Learned detector
	LearnedBackend      string
	LearnedModelPath    string
	LearnedClassesPath  string
	LearnedInputSize    int
	LearnedConfidence   float64
	LearnedNMSThreshold float64
	LearnedCUDA         bool
	LearnedGRPCAddr     string
	LearnedGRPCMethod   string

	// Cascade detector
	CascadeDir   string
	CascadeNames []string

	// Detector guard
	DetectorTimeout time.Duration
	DetectorRetries int

	// Settings file
	SettingsPath string

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Stats overlay
	OverlayColor string
	OverlayFont  int

	// Graceful Shutdown
	ShutdownTimeout time.Duration

	// Delay before restarting a crashed goroutine
	PanicRestartDelay time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "streamer-1"),
		Port:        getEnvInt("PORT", 8000),
		GRPCPort:    getEnvInt("GRPC_PORT", 50051),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),
		NatsSubjectPrefix:  getEnv("NATS_SUBJECT_PREFIX", "dualvision"),
		NatsControlQueue:   getEnv("NATS_CONTROL_QUEUE", "streamers"),

		// Redis
		RedisEnabled:  getEnvBool("REDIS_ENABLED", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "dualvision"),

		// Capture
		DefaultDeviceIndex: getEnvInt("CAMERA_INDEX", 0),
		AutoStart:          getEnvBool("AUTO_START", false),
		DeviceReleaseDelay: getEnvDuration("DEVICE_RELEASE_DELAY", 500*time.Millisecond),
		WarmupRetries:      getEnvInt("WARMUP_RETRIES", 5),
		WarmupInterval:     getEnvDuration("WARMUP_INTERVAL", 100*time.Millisecond),
		ReadTimeout:        getEnvDuration("READ_TIMEOUT", 2*time.Second),
		CaptureBufferSize:  getEnvInt("CAPTURE_BUFFER_SIZE", 1),
		ProbeMaxIndex:      getEnvInt("PROBE_MAX_INDEX", 5),

		// Pipeline
		ResourceProfile:    strings.ToLower(getEnv("RESOURCE_PROFILE", "standard")),
		FreshnessWindow:    getEnvDuration("FRESHNESS_WINDOW", 5*time.Second),
		IdleInterval:       getEnvDuration("IDLE_INTERVAL", 100*time.Millisecond),
		RetryInterval:      getEnvDuration("RETRY_INTERVAL", 10*time.Millisecond),
		SubscriberBuffer:   getEnvInt("SUBSCRIBER_BUFFER", 2),
		FPSWindow:          getEnvInt("FPS_WINDOW", 30),
		EventQueueSize:     getEnvInt("EVENT_QUEUE_SIZE", 64),
		ErrorLogEvery:      getEnvInt("ERROR_LOG_EVERY", 100),
		StatusPublishEvery: getEnvDuration("STATUS_PUBLISH_EVERY", 5*time.Second),
		StreamKeepalive:    getEnvDuration("STREAM_KEEPALIVE", 2*time.Second),

		// Learned detector
		LearnedBackend:      strings.ToLower(getEnv("LEARNED_BACKEND", BackendONNX)),
		LearnedModelPath:    getEnv("LEARNED_MODEL_PATH", "models/yolov8n.onnx"),
		LearnedClassesPath:  getEnv("LEARNED_CLASSES_PATH", ""),
		LearnedInputSize:    getEnvInt("LEARNED_INPUT_SIZE", 640),
		LearnedConfidence:   getEnvFloat("LEARNED_CONFIDENCE", 0.25),
		LearnedNMSThreshold: getEnvFloat("LEARNED_NMS_THRESHOLD", 0.45),
		LearnedCUDA:         getEnvBool("LEARNED_CUDA", false),
		LearnedGRPCAddr:     getEnv("LEARNED_GRPC_ADDR", "localhost:50052"),
		LearnedGRPCMethod:   getEnv("LEARNED_GRPC_METHOD", "/dualvision.Detector/Detect"),

		// Cascade detector
		CascadeDir:   getEnv("CASCADE_DIR", "data/haarcascades"),
		CascadeNames: getEnvList("CASCADE_NAMES", []string{"face", "eye", "fullbody", "upperbody"}),

		// Detector guard
		DetectorTimeout: getEnvDuration("DETECTOR_TIMEOUT", 2*time.Second),
		DetectorRetries: getEnvInt("DETECTOR_RETRIES", 1),

		// Settings file
		SettingsPath: getEnv("SETTINGS_PATH", "camera_settings.json"),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 8000),

		// Stats overlay
		OverlayColor: getEnv("OVERLAY_COLOR", "#00FF00"),
		OverlayFont:  getEnvInt("OVERLAY_FONT", 0),

		// Graceful Shutdown
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		PanicRestartDelay: getEnvDuration("PANIC_RESTART_DELAY", 2*time.Second),
	}

	cfg.DetectionInterval = getEnvInt("DETECTION_INTERVAL", cfg.defaultDetectionInterval())

	return cfg
}

// IsResourceConstrained reports whether the host was declared low-powered
func (c *Config) IsResourceConstrained() bool {
	return c.ResourceProfile == "low" || c.ResourceProfile == "constrained"
}

func (c *Config) defaultDetectionInterval() int {
	if c.IsResourceConstrained() {
		return 3
	}
	return 1
}

// PipelineDefaults builds the pipeline configuration used before any settings are applied
func (c *Config) PipelineDefaults() models.PipelineConfig {
	p := models.DefaultPipelineConfig()
	p.DetectionIntervalFrames = c.DetectionInterval
	p.FreshnessWindow = c.FreshnessWindow
	p.LearnedEnabled = c.LearnedBackend != BackendNone
	return p.Normalize()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
