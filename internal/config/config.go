package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for the direct-native blob backend.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// LedgerConfig holds backend selection and tunables for the ledger client.
type LedgerConfig struct {
	// Mode selects the implementation: simulated, remote-proxy, or direct.
	Mode string
	// ProxyURL is the base URL of the remote anchor service (remote-proxy mode).
	ProxyURL string
	// ProxyAPIKey authenticates against the remote anchor service.
	ProxyAPIKey string
	// NodeURL is the JSON-RPC endpoint of the ledger node (direct mode).
	NodeURL string
	// SigningKeyHex is the hex-encoded ed25519 seed used to sign transactions.
	SigningKeyHex string
	// Confirmations is how many confirmations a direct write waits for.
	// Zero disables waiting; settlement is then resolved by reconciliation.
	Confirmations int
	// RetryAttempts caps retries for a single external operation.
	RetryAttempts int
	// RetryBaseMS is the initial backoff delay in milliseconds; it doubles
	// per attempt.
	RetryBaseMS int
	// SimLatencyMinMS/SimLatencyMaxMS bound the artificial latency of the
	// simulated backend. Both zero disables latency entirely.
	SimLatencyMinMS int
	SimLatencyMaxMS int
}

// BlobConfig holds backend selection for the blob store client.
type BlobConfig struct {
	// Mode selects the implementation: simulated, remote-proxy, or direct.
	Mode string
	// ProxyURL is the base URL of the remote blob gateway (remote-proxy mode).
	ProxyURL string
	// ProxyAPIKey authenticates against the remote blob gateway.
	ProxyAPIKey string
	// SimLatencyPerMBMS scales the simulated backend's artificial latency
	// with payload size; zero disables it. SimLatencyMaxMS caps the delay.
	SimLatencyPerMBMS int
	SimLatencyMaxMS   int
}

// AnchorConfig holds service-level tunables.
type AnchorConfig struct {
	// MaxBatchSize caps batch verify/reject requests.
	MaxBatchSize int
	// CheckConcurrency bounds the fan-out of batch reconciliation.
	CheckConcurrency int
	// Production disables administrative operations such as clearing
	// simulated backend state.
	Production bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Ledger   LedgerConfig
	Blob     BlobConfig
	Anchor   AnchorConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Ledger: LedgerConfig{
			Mode:            getEnv("LEDGER_MODE", "simulated"),
			ProxyURL:        getEnv("LEDGER_PROXY_URL", ""),
			ProxyAPIKey:     getEnv("LEDGER_PROXY_API_KEY", ""),
			NodeURL:         getEnv("LEDGER_NODE_URL", ""),
			SigningKeyHex:   getEnv("LEDGER_SIGNING_KEY", ""),
			Confirmations:   getEnvInt("LEDGER_CONFIRMATIONS", 2),
			RetryAttempts:   getEnvInt("LEDGER_RETRY_ATTEMPTS", 4),
			RetryBaseMS:     getEnvInt("LEDGER_RETRY_BASE_MS", 200),
			SimLatencyMinMS: getEnvInt("LEDGER_SIM_LATENCY_MIN_MS", 10),
			SimLatencyMaxMS: getEnvInt("LEDGER_SIM_LATENCY_MAX_MS", 50),
		},
		Blob: BlobConfig{
			Mode:              getEnv("BLOB_MODE", "simulated"),
			ProxyURL:          getEnv("BLOB_PROXY_URL", ""),
			ProxyAPIKey:       getEnv("BLOB_PROXY_API_KEY", ""),
			SimLatencyPerMBMS: getEnvInt("BLOB_SIM_LATENCY_PER_MB_MS", 2),
			SimLatencyMaxMS:   getEnvInt("BLOB_SIM_LATENCY_MAX_MS", 100),
		},
		Anchor: AnchorConfig{
			MaxBatchSize:     getEnvInt("ANCHOR_MAX_BATCH_SIZE", 50),
			CheckConcurrency: getEnvInt("ANCHOR_CHECK_CONCURRENCY", 5),
			Production:       getEnvBool("APP_PRODUCTION", false),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
