package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	SNSRegion      string
	SNSTopicARN    string // empty disables the SNS status fan-out

	// StatusStore selects the status board backend: "memory" or "dynamo".
	StatusStore string
	AttemptTTL  time.Duration

	// ContentStore selects the payload publisher: "ipfs" or "s3".
	ContentStore string
	IPFSAPIURL   string
	IPFSTimeout  time.Duration

	Chain Chain

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	AllowedOrigins    []string // CORS allowed origins
	SendRatePerSecond int
	SendRateBurst     int
	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-Ip. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Attempts string
}

// Chain holds the network and contract settings of the delivery pipeline.
type Chain struct {
	EthRPCURL           string
	PolygonRPCURL       string
	ActiveChainID       int64
	CommunicatorChainID int64 // the designated communicator network
	PolygonChainID      int64
	CoreAddress         string
	EthCommAddress      string
	PolygonCommAddress  string
	ChannelPrivateKey   string // hex, signs sendNotification
	// LogScanFromBlock bounds the PublicKeyRegistered log scan.
	LogScanFromBlock int64
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Attempts: getEnv("DYNAMO_TABLE_ATTEMPTS", "delivery_attempts"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "notification-payloads"),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:  getEnv("SNS_TOPIC_ARN", ""),
		StatusStore:  strings.ToLower(getEnv("STATUS_STORE", "memory")),
		AttemptTTL:   time.Duration(getEnvInt("ATTEMPT_TTL_HOURS", 72)) * time.Hour,
		ContentStore: strings.ToLower(getEnv("CONTENT_STORE", "ipfs")),
		IPFSAPIURL:   getEnv("IPFS_API_URL", "https://ipfs.infura.io:5001"),
		IPFSTimeout:  time.Duration(getEnvInt("IPFS_TIMEOUT_SECONDS", 60)) * time.Second,
		Chain: Chain{
			EthRPCURL:           getEnv("ETH_RPC_URL", "http://localhost:8545"),
			PolygonRPCURL:       getEnv("POLYGON_RPC_URL", ""),
			ActiveChainID:       getEnvInt64("ACTIVE_CHAIN_ID", 42),
			CommunicatorChainID: getEnvInt64("COMMUNICATOR_CHAIN_ID", 42),
			PolygonChainID:      getEnvInt64("POLYGON_CHAIN_ID", 80001),
			CoreAddress:         getEnv("CORE_ADDRESS", ""),
			EthCommAddress:      getEnv("ETH_COMM_ADDRESS", ""),
			PolygonCommAddress:  getEnv("POLYGON_COMM_ADDRESS", ""),
			ChannelPrivateKey:   getEnv("CHANNEL_PRIVATE_KEY", ""),
			LogScanFromBlock:    getEnvInt64("LOG_SCAN_FROM_BLOCK", 0),
		},
		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		SendRatePerSecond: getEnvInt("SEND_RATE_PER_SECOND", 1),
		SendRateBurst:     getEnvInt("SEND_RATE_BURST", 3),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
