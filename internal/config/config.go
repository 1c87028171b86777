package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort         string // Application port
	DBDriver        string // Database driver: sqlite or mysql
	DBPath          string // SQLite database file path
	DBUser          string // Database user (mysql)
	DBPassword      string // Database password (mysql)
	DBHost          string // Database host (mysql)
	DBPort          string // Database port (mysql)
	DBName          string // Database name (mysql)
	RedisAddr       string // Redis server address
	RedisPass       string // Redis password
	RedisDB         int    // Redis database number
	Network         string // Ethereum network: mainnet or sepolia
	Mnemonic        string // BIP39 mnemonic the wallet keys derive from
	AlchemyAPIKey   string // Alchemy API key for the RPC provider
	RPCURL          string // Explicit RPC endpoint (overrides Alchemy)
	Detector        string // Deposit detector: logs or alchemy
	JWTSecret       string // JWT secret key (auth disabled when empty)
	APIKeyHash      string // Bcrypt hash of the API key used to issue tokens
	ReceiptInterval int    // Receipt poll interval in seconds
	IsProd          bool   // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	interval, _ := strconv.Atoi(getenvDefault("RECEIPT_INTERVAL", "10"))
	return &Config{
		AppPort:         getenvDefault("APP_PORT", "8000"),      // Application port
		DBDriver:        getenvDefault("DB_DRIVER", "sqlite"),   // Database driver
		DBPath:          getenvDefault("DB_PATH", "db.sqlite3"), // SQLite database file path
		DBUser:          os.Getenv("DB_USER"),                   // Database user
		DBPassword:      os.Getenv("DB_PASSWORD"),               // Database password
		DBHost:          os.Getenv("DB_HOST"),                   // Database host
		DBPort:          os.Getenv("DB_PORT"),                   // Database port
		DBName:          os.Getenv("DB_NAME"),                   // Database name
		RedisAddr:       os.Getenv("REDIS_ADDR"),                // Redis server address
		RedisPass:       os.Getenv("REDIS_PASS"),                // Redis password
		RedisDB:         redisDB,                                // Redis database number
		Network:         getenvDefault("NETWORK", "sepolia"),    // Ethereum network
		Mnemonic:        os.Getenv("MNEMONIC"),                  // BIP39 mnemonic
		AlchemyAPIKey:   os.Getenv("ALCHEMY_API_KEY"),           // Alchemy API key
		RPCURL:          os.Getenv("RPC_URL"),                   // Explicit RPC endpoint
		Detector:        getenvDefault("DETECTOR", "logs"),      // Deposit detector
		JWTSecret:       os.Getenv("JWT_SECRET"),                // JWT secret key
		APIKeyHash:      os.Getenv("API_KEY_HASH"),              // Bcrypt hash of the API key
		ReceiptInterval: interval,                               // Receipt poll interval
		IsProd:          os.Getenv("IS_PROD") == "true",         // Is production environment
	}
}

// getenvDefault returns the environment variable value or a fallback when unset
func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
