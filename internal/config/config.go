package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion            string
	SQSDetectionQueueURL string

	JWTSecret          string
	JWTExpirationHours time.Duration

	// VisitVerifyRadiusMeters is the maximum GPS distance at which a visit
	// counts as verified for the coin reward.
	VisitVerifyRadiusMeters float64
	// NearbyDefaultRadiusMeters is used when a nearby query omits a radius.
	NearbyDefaultRadiusMeters float64
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "168"))
	visitRadius, _ := strconv.ParseFloat(getEnv("VISIT_VERIFY_RADIUS_METERS", "100"), 64)
	nearbyRadius, _ := strconv.ParseFloat(getEnv("NEARBY_DEFAULT_RADIUS_METERS", "10000"), 64)

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parksmart"),
		DBPassword: getEnv("DB_PASSWORD", "parksmart"),
		DBName:     getEnv("DB_NAME", "parksmart_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion:            getEnv("AWS_REGION", "ap-south-1"),
		SQSDetectionQueueURL: getEnv("SQS_DETECTION_QUEUE_URL", ""),

		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		VisitVerifyRadiusMeters:   visitRadius,
		NearbyDefaultRadiusMeters: nearbyRadius,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
