// Package helpers provides small utility functions shared by the chronorag packages.
package helpers

import (
	"os"
	"strconv"
	"time"
)

// GetStringFromEnv returns the environment variable value or default if not set or empty.
//
// Input: environment variable key and default value
// Output: string value from environment or default
// Behavior: Returns default if env var is empty or not set
//
// Example:
//
//	host := helpers.GetStringFromEnv("OLLAMA_BASE_URL", "http://localhost:11434")
//	level := helpers.GetStringFromEnv("LOG_LEVEL", "info")
func GetStringFromEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntFromEnv returns the environment variable value as int or default if not set or invalid.
//
// Input: environment variable key and default int value
// Output: int value from environment or default
// Behavior: Returns default if env var is empty, not set, or not a valid integer
//
// Example:
//
//	topK := helpers.GetIntFromEnv("TOP_K", 4)
func GetIntFromEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetFloatFromEnv returns the environment variable value as float64 or default if not set or invalid.
//
// Input: environment variable key and default float value
// Output: float64 value from environment or default
// Behavior: Returns default if env var is empty, not set, or not a valid float
//
// Example:
//
//	lambda := helpers.GetFloatFromEnv("MMR_LAMBDA", 0.5)
func GetFloatFromEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetBoolFromEnv returns the environment variable value as bool or default if not set or invalid.
//
// Input: environment variable key and default bool value
// Output: bool value from environment or default
// Behavior: Returns default if env var is empty, not set, or not a valid boolean
//
// Example:
//
//	reset := helpers.GetBoolFromEnv("RESET_COLLECTION", false)
func GetBoolFromEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetDurationFromEnv returns the environment variable value as duration or default if not set or invalid.
//
// Input: environment variable key and default duration value
// Output: time.Duration value from environment or default
// Behavior: Returns default if env var is empty, not set, or not a valid duration string
//
// Example:
//
//	timeout := helpers.GetDurationFromEnv("REQUEST_TIMEOUT", 2*time.Minute)
func GetDurationFromEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
