// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all simulation and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// WORLD CONFIGURATION
// =============================================================================

// WorldConfig holds the dimensions of the simulated arena.
type WorldConfig struct {
	Width  float64 // World width in pixels
	Height float64 // World height in pixels
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		Width:  4000,
		Height: 3000,
	}
}

// WorldFromEnv returns world configuration with environment variable overrides.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if w := getEnvFloat("WORLD_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvFloat("WORLD_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}

	return cfg
}

// =============================================================================
// FLEET & PHYSICS CONFIGURATION
// =============================================================================

// FleetConfig controls minion sizing, fleet caps, and flocking physics tuning.
type FleetConfig struct {
	MinionSize   float64 // Diameter of a minion disk
	InitialFleet int     // Minions spawned for a new/respawned player
	SpawnRadius  float64 // Radius of the spawn circle around a fleet center
	MaxFleetSize int     // Hard cap on minions owned by a single player
	BaseMaxSpeed float64 // Pixels per second at multiplier 1.0
	TickRate     int     // Simulation ticks per second

	MaxDeltaSeconds           float64 // Clamp applied to wall-clock delta per tick
	InfectionGraceSeconds     float64 // Post-infection invulnerability window
	AttackerQuiescenceSeconds float64 // Post-infection attacker cooldown
	CollisionCooldownSeconds  float64 // Suppression window between repeat collisions of the same pair
	RespawnInvulnSeconds      float64 // Reserved: player-level invulnerability granted on respawn
}

// DefaultFleet returns the default fleet/physics configuration.
func DefaultFleet() FleetConfig {
	return FleetConfig{
		MinionSize:                45,
		InitialFleet:              5,
		SpawnRadius:               50,
		MaxFleetSize:              50,
		BaseMaxSpeed:              270,
		TickRate:                  60,
		MaxDeltaSeconds:           0.1,
		InfectionGraceSeconds:     2.0,
		AttackerQuiescenceSeconds: 1.5,
		CollisionCooldownSeconds:  1.0,
		RespawnInvulnSeconds:      3.0,
	}
}

// FleetFromEnv returns fleet configuration with environment variable overrides.
func FleetFromEnv() FleetConfig {
	cfg := DefaultFleet()

	if v := getEnvFloat("MINION_SIZE", 0); v > 0 {
		cfg.MinionSize = v
	}
	if v := getEnvInt("INITIAL_FLEET", 0); v > 0 {
		cfg.InitialFleet = v
	}
	if v := getEnvInt("MAX_FLEET_SIZE", 0); v > 0 {
		cfg.MaxFleetSize = v
	}
	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}

	return cfg
}

// =============================================================================
// ORACLE CONFIGURATION
// =============================================================================

// OracleConfig controls the external AI adjudication endpoint and its cache.
type OracleConfig struct {
	Endpoint           string // Text-generation endpoint for collision adjudication
	ModerationEndpoint string // Text-generation endpoint for name moderation
	APIKey             string // Credential; empty disables the oracle (random fallback + moderation bypass)
	CachePath          string // JSON file backing the persistent answer cache
	RequestTimeout     int    // Oracle HTTP call timeout, in seconds
	MaxInFlight        int    // Backpressure bound on concurrent adjudications (§5)
}

// DefaultOracle returns the default oracle configuration.
func DefaultOracle() OracleConfig {
	return OracleConfig{
		Endpoint:           "",
		ModerationEndpoint: "",
		APIKey:             "",
		CachePath:          "oracle-cache.json",
		RequestTimeout:     10,
		MaxInFlight:        64,
	}
}

// OracleFromEnv returns oracle configuration with environment variable overrides.
func OracleFromEnv() OracleConfig {
	cfg := DefaultOracle()

	if v := os.Getenv("ORACLE_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("MODERATION_ENDPOINT"); v != "" {
		cfg.ModerationEndpoint = v
	}
	if v := os.Getenv("ORACLE_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("ORACLE_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := getEnvInt("ORACLE_TIMEOUT_SECONDS", 0); v > 0 {
		cfg.RequestTimeout = v
	}
	if v := getEnvInt("ORACLE_MAX_IN_FLIGHT", 0); v > 0 {
		cfg.MaxInFlight = v
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int
	StaticDir string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      5000,
		StaticDir: "./static",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if v := os.Getenv("STATIC_DIR"); v != "" {
		cfg.StaticDir = v
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World  WorldConfig
	Fleet  FleetConfig
	Oracle OracleConfig
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		World:  WorldFromEnv(),
		Fleet:  FleetFromEnv(),
		Oracle: OracleFromEnv(),
		Server: ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
