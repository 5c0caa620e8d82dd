package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string

		Server     ServerConfig
		Database   DatabaseConfig
		Storage    StorageConfig
		Scoring    ScoringConfig
		Allocation AllocationConfig
		Signup     SignupConfig
	}

	ServerConfig struct {
		Address            string
		Host               string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		CORSOrigins        []string
	}

	DatabaseConfig struct {
		Engine        string // mongodb | postgres | memory
		URI           string // mongodb only
		Name          string
		User          string
		Password      string
		Host          string
		Port          string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Timeout       time.Duration
	}

	StorageConfig struct {
		DocumentsDir string
		UploadsDir   string
	}

	ScoringConfig struct {
		MeritThreshold       int
		ExcellentThreshold   int
		OutstandingThreshold int
	}

	AllocationConfig struct {
		Sections        []string
		UnassignedLabel string
	}

	SignupConfig struct {
		RegistrationPattern string
		MinPasswordLength   int
	}
)

// Address returns the database host:port pair.
func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Database engines
const (
	EngineMongo    = "mongodb"
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// NewConfig loads the configuration for the current environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Project Portal")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "z8f!k2-q@w0r^x3m9b7&v6p(l1s)t4+h5")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":5001")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 1*time.Hour)
	v.SetDefault("server.corsOrigins", []string{"http://localhost:5173"})

	v.SetDefault("database.engine", EngineMongo)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "portal")
	v.SetDefault("database.user", "portal")
	v.SetDefault("database.password", "portal")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.timeout", 10*time.Second)

	v.SetDefault("storage.documentsDir", filepath.Join("documents", "domain_faculty"))
	v.SetDefault("storage.uploadsDir", filepath.Join("documents", "uploads"))

	v.SetDefault("scoring.tiers.merit", 300)
	v.SetDefault("scoring.tiers.excellent", 320)
	v.SetDefault("scoring.tiers.outstanding", 340)

	v.SetDefault("allocation.sections", []string{"A", "B", "C", "D"})
	v.SetDefault("allocation.unassignedLabel", "Unassigned")

	v.SetDefault("signup.registrationPattern", `^[A-Z0-9]+$`)
	v.SetDefault("signup.minPasswordLength", 6)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:            v.GetString("server.address"),
			Host:               v.GetString("server.host"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			CORSOrigins:        v.GetStringSlice("server.corsOrigins"),
		},
		Database: DatabaseConfig{
			Engine:        strings.ToLower(v.GetString("database.engine")),
			URI:           v.GetString("database.uri"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Timeout:       v.GetDuration("database.timeout"),
		},
		Storage: StorageConfig{
			DocumentsDir: v.GetString("storage.documentsDir"),
			UploadsDir:   v.GetString("storage.uploadsDir"),
		},
		Scoring: ScoringConfig{
			MeritThreshold:       v.GetInt("scoring.tiers.merit"),
			ExcellentThreshold:   v.GetInt("scoring.tiers.excellent"),
			OutstandingThreshold: v.GetInt("scoring.tiers.outstanding"),
		},
		Allocation: AllocationConfig{
			Sections:        v.GetStringSlice("allocation.sections"),
			UnassignedLabel: v.GetString("allocation.unassignedLabel"),
		},
		Signup: SignupConfig{
			RegistrationPattern: v.GetString("signup.registrationPattern"),
			MinPasswordLength:   v.GetInt("signup.minPasswordLength"),
		},
	}
}
