// Package common provides configuration management and the HTTP side channel
// of the in-vehicle digital twin service. It supports YAML configuration
// files, environment variable overrides, CORS setup and health endpoints.
package common

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
)

// PrintSplash displays the service logo on the console during startup.
func PrintSplash() {
	log.Printf(`
	██╗██████╗ ███████╗     ██╗██╗     ██████╗  ██████╗
	██║██╔══██╗██╔════╝     ██║██║    ██╔════╝ ██╔═══██╗
	██║██████╔╝█████╗       ██║██║    ██║  ███╗██║   ██║
	██║██╔══██╗██╔══╝  ██   ██║██║    ██║   ██║██║   ██║
	██║██████╔╝███████╗╚█████╔╝██║    ╚██████╔╝╚██████╔╝
	╚═╝╚═════╝ ╚══════╝ ╚════╝ ╚═╝     ╚═════╝  ╚═════╝
	`)
}

// Config is the complete configuration of the in-vehicle digital twin
// service: the gRPC and HTTP listeners, the DTDL model sources, the broker
// behind managed subscriptions and the CORS policy of the HTTP side channel.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Models     ModelsConfig    `yaml:"models"`
	Broker     BrokerConfig    `yaml:"broker"`
	Extension  ExtensionConfig `yaml:"extension"`
	CorsConfig CorsConfig      `yaml:"cors"`
}

// ServerConfig contains the listener parameters. GrpcPort serves the twin
// and extension services, HTTPPort the health and model inspection
// endpoints.
type ServerConfig struct {
	GrpcPort    int    `yaml:"grpcPort"`
	HTTPPort    int    `yaml:"httpPort" mapstructure:"httpPort"`
	ContextPath string `yaml:"contextPath"`
}

// ModelsConfig locates DTDL context definitions and models on disk.
// SearchPath holds semicolon-separated directories; when empty, the
// DTDL_PATH environment variable applies.
type ModelsConfig struct {
	SearchPath  string   `yaml:"searchPath"`
	ContextFile string   `yaml:"contextFile"`
	Preload     []string `yaml:"preload"`
}

// BrokerConfig contains the NATS connection parameters. URL is what this
// service dials; ExternalURI is what consumers are told to connect to,
// which differs when the broker sits behind a gateway.
type BrokerConfig struct {
	URL         string `yaml:"url"`
	ExternalURI string `yaml:"externalUri" mapstructure:"externalUri"`
}

// ExtensionConfig contains the managed subscribe extension parameters.
// URI is the address registrations are rewritten to.
type ExtensionConfig struct {
	Enabled bool   `yaml:"enabled"`
	URI     string `yaml:"uri"`
}

// CorsConfig contains the Cross-Origin Resource Sharing policy of the HTTP
// side channel.
type CorsConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowedMethods   []string `yaml:"allowedMethods"`
	AllowedHeaders   []string `yaml:"allowedHeaders"`
	AllowCredentials bool     `yaml:"allowCredentials"`
}

// LoadConfig loads the configuration from a YAML file and environment
// variables. Environment variables win over the file, the file wins over
// defaults; variables use underscore notation (SERVER_GRPCPORT for
// server.grpcPort). An empty configPath skips the file.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		log.Printf("📁 Loading config from file: %s", configPath)
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Println("📁 No config file provided — loading from environment variables only")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	log.Println("✅ Configuration loaded successfully")
	PrintConfiguration(cfg)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.grpcPort", 5010)
	v.SetDefault("server.httpPort", 5011)
	v.SetDefault("server.contextPath", "")

	// Model source defaults
	v.SetDefault("models.searchPath", "")
	v.SetDefault("models.contextFile", "context/DTDL.v2.context.json")
	v.SetDefault("models.preload", []string{})

	// Broker defaults
	v.SetDefault("broker.url", "nats://localhost:4222")
	v.SetDefault("broker.externalUri", "nats://localhost:4222")

	// Extension defaults
	v.SetDefault("extension.enabled", true)
	v.SetDefault("extension.uri", "http://localhost:5010")

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{"*"})
	v.SetDefault("cors.allowedMethods", []string{"GET", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"*"})
	v.SetDefault("cors.allowCredentials", true)
}

// PrintConfiguration prints the current configuration to the console with
// broker credentials redacted. NATS URLs may embed user:pass, so the URL is
// masked whenever it carries an authority with credentials.
func PrintConfiguration(cfg *Config) {
	cfgCopy := *cfg
	cfgCopy.Broker.URL = redactURL(cfg.Broker.URL)

	configJSON, err := json.MarshalIndent(cfgCopy, "", "  ")
	if err != nil {
		log.Printf("Unable to marshal configuration to JSON: %v", err)
		return
	}

	log.Printf("📜 Loaded configuration:\n%s", string(configJSON))
}

func redactURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	scheme := ""
	if idx := strings.Index(url, "://"); idx >= 0 {
		scheme = url[:idx+3]
	}
	return scheme + "****" + url[at:]
}

// AddCors configures Cross-Origin Resource Sharing middleware for the
// router according to the loaded policy.
func AddCors(r *chi.Mux, config *Config) {
	c := cors.New(cors.Options{
		AllowedOrigins:   config.CorsConfig.AllowedOrigins,
		AllowedMethods:   config.CorsConfig.AllowedMethods,
		AllowedHeaders:   config.CorsConfig.AllowedHeaders,
		AllowCredentials: config.CorsConfig.AllowCredentials,
	})
	r.Use(c.Handler)
}
