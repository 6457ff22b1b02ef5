package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Cache struct {
		Backend   string        `mapstructure:"backend"`
		RedisAddr string        `mapstructure:"redisAddr"`
		RedisDB   int           `mapstructure:"redisDB"`
		TTL       time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	Geodata struct {
		NominatimURL string        `mapstructure:"nominatimURL"`
		OverpassURL  string        `mapstructure:"overpassURL"`
		WikidataURL  string        `mapstructure:"wikidataURL"`
		UserAgent    string        `mapstructure:"userAgent"`
		RequestDelay time.Duration `mapstructure:"requestDelay"`
		Timeout      time.Duration `mapstructure:"timeout"`
		MaxRetries   int           `mapstructure:"maxRetries"`
	} `mapstructure:"geodata"`
	Features struct {
		DEMEndpoint       string        `mapstructure:"demEndpoint"`
		NDWIEndpoint      string        `mapstructure:"ndwiEndpoint"`
		NDVIEndpoint      string        `mapstructure:"ndviEndpoint"`
		LandcoverEndpoint string        `mapstructure:"landcoverEndpoint"`
		ProbeTimeout      time.Duration `mapstructure:"probeTimeout"`
	} `mapstructure:"features"`
	Similarity struct {
		Alpha    float64 `mapstructure:"alpha"`
		RadiusKM float64 `mapstructure:"radiusKM"`
		TopK     int     `mapstructure:"topK"`
	} `mapstructure:"similarity"`
	Resolver struct {
		Concurrency int           `mapstructure:"concurrency"`
		CacheTTL    time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"resolver"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	// Unmarshal the config into the Config struct
	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}
