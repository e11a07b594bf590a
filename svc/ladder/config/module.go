package config

import (
	"encoding/json"
	"os"
)

type DatabaseSettings struct {
	Path string
}

type RedisSettings struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type LadderSettings struct {
	Database DatabaseSettings
	Redis    RedisSettings
}

type Config struct {
	Ladder LadderSettings
}

func Default() *Config {
	return &Config{
		Ladder: LadderSettings{
			Database: DatabaseSettings{
				Path: "ranked.db",
			},
			Redis: RedisSettings{
				Address: "localhost:6379",
			},
		},
	}
}

// GetRankedConfig reads configuration from the RANKED_CONFIG environment
// variable as JSON. When the variable is not set, defaults apply.
func GetRankedConfig() (*Config, error) {
	configJson, ok := os.LookupEnv("RANKED_CONFIG")
	if !ok {
		return Default(), nil
	}

	config := Default()
	err := json.Unmarshal([]byte(configJson), config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
