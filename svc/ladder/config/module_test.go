package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRankedConfigDefaults(t *testing.T) {
	t.Setenv("RANKED_CONFIG", "{}")

	config, err := GetRankedConfig()
	require.NoError(t, err)
	assert.Equal(t, "ranked.db", config.Ladder.Database.Path)
	assert.False(t, config.Ladder.Redis.Enabled)
}

func TestGetRankedConfigOverrides(t *testing.T) {
	t.Setenv("RANKED_CONFIG", `{
		"Ladder": {
			"Database": {"Path": "/tmp/ladder.db"},
			"Redis": {"Enabled": true, "Address": "redis:6379", "DB": 2}
		}
	}`)

	config, err := GetRankedConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ladder.db", config.Ladder.Database.Path)
	assert.True(t, config.Ladder.Redis.Enabled)
	assert.Equal(t, "redis:6379", config.Ladder.Redis.Address)
	assert.Equal(t, 2, config.Ladder.Redis.DB)
}

func TestGetRankedConfigInvalid(t *testing.T) {
	t.Setenv("RANKED_CONFIG", "{not json")

	_, err := GetRankedConfig()
	assert.Error(t, err)
}
