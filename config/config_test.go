package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017/", cfg.MongoURI)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 100, cfg.RateLimitRequests)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitWindow)
	assert.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
}

func TestLoad_JWTSecretOnlyRequiredByServer(t *testing.T) {
	cfg, err := Load(context.Background(), envconfig.MapLookuper(map[string]string{
		"MONGO_URI": "mongodb://db:27017/",
	}))
	require.NoError(t, err, "the admin CLI loads config without a JWT secret")
	assert.Equal(t, "mongodb://db:27017/", cfg.MongoURI)
	assert.Error(t, cfg.ValidateServer())

	cfg.JWTSecret = "secret"
	assert.NoError(t, cfg.ValidateServer())
}

func TestMergeOrigins(t *testing.T) {
	tests := []struct {
		name      string
		origins   []string
		clientURL string
		want      []string
	}{
		{
			name:      "client url appended",
			origins:   []string{"http://localhost:5173"},
			clientURL: "https://maternitymatters.in",
			want:      []string{"http://localhost:5173", "https://maternitymatters.in"},
		},
		{
			name:      "dedupe and trim trailing slash",
			origins:   []string{" https://maternitymatters.in/ ", "", "http://localhost:5173"},
			clientURL: "https://maternitymatters.in",
			want:      []string{"https://maternitymatters.in", "http://localhost:5173"},
		},
		{
			name: "empty",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeOrigins(tt.origins, tt.clientURL))
		})
	}
}
