package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 環境変数を変更するためt.Parallelは使わない。

// unsetenv はテスト終了時に元に戻る形で環境変数を未設定にする。
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	t.Run("既定値で読み込めること", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("FANOUT_CONCURRENCY", "")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8086", cfg.Port)
		assert.Equal(t, 8, cfg.FanOutConcurrency)
		assert.Equal(t, 5*time.Minute, cfg.OwnerCacheTTL)
		assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
		assert.Equal(t, 54*time.Second, cfg.WS.PingPeriod)
		assert.Equal(t, 16, cfg.WS.SendBuffer)
		assert.True(t, cfg.IsDevelopment())
	})

	t.Run("環境変数の値が反映されること", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		t.Setenv("OWNER_CACHE_TTL", "30s")
		t.Setenv("WS_PONG_WAIT", "2m")
		t.Setenv("MARKET_URL", "http://market:8080")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 30*time.Second, cfg.OwnerCacheTTL)
		assert.Equal(t, 2*time.Minute, cfg.WS.PongWait)
		assert.Equal(t, "http://market:8080", cfg.MarketURL)
	})

	t.Run("指定した.envファイルを読み込めること", func(t *testing.T) {
		// godotenvは設定済みの環境変数を上書きしないため、未設定にしてから読み込む
		unsetenv(t, "PORT", "FANOUT_CONCURRENCY", "ALLOWED_ORIGINS", "WS_SEND_BUFFER")

		cfg, err := Load("testdata/.env.test")
		require.NoError(t, err)

		assert.Equal(t, "9999", cfg.Port)
		assert.Equal(t, 3, cfg.FanOutConcurrency)
		assert.Equal(t, []string{"http://a.example.com", "http://b.example.com"}, cfg.AllowedOrigins)
		assert.Equal(t, 4, cfg.WS.SendBuffer)
	})

	t.Run("存在しない.envファイルを指定した場合はエラーになること", func(t *testing.T) {
		_, err := Load("testdata/missing.env")
		assert.Error(t, err)
	})

	t.Run("不正な値はErrInvalidConfigを返すこと", func(t *testing.T) {
		t.Setenv("FANOUT_CONCURRENCY", "0")

		_, err := Load()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("数値として解析できない値はエラーになること", func(t *testing.T) {
		t.Setenv("FANOUT_CONCURRENCY", "many")

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:              "8086",
			JWTSecret:         "dev-secret-key",
			AppEnv:            "development",
			FanOutConcurrency: 1,
			WS:                WSConfig{PongWait: time.Minute, PingPeriod: 30 * time.Second, SendBuffer: 1},
		}
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "正常な設定", modify: func(*Config) {}},
		{name: "PingPeriodがPongWait以上", modify: func(c *Config) { c.WS.PingPeriod = time.Minute }, wantErr: true},
		{name: "送信キューが0", modify: func(c *Config) { c.WS.SendBuffer = 0 }, wantErr: true},
		{name: "負のキャッシュTTL", modify: func(c *Config) { c.OwnerCacheTTL = -time.Second }, wantErr: true},
		{name: "本番環境で既定の秘密鍵", modify: func(c *Config) { c.AppEnv = "production" }, wantErr: true},
		{name: "本番環境で独自の秘密鍵", modify: func(c *Config) {
			c.AppEnv = "production"
			c.JWTSecret = "s3cr3t"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
