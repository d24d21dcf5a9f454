// Package config は環境変数からサービスの設定を読み込む。
//
// カレントディレクトリに.envがあれば先に読み込む。
// 既に設定されている環境変数は.envの値で上書きしない。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig は設定値が不正であることを表す。
var ErrInvalidConfig = errors.New("設定が不正です")

// Config はサービス全体の設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `env:"PORT" envDefault:"8086"`
	// JWTSecret はJWTトークンの署名検証に使う秘密鍵。
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-key"`
	// AppEnv は実行環境（development / production）。
	AppEnv string `env:"APP_ENV" envDefault:"development"`
	// LogLevel はログの出力レベル。
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// NotificationDBPath は通知DBのパス。
	NotificationDBPath string `env:"NOTIFICATION_DB_PATH" envDefault:"/data/notification.db"`
	// MarketDBPath はマーケットDBのパス。
	MarketDBPath string `env:"MARKET_DB_PATH" envDefault:"/data/market.db"`
	// MarketURL はマーケットの内部APIのベースURL。空の場合は同一プロセスのストアから所有者を解決する。
	MarketURL string `env:"MARKET_URL"`
	// AllowedOrigins はCORSとWebSocketで許可するOrigin。
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// FanOutConcurrency は価格変更通知の並列数。
	FanOutConcurrency int `env:"FANOUT_CONCURRENCY" envDefault:"8"`
	// OwnerCacheTTL は所有者の解決結果をキャッシュする期間。
	OwnerCacheTTL time.Duration `env:"OWNER_CACHE_TTL" envDefault:"5m"`

	// WS はWebSocket接続の設定。
	WS WSConfig `envPrefix:"WS_"`
}

// WSConfig はWebSocket接続の設定。
type WSConfig struct {
	WriteWait      time.Duration `env:"WRITE_WAIT" envDefault:"10s"`
	PongWait       time.Duration `env:"PONG_WAIT" envDefault:"60s"`
	PingPeriod     time.Duration `env:"PING_PERIOD" envDefault:"54s"`
	SendBuffer     int           `env:"SEND_BUFFER" envDefault:"16"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE" envDefault:"4096"`
}

// IsDevelopment は開発環境かどうかを返す。
func (c Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}

// Validate は設定値の整合性を検証する。
func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORTが空です"))
	}
	if c.FanOutConcurrency < 1 {
		errs = append(errs, fmt.Errorf("FANOUT_CONCURRENCYは1以上である必要があります: %d", c.FanOutConcurrency))
	}
	if c.OwnerCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("OWNER_CACHE_TTLは0以上である必要があります: %s", c.OwnerCacheTTL))
	}
	if c.WS.SendBuffer < 1 {
		errs = append(errs, fmt.Errorf("WS_SEND_BUFFERは1以上である必要があります: %d", c.WS.SendBuffer))
	}
	if c.WS.PingPeriod >= c.WS.PongWait {
		errs = append(errs, fmt.Errorf("WS_PING_PERIOD(%s)はWS_PONG_WAIT(%s)より短くする必要があります", c.WS.PingPeriod, c.WS.PongWait))
	}
	if !c.IsDevelopment() && c.JWTSecret == "dev-secret-key" {
		errs = append(errs, errors.New("本番環境では既定のJWT_SECRETは使用できません"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Load は.envファイルと環境変数から設定を読み込む。
// filesを省略した場合はカレントディレクトリの.envを読み込み、無ければ無視する。
func Load(files ...string) (Config, error) {
	if err := loadDotEnv(files); err != nil {
		return Config{}, err
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf(".envの読み込みに失敗: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf(".envの読み込みに失敗: %w", err)
	}
	return nil
}
