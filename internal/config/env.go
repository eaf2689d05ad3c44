package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvConfigPath = "MMBOT_CONFIG"
	EnvAPIKey     = "BINANCE_API_KEY"
	EnvAPISecret  = "BINANCE_SECRET_KEY"
	EnvTGToken    = "TELEGRAM_BOT_TOKEN"
)

// LoadDotEnv 读取 .env 文件到进程环境；已存在的环境变量不会被覆盖。
// 文件缺失时返回 false，调用方按需记录。
func LoadDotEnv(files ...string) bool {
	return godotenv.Load(files...) == nil
}

// ConfigPath 返回配置文件路径：显式参数 > MMBOT_CONFIG > 默认值。
func ConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if p, ok := lookupEnv(EnvConfigPath); ok {
		return p
	}
	return "configs/config.yaml"
}

func lookupEnv(key string) (string, bool) {
	val, ok := os.LookupEnv(key)
	val = strings.TrimSpace(val)
	return val, ok && val != ""
}

// overlaySecrets 仅在配置文件未填写时，用环境变量补齐密钥。
func (e *ExchangeConfig) overlaySecrets(lookup func(string) (string, bool)) {
	if e == nil || lookup == nil {
		return
	}
	if strings.TrimSpace(e.APIKey) == "" {
		if v, ok := lookup(EnvAPIKey); ok {
			e.APIKey = v
		}
	}
	if strings.TrimSpace(e.APISecret) == "" {
		if v, ok := lookup(EnvAPISecret); ok {
			e.APISecret = v
		}
	}
}

func (t *TelegramConfig) overlaySecrets(lookup func(string) (string, bool)) {
	if t == nil || lookup == nil || strings.TrimSpace(t.BotToken) != "" {
		return
	}
	if v, ok := lookup(EnvTGToken); ok {
		t.BotToken = v
	}
}
