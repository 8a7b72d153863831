package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr    string
		BaseURL string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret    string
		TokenTTL     time.Duration
		RememberTTL  time.Duration
		ResetTTL     time.Duration
		CookieSecure bool
	}
	Redis struct {
		URL string
	}
	RateLimit struct {
		Limit  int
		Window time.Duration
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
		PublicURL string
		URLExpiry time.Duration
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("TWEETER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	return decode(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.baseurl", "http://localhost:8080")
	v.SetDefault("database.path", "data/tweeter.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", "24h")
	v.SetDefault("auth.rememberttl", "336h")
	v.SetDefault("auth.resetttl", "6h")
	v.SetDefault("auth.cookiesecure", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("ratelimit.limit", 10)
	v.SetDefault("ratelimit.window", "1m")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "tweeter")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicurl", "")
	v.SetDefault("storage.urlexpiry", "15m")
	v.SetDefault("aws.profile", "")
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return Config{}, fmt.Errorf("auth jwt secret is required (TWEETER_AUTH_JWTSECRET)")
	}
	if cfg.Storage.Bucket == "" {
		return Config{}, fmt.Errorf("storage bucket is required (TWEETER_STORAGE_BUCKET)")
	}
	return cfg, nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
