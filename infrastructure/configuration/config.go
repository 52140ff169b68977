package configuration

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"postbridge/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Backend     Backend     `json:"backend"`
	RedisClient RedisClient `json:"redisClient"`
	Session     Session     `json:"session"`
	OAuth       OAuth       `json:"oauth"`
	Logger      Logger      `json:"logger"`
}

type App struct {
	Port            int      `json:"port"`
	AllowedOrigins  []string `json:"allowedOrigins"`
	SuccessRedirect string   `json:"successRedirect"`
}

// Backend locates the REST API the dashboard talks to.
type Backend struct {
	Host           string `json:"host"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

func (b Backend) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

// Session controls where the session record blob lives when redis is not used.
type Session struct {
	StorePath string `json:"storePath"`
}

// OAuth lists the providers the linking flow accepts and how long a pending
// link attempt stays resumable.
type OAuth struct {
	Providers         []string `json:"providers"`
	AttemptTTLSeconds int      `json:"attemptTtlSeconds"`
}

func (o OAuth) AttemptTTL() time.Duration {
	if o.AttemptTTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(o.AttemptTTLSeconds) * time.Second
}

type Logger struct {
	Format string `json:"format"`
}

var C Config

func init() {
	LoadConfig()
	initApp(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initApp(C *Config) {
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}

	if v := os.Getenv("BACKEND_HOST"); v != "" {
		C.Backend.Host = v
	}
	if C.Backend.Host == "" {
		C.Backend.Host = "http://localhost:8080/api"
	}

	if v := os.Getenv("SESSION_STORE_PATH"); v != "" {
		C.Session.StorePath = v
	}
	if C.Session.StorePath == "" {
		C.Session.StorePath = "pb.auth.session.json"
	}

	if len(C.OAuth.Providers) == 0 {
		C.OAuth.Providers = []string{"tiktok", "meta", "youtube"}
	}
	if C.App.SuccessRedirect == "" {
		C.App.SuccessRedirect = "/publishing"
	}
	if len(C.App.AllowedOrigins) == 0 {
		C.App.AllowedOrigins = []string{"http://localhost:3000", "https://localhost:3000"}
	}
}
