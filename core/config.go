package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		RollbarToken string
		WorkDir      string
		FormFile     string // form schema served by the API

		Server   ServerConfig
		Database DatabaseConfig
		API      APIConfig
		Storage  StorageConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DisableReqLogs  bool
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Driver     string // dummy | postgres
		Engine     string
		Host       string
		Port       string
		Name       string
		User       string
		Password   string
		DisableTLS bool
	}

	APIConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	StorageConfig struct {
		Driver        string // memory | sqlite | redis
		Path          string
		RedisAddr     string
		RedisPassword string
		RedisDB       int
	}
)

func (dc DatabaseConfig) Address() string {
	return dc.Host + ":" + dc.Port
}

func (conf *Config) IsProduction() bool {
	return conf.Env == "PROD"
}

// NewConfig reads the configuration from defaults, `config/.env.<env>` and the environment.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "Student Form Portal")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("formFile", filepath.Join("assets", "forms", "student-registration.yaml"))

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDisableReqLogs", false)
	v.SetDefault("serverShutdownTimeout", 5*time.Second)

	v.SetDefault("dbDriver", "dummy")
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "formportal")
	v.SetDefault("dbUser", "formportal")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbDisableTLS", true)

	v.SetDefault("apiBaseURL", "https://dynamic-form-generator-9rl7.onrender.com")
	v.SetDefault("apiTimeout", 15*time.Second)

	v.SetDefault("storageDriver", "sqlite")
	v.SetDefault("storagePath", "formportal.db")
	v.SetDefault("storageRedisAddr", "localhost:6379")
	v.SetDefault("storageRedisPassword", "")
	v.SetDefault("storageRedisDB", 0)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbarToken"),
		WorkDir:      wd,
		FormFile:     v.GetString("formFile"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Address:         v.GetString("serverAddress"),
			DisableReqLogs:  v.GetBool("serverDisableReqLogs"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
		},
		Database: DatabaseConfig{
			Driver:     v.GetString("dbDriver"),
			Engine:     v.GetString("dbEngine"),
			Host:       v.GetString("dbHost"),
			Port:       v.GetString("dbPort"),
			Name:       v.GetString("dbName"),
			User:       v.GetString("dbUser"),
			Password:   v.GetString("dbPassword"),
			DisableTLS: v.GetBool("dbDisableTLS"),
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("apiBaseURL"), "/"),
			Timeout: v.GetDuration("apiTimeout"),
		},
		Storage: StorageConfig{
			Driver:        v.GetString("storageDriver"),
			Path:          v.GetString("storagePath"),
			RedisAddr:     v.GetString("storageRedisAddr"),
			RedisPassword: v.GetString("storageRedisPassword"),
			RedisDB:       v.GetInt("storageRedisDB"),
		},
	}
}
