package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ConfigLoader 配置加载器
type ConfigLoader struct {
	configPath string
	envPrefix  string
	viper      *viper.Viper
}

// NewConfigLoader 创建配置加载器
// configPath 可以是目录，也可以是具体的 yaml 文件
func NewConfigLoader(configPath, envPrefix string) *ConfigLoader {
	if envPrefix == "" {
		envPrefix = "NEOPORT"
	}

	return &ConfigLoader{
		configPath: configPath,
		envPrefix:  envPrefix,
		viper:      viper.New(),
	}
}

// LoadConfig 加载配置
// 优先级: 环境变量 > 配置文件 > 默认值
func (cl *ConfigLoader) LoadConfig() (*Config, error) {
	// .env 文件不存在不算错误
	env := NewEnvLoader()
	if err := env.Load(); err != nil {
		return nil, err
	}

	cl.viper.SetConfigType("yaml")

	cl.viper.SetEnvPrefix(cl.envPrefix)
	cl.viper.AutomaticEnv()
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cl.bindEnvVars()
	cl.setDefaults()

	if err := cl.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	var config Config
	if err := cl.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cl.applyEnvAliases(env, &config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// loadConfigFile 加载配置文件
func (cl *ConfigLoader) loadConfigFile() error {
	if cl.configPath == "" {
		if envPath := os.Getenv(cl.envPrefix + "_CONFIG_PATH"); envPath != "" {
			cl.configPath = envPath
		} else {
			cl.configPath = "./configs"
		}
	}

	// 指定了具体文件
	if info, err := os.Stat(cl.configPath); err == nil && !info.IsDir() {
		cl.viper.SetConfigFile(cl.configPath)
		return cl.viper.ReadInConfig()
	}

	cl.viper.AddConfigPath(cl.configPath)
	cl.viper.AddConfigPath("./configs")
	cl.viper.AddConfigPath(".")

	// 先找环境特定的配置文件，找不到再回退到 config.yaml
	cl.viper.SetConfigName(fmt.Sprintf("config.%s", cl.getEnvironment()))
	if err := cl.viper.ReadInConfig(); err != nil {
		cl.viper.SetConfigName("config")
		if err := cl.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("config file not found: %w", err)
		}
	}

	return nil
}

// getEnvironment 获取运行环境
func (cl *ConfigLoader) getEnvironment() string {
	env := os.Getenv(cl.envPrefix + "_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development"
	}
	return env
}

// bindEnvVars 绑定环境变量
func (cl *ConfigLoader) bindEnvVars() {
	p := cl.envPrefix

	cl.viper.BindEnv("app.environment", p+"_APP_ENVIRONMENT")
	cl.viper.BindEnv("app.debug", p+"_APP_DEBUG")

	cl.viper.BindEnv("server.host", p+"_SERVER_HOST")
	cl.viper.BindEnv("server.port", p+"_SERVER_PORT")
	cl.viper.BindEnv("server.mode", p+"_SERVER_MODE")

	cl.viper.BindEnv("log.level", p+"_LOG_LEVEL")
	cl.viper.BindEnv("log.format", p+"_LOG_FORMAT")
	cl.viper.BindEnv("log.output", p+"_LOG_OUTPUT")
	cl.viper.BindEnv("log.file_path", p+"_LOG_FILE_PATH")

	cl.viper.BindEnv("scan.max_inflight", p+"_SCAN_MAX_INFLIGHT")
	cl.viper.BindEnv("scan.adaptive", p+"_SCAN_ADAPTIVE")
	cl.viper.BindEnv("scan.proxy", p+"_SCAN_PROXY")

	cl.viper.BindEnv("history.backend", p+"_HISTORY_BACKEND")
	cl.viper.BindEnv("history.mongo.uri", p+"_MONGO_URI")
	cl.viper.BindEnv("history.redis.addr", p+"_REDIS_ADDR")
	cl.viper.BindEnv("history.redis.password", p+"_REDIS_PASSWORD")
}

// applyEnvAliases 兼容部署平台的通用变量 PORT、MONGO_URI
// 只在对应的 NEOPORT_ 变量未设置时生效，优先级高于配置文件
func (cl *ConfigLoader) applyEnvAliases(env *EnvLoader, cfg *Config) {
	p := cl.envPrefix
	if cfg.Server != nil && env.GetString(p+"_SERVER_PORT", "") == "" {
		cfg.Server.Port = env.GetInt("PORT", cfg.Server.Port)
	}
	if cfg.History != nil && cfg.History.Mongo != nil && env.GetString(p+"_MONGO_URI", "") == "" {
		cfg.History.Mongo.URI = env.GetString("MONGO_URI", cfg.History.Mongo.URI)
	}
}

// setDefaults 设置默认值，与 DefaultConfig 保持一致
func (cl *ConfigLoader) setDefaults() {
	d := DefaultConfig()

	cl.viper.SetDefault("app.name", d.App.Name)
	cl.viper.SetDefault("app.version", d.App.Version)
	cl.viper.SetDefault("app.environment", d.App.Environment)
	cl.viper.SetDefault("app.debug", d.App.Debug)

	cl.viper.SetDefault("server.host", d.Server.Host)
	cl.viper.SetDefault("server.port", d.Server.Port)
	cl.viper.SetDefault("server.mode", d.Server.Mode)
	cl.viper.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	cl.viper.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	cl.viper.SetDefault("server.idle_timeout", d.Server.IdleTimeout)
	cl.viper.SetDefault("server.max_header_bytes", d.Server.MaxHeaderBytes)

	cl.viper.SetDefault("log.level", d.Log.Level)
	cl.viper.SetDefault("log.format", d.Log.Format)
	cl.viper.SetDefault("log.output", d.Log.Output)
	cl.viper.SetDefault("log.file_path", d.Log.FilePath)
	cl.viper.SetDefault("log.max_size", d.Log.MaxSize)
	cl.viper.SetDefault("log.max_backups", d.Log.MaxBackups)
	cl.viper.SetDefault("log.max_age", d.Log.MaxAge)
	cl.viper.SetDefault("log.compress", d.Log.Compress)
	cl.viper.SetDefault("log.caller", d.Log.Caller)

	cl.viper.SetDefault("scan.max_inflight", d.Scan.MaxInflight)
	cl.viper.SetDefault("scan.min_inflight", d.Scan.MinInflight)
	cl.viper.SetDefault("scan.adaptive", d.Scan.Adaptive)
	cl.viper.SetDefault("scan.proxy", d.Scan.Proxy)

	cl.viper.SetDefault("history.backend", d.History.Backend)
	cl.viper.SetDefault("history.limit", d.History.Limit)
	cl.viper.SetDefault("history.mongo.uri", d.History.Mongo.URI)
	cl.viper.SetDefault("history.mongo.database", d.History.Mongo.Database)
	cl.viper.SetDefault("history.mongo.collection", d.History.Mongo.Collection)
	cl.viper.SetDefault("history.mongo.timeout", d.History.Mongo.Timeout)
	cl.viper.SetDefault("history.redis.addr", d.History.Redis.Addr)
	cl.viper.SetDefault("history.redis.db", d.History.Redis.DB)
	cl.viper.SetDefault("history.redis.prefix", d.History.Redis.Prefix)
	cl.viper.SetDefault("history.redis.timeout", d.History.Redis.Timeout)

	cors := d.Middleware.CORS
	cl.viper.SetDefault("middleware.cors.enabled", cors.Enabled)
	cl.viper.SetDefault("middleware.cors.allow_origins", cors.AllowOrigins)
	cl.viper.SetDefault("middleware.cors.allow_methods", cors.AllowMethods)
	cl.viper.SetDefault("middleware.cors.allow_headers", cors.AllowHeaders)
	cl.viper.SetDefault("middleware.cors.allow_credentials", cors.AllowCredentials)
	cl.viper.SetDefault("middleware.cors.max_age", cors.MaxAge)

	rl := d.Middleware.RateLimit
	cl.viper.SetDefault("middleware.rate_limit.enabled", rl.Enabled)
	cl.viper.SetDefault("middleware.rate_limit.requests_per_second", rl.RequestsPerSecond)
	cl.viper.SetDefault("middleware.rate_limit.burst", rl.Burst)
}

// GetConfigPath 获取实际使用的配置文件路径
func (cl *ConfigLoader) GetConfigPath() string {
	return cl.viper.ConfigFileUsed()
}

// LoadConfig 便捷函数：按路径加载配置
func LoadConfig(configPath string) (*Config, error) {
	return NewConfigLoader(configPath, "NEOPORT").LoadConfig()
}

// IsConfigNotFound 是否因为找不到配置文件而加载失败
func IsConfigNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound)
}
