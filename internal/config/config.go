package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения: GREETER_GRPC_PORT, GREETER_CLIENT_ADDRESS...
const EnvPrefix = "GREETER"

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	GRPC   GRPCConfig   `mapstructure:"grpc"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Client ClientConfig `mapstructure:"client"`
	TLS    TLSConfig    `mapstructure:"tls"`
	Log    LogConfig    `mapstructure:"log"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env" validate:"oneof=development production test"`
	Version string `mapstructure:"version"`
}

type GRPCConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=0,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

func (c GRPCConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"min=0,max=65535"`
}

type ClientConfig struct {
	Address      string        `mapstructure:"address" validate:"required,hostname_port"`
	Name         string        `mapstructure:"name"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" validate:"gt=0"`
	CallTimeout  time.Duration `mapstructure:"call_timeout" validate:"gt=0"`
	CloseTimeout time.Duration `mapstructure:"close_timeout" validate:"gt=0"`
	MaxAttempts  int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
	Backoff      time.Duration `mapstructure:"backoff" validate:"gte=0"`
}

// TLSConfig общий для сервера и клиента. Серверу нужны CertFile и KeyFile,
// клиенту достаточно CAFile (или системных корневых сертификатов).
type TLSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	CertFile   string `mapstructure:"cert_file" validate:"omitempty,file"`
	KeyFile    string `mapstructure:"key_file" validate:"omitempty,file"`
	CAFile     string `mapstructure:"ca_file" validate:"omitempty,file"`
	ServerName string `mapstructure:"server_name"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// flagKeys связывает имена флагов командной строки с ключами конфигурации.
var flagKeys = map[string]string{
	"port":      "grpc.port",
	"http-port": "http.port",
	"gateway":   "http.enabled",
	"addr":      "client.address",
	"name":      "client.name",
	"timeout":   "client.call_timeout",
	"retries":   "client.max_attempts",
	"tls":       "tls.enabled",
	"ca-file":   "tls.ca_file",
	"log-level": "log.level",
}

// keepOnZero флаги, нулевое значение которых оставляет настроенное
var keepOnZero = map[string]bool{
	"timeout": true,
}

func isZeroDuration(f *pflag.Flag) bool {
	d, err := time.ParseDuration(f.Value.String())
	return err == nil && d == 0
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "greeter")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("grpc.host", "")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("grpc.shutdown_timeout", "30s")
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.port", 8080)
	v.SetDefault("client.address", "localhost:50051")
	v.SetDefault("client.name", "Kotlin")
	v.SetDefault("client.dial_timeout", "5s")
	v.SetDefault("client.call_timeout", "10s")
	v.SetDefault("client.close_timeout", "5s")
	v.SetDefault("client.max_attempts", 1)
	v.SetDefault("client.backoff", "200ms")
	v.SetDefault("tls.enabled", false)
	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")
	v.SetDefault("tls.ca_file", "")
	v.SetDefault("tls.server_name", "")
	v.SetDefault("log.level", "info")
}

// LoadConfig собирает конфигурацию в порядке приоритета:
// флаги > окружение (и .env) > config.yaml > значения по умолчанию.
// Отсутствие config.yaml и .env не считается ошибкой. flags может быть nil.
func LoadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil || (keepOnZero[name] && isZeroDuration(f)) {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("error binding flag %q: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func Validate(c *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("error validating config: %w", err)
	}
	return nil
}
