package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	App           AppConfig           `mapstructure:"app"`
	Google        GoogleConfig        `mapstructure:"google"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Renewal       RenewalConfig       `mapstructure:"renewal"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Maintain      MaintainConfig      `mapstructure:"maintain"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// AppConfig carries this deployment's public base URL. It is the OAuth
// redirect host and the only accepted Referer origin on client routes.
type AppConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

type GoogleConfig struct {
	ClientID         string   `mapstructure:"client_id"`
	ClientSecret     string   `mapstructure:"client_secret"`
	AuthorizationURI string   `mapstructure:"authorization_uri"`
	TokenURI         string   `mapstructure:"token_uri"`
	APIServer        string   `mapstructure:"api_server"`
	UserInfoServer   string   `mapstructure:"user_info_server"`
	RevokeURI        string   `mapstructure:"revoke_uri"`
	Scopes           []string `mapstructure:"scopes"`
	PubSubTopic      string   `mapstructure:"pubsub_topic"`
}

type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type NotificationsConfig struct {
	PostTimeout  time.Duration `mapstructure:"post_timeout"`
	SharedSecret string        `mapstructure:"shared_secret"`
}

type RenewalConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Lookahead time.Duration `mapstructure:"lookahead"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type MaintainConfig struct {
	Token string `mapstructure:"token"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
