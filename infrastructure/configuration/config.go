package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"socialhub/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Mongo       Mongo       `json:"mongo"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	OAuth       OAuth       `json:"oauth"`
}

type App struct {
	Port      int    `json:"port"`
	BaseURL   string `json:"baseUrl"`
	SecretKey string `json:"secretKey"`
}

type Database struct {
	Psql  Db `json:"psql"`
	MySql Db `json:"mysql"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Mongo struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

// OAuth holds per-platform OAuth app credentials. Instagram Business
// accounts are managed through the Facebook Graph app, so the instagram
// block falls back to the facebook block when empty (see ClientFor).
type OAuth struct {
	Facebook  OAuthClient `json:"facebook"`
	Instagram OAuthClient `json:"instagram"`
	LinkedIn  OAuthClient `json:"linkedin"`
	Twitter   OAuthClient `json:"twitter"`
	YouTube   OAuthClient `json:"youtube"`
	WhatsApp  OAuthClient `json:"whatsapp"`
}

type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	APIVersion   string   `json:"apiVersion"`
	Scopes       []string `json:"scopes"`
}

var C Config

func init() {
	LoadConfig()
	initApp(&C)
	initOAuth(&C)
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

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
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
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
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
	if v := os.Getenv("APP_BASE_URL"); v != "" {
		C.App.BaseURL = v
	}
	if C.App.BaseURL == "" {
		C.App.BaseURL = fmt.Sprintf("http://localhost:%d", C.App.Port)
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

// initOAuth overlays <PLATFORM>_CLIENT_ID / <PLATFORM>_CLIENT_SECRET /
// <PLATFORM>_REDIRECT_URI environment variables onto the config file values.
func initOAuth(C *Config) {
	overlay := func(c *OAuthClient, prefix string) {
		if v := os.Getenv(prefix + "_CLIENT_ID"); v != "" {
			c.ClientID = v
		}
		if v := os.Getenv(prefix + "_CLIENT_SECRET"); v != "" {
			c.ClientSecret = v
		}
		if v := os.Getenv(prefix + "_REDIRECT_URI"); v != "" {
			c.RedirectURI = v
		}
		if v := os.Getenv(prefix + "_API_VERSION"); v != "" {
			c.APIVersion = v
		}
	}
	overlay(&C.OAuth.Facebook, "FACEBOOK")
	overlay(&C.OAuth.Instagram, "INSTAGRAM")
	overlay(&C.OAuth.LinkedIn, "LINKEDIN")
	overlay(&C.OAuth.Twitter, "TWITTER")
	overlay(&C.OAuth.YouTube, "YOUTUBE")
	overlay(&C.OAuth.WhatsApp, "WHATSAPP")
}

// ClientFor returns the static OAuth client block for a platform name.
// Instagram and WhatsApp fall back to the Facebook Graph app block when
// their own block is empty; missing configuration yields zero values, the
// credential resolver decides how to handle that.
func ClientFor(platform string) OAuthClient {
	var c OAuthClient
	switch strings.ToLower(platform) {
	case "facebook":
		c = C.OAuth.Facebook
	case "instagram":
		c = C.OAuth.Instagram
		if c.ClientID == "" {
			c = C.OAuth.Facebook
		}
	case "whatsapp":
		c = C.OAuth.WhatsApp
		if c.ClientID == "" {
			c = C.OAuth.Facebook
		}
	case "linkedin":
		c = C.OAuth.LinkedIn
	case "twitter":
		c = C.OAuth.Twitter
	case "youtube":
		c = C.OAuth.YouTube
	}
	return c
}

// DefaultRedirectURI computes the callback URL for a platform from the
// application base URL.
func DefaultRedirectURI(platform string) string {
	return fmt.Sprintf("%s/api/v1/oauth/%s/callback", strings.TrimRight(C.App.BaseURL, "/"), strings.ToLower(platform))
}
