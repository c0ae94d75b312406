package config

import (
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

type Config struct {
	// Port Settings
	Host        string `json:"host"`        // The public domain name of the server.
	ServerAddr  string `json:"serverAddr"`  // The address the server endpoint binds to.
	FrontendURL string `json:"frontendURL"` // Base URL used in emailed links.

	Auth struct {
		AccessTokenSecret  string `json:"accessTokenSecret"`
		RefreshTokenSecret string `json:"refreshTokenSecret"`
		LDAP               struct {
			Enable   bool   `json:"enable"`
			Address  string `json:"address"`
			SearchDN string `json:"searchDN"`
		} `json:"ldap"`
	} `json:"auth"`

	Postgres struct {
		Host        string `json:"host"`
		Port        string `json:"port"`
		DBName      string `json:"dbname"`
		User        string `json:"user"`
		Password    string `json:"password"`
		SSLMode     string `json:"sslmode"`
		TimeZone    string `json:"TimeZone"`
		ReplicaHost string `json:"replicaHost"` // Optional read replica, empty to disable.
	} `json:"postgres"`

	SMTP struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		User     string `json:"user"`
		Password string `json:"password"`
		Sender   string `json:"sender"`
	} `json:"smtp"`

	ObjectStore struct {
		BaseURL string `json:"baseURL"`
		KeyID   string `json:"keyID"`
		AppKey  string `json:"appKey"`
		Bucket  string `json:"bucket"`
	} `json:"objectStore"`

	Reminder struct {
		Spec       string `json:"spec"`       // Cron spec for the deadline scan.
		WindowDays int    `json:"windowDays"` // Remind when a deadline is within this many days.
	} `json:"reminder"`
}

var (
	once   sync.Once
	config *Config
)

func GetConfig() *Config {
	once.Do(func() {
		config = initConfig()
	})
	return config
}

func IsDebugMode() bool {
	return gin.Mode() == gin.DebugMode
}

// initConfig reads the configuration file. If the environment is set to
// debug, it reads the debug-config.yaml file. Otherwise, it reads the
// config.yaml file mounted by the deployment.
func initConfig() *Config {
	config := &Config{}
	var configPath string
	if IsDebugMode() {
		if os.Getenv("MENTOR_DEBUG_CONFIG_PATH") != "" {
			configPath = os.Getenv("MENTOR_DEBUG_CONFIG_PATH")
		} else {
			configPath = "./etc/debug-config.yaml"
		}
	} else {
		configPath = "/etc/config/config.yaml"
	}
	klog.Info("config path: ", configPath)

	err := readConfig(configPath, config)
	if err != nil {
		klog.Error("init config", err)
		panic(err)
	}
	return config
}

func readConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return err
	}
	return nil
}
