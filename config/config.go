package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"privacyguard/logger"
)

type DefaultPaths struct {
	ConfigDir    string
	LogPathApp   string
	LogPathProxy string
	CACertPath   string
	CAKeyPath    string
	DBPath       string
	LogLevel     string
}

type Configuration struct {
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Server struct {
		Port    string `mapstructure:"port"`
		LogPath string `mapstructure:"log_path"`
	} `mapstructure:"server"`
	Proxy struct {
		Port       string `mapstructure:"port"`
		CACertPath string `mapstructure:"ca_cert_path"`
		CAKeyPath  string `mapstructure:"ca_key_path"`
		LogPath    string `mapstructure:"log_path"`
	} `mapstructure:"proxy"`
	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`
	Blocklist struct {
		// Sources are file paths (optionally .gz/.br compressed, text or
		// JSON) or http(s) URLs, consumed once at startup. Empty means the
		// built-in tracker list.
		Sources []string `mapstructure:"sources"`
		// JSONEntriesPath is the gjson path to the domain array inside
		// JSON-formatted sources.
		JSONEntriesPath string `mapstructure:"json_entries_path"`
	} `mapstructure:"blocklist"`
	Fingerprint struct {
		// PoolsPath points at a ProfilePools JSON file. Empty means the
		// built-in pools.
		PoolsPath string `mapstructure:"pools_path"`
		// Seed pins fingerprint generation for reproducible sessions.
		// Zero (the default) draws an unpredictable seed per session.
		Seed int64 `mapstructure:"seed"`
	} `mapstructure:"fingerprint"`
	Cookies struct {
		// Policy is the global default: block_all, block_third_party, or
		// allow_all. A policy persisted via the API beats this value.
		Policy string `mapstructure:"policy"`
	} `mapstructure:"cookies"`
}

var AppConfig Configuration

func expandTilde(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

func GetDefaultConfigPaths() DefaultPaths {
	var paths DefaultPaths
	userConfigDirBase, err := os.UserConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not get user config dir: %v. Using current directory.\n", err)
		userConfigDirBase = "."
	}

	userConfigDir, err := expandTilde(userConfigDirBase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in user config dir '%s': %v. Using potentially literal path.\n", userConfigDirBase, err)
		userConfigDir = userConfigDirBase
	}

	paths.ConfigDir = filepath.Join(userConfigDir, "privacyguard")
	logDir := filepath.Join(paths.ConfigDir, "logs")

	paths.LogPathApp = filepath.Join(logDir, "app.log")
	paths.LogPathProxy = filepath.Join(logDir, "proxy.log")
	paths.CACertPath = filepath.Join(paths.ConfigDir, "privacyguard-ca.crt")
	paths.CAKeyPath = filepath.Join(paths.ConfigDir, "privacyguard-ca.key")
	paths.DBPath = filepath.Join(paths.ConfigDir, "privacyguard.db")
	paths.LogLevel = "INFO"
	return paths
}

func Init(cfgFile string, flagAppLogPath, flagProxyLogPath, flagLogLevel string) error {
	v := viper.New()

	defaults := GetDefaultConfigPaths()
	v.SetDefault("database.path", defaults.DBPath)
	v.SetDefault("server.port", "8466")
	v.SetDefault("server.log_path", defaults.LogPathApp)
	v.SetDefault("proxy.port", "8465")
	v.SetDefault("proxy.ca_cert_path", defaults.CACertPath)
	v.SetDefault("proxy.ca_key_path", defaults.CAKeyPath)
	v.SetDefault("proxy.log_path", defaults.LogPathProxy)
	v.SetDefault("logging.level", defaults.LogLevel)
	v.SetDefault("blocklist.sources", []string{})
	v.SetDefault("blocklist.json_entries_path", "entries")
	v.SetDefault("fingerprint.pools_path", "")
	v.SetDefault("fingerprint.seed", 0)
	v.SetDefault("cookies.policy", "block_third_party")

	if cfgFile != "" {
		expandedCfgFile, err := expandTilde(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in config file path '%s': %v. Trying original path.\n", cfgFile, err)
			expandedCfgFile = cfgFile
		}
		v.SetConfigFile(expandedCfgFile)
		v.SetConfigType("yaml")
	} else {
		v.AddConfigPath(defaults.ConfigDir)
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("PRIVACYGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	configUsedMsg := "Using default/environment configuration."
	readErr := v.ReadInConfig()
	if readErr == nil {
		configUsedMsg = fmt.Sprintf("Using config file: %s", v.ConfigFileUsed())
	} else {
		if _, ok := readErr.(viper.ConfigFileNotFoundError); ok {
			if cfgFile != "" {
				fmt.Fprintf(os.Stderr, "Warning: Config file specified by flag (%s) not found: %v\n", cfgFile, readErr)
			} else {
				fmt.Fprintln(os.Stderr, "No default config file found. Using defaults/environment variables.")
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", v.ConfigFileUsed(), readErr)
		}
	}

	if err := v.Unmarshal(&AppConfig); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Error unmarshalling configuration: %v\n", err)
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Apply flag overrides
	if flagAppLogPath != "" {
		expandedPath, err := expandTilde(flagAppLogPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in --app-log path '%s': %v. Using original path.\n", flagAppLogPath, err)
			AppConfig.Server.LogPath = flagAppLogPath
		} else {
			AppConfig.Server.LogPath = expandedPath
		}
	}
	if flagProxyLogPath != "" {
		expandedPath, err := expandTilde(flagProxyLogPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in --proxy-log path '%s': %v. Using original path.\n", flagProxyLogPath, err)
			AppConfig.Proxy.LogPath = flagProxyLogPath
		} else {
			AppConfig.Proxy.LogPath = expandedPath
		}
	}
	if flagLogLevel != "" {
		AppConfig.Logging.Level = strings.ToUpper(flagLogLevel)
	}

	// Expand tilde for paths read from config that might contain it
	var err error
	AppConfig.Database.Path, err = expandTilde(AppConfig.Database.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in database.path '%s': %v.\n", AppConfig.Database.Path, err)
	}
	AppConfig.Proxy.CACertPath, err = expandTilde(AppConfig.Proxy.CACertPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in proxy.ca_cert_path '%s': %v.\n", AppConfig.Proxy.CACertPath, err)
	}
	AppConfig.Proxy.CAKeyPath, err = expandTilde(AppConfig.Proxy.CAKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in proxy.ca_key_path '%s': %v.\n", AppConfig.Proxy.CAKeyPath, err)
	}
	AppConfig.Fingerprint.PoolsPath, err = expandTilde(AppConfig.Fingerprint.PoolsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in fingerprint.pools_path '%s': %v.\n", AppConfig.Fingerprint.PoolsPath, err)
	}
	for i, source := range AppConfig.Blocklist.Sources {
		if strings.HasPrefix(source, "~") {
			expanded, err := expandTilde(source)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Could not expand tilde in blocklist source '%s': %v.\n", source, err)
				continue
			}
			AppConfig.Blocklist.Sources[i] = expanded
		}
	}

	// Ensure directories exist
	if err := os.MkdirAll(filepath.Dir(AppConfig.Server.LogPath), 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not create final app log directory %s: %v\n", filepath.Dir(AppConfig.Server.LogPath), err)
	}
	if err := os.MkdirAll(filepath.Dir(AppConfig.Proxy.LogPath), 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not create final proxy log directory %s: %v\n", filepath.Dir(AppConfig.Proxy.LogPath), err)
	}
	if err := os.MkdirAll(defaults.ConfigDir, 0750); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not create main config directory %s: %v\n", defaults.ConfigDir, err)
	}

	// Initialize/Re-initialize loggers
	if err := logger.InitGlobalLoggers(AppConfig.Server.LogPath, AppConfig.Proxy.LogPath, AppConfig.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to initialize global loggers with final config: %v\n", err)
		return fmt.Errorf("failed to initialize global loggers with final config: %w", err)
	}

	logger.Info(configUsedMsg)
	if readErr != nil && cfgFile != "" {
		logger.Error("Error occurred reading specified config file '%s': %v", cfgFile, readErr)
	}

	if len(AppConfig.Blocklist.Sources) == 0 {
		logger.Info("No blocklist sources configured; the built-in tracker list will be used.")
	} else {
		logger.Info("Blocklist sources configured: %v", AppConfig.Blocklist.Sources)
	}
	if AppConfig.Fingerprint.Seed != 0 {
		logger.Warn("Fingerprint seed is pinned to %d. Sessions will be reproducible; use only for testing.", AppConfig.Fingerprint.Seed)
	}

	logger.Debug("Final AppConfig Initialized: %+v", AppConfig)
	return nil
}
