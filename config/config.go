// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap/zapcore"

	"github.com/ore-hq/pool-miner/logging"
	"github.com/ore-hq/pool-miner/pool"
	"github.com/ore-hq/pool-miner/session"
)

const (
	defaultDataDirname    = "data"
	defaultLogDirname     = "logs"
	defaultHistoryDirname = "history"
	defaultLogFilename    = "poolminer.log"
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10
	defaultKeypair        = "~/.config/solana/id.json"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config defines the configuration options for poolminer.
//
// Values are taken from the defaults, then the config file, then the command line.
//
//nolint:lll
type Config struct {
	MinerDir       string  `long:"minerdir"       description:"The base directory that contains the miner's data, logs, configuration file, etc."`
	ConfigFile     string  `long:"configfile"     description:"Path to configuration file"                                                          short:"c"`
	DataDir        string  `long:"datadir"        description:"The directory to store the miner's data within"                                      short:"b"`
	LogDir         string  `long:"logdir"         description:"Directory to log output."`
	DebugLog       bool    `long:"debuglog"       description:"Enable debug logs"`
	JSONLog        bool    `long:"jsonlog"        description:"Whether to log in JSON format"`
	MaxLogFiles    int     `long:"maxlogfiles"    description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int     `long:"maxlogfilesize" description:"Maximum logfile size in MB"`
	MetricsPort    *uint16 `long:"metrics-port"   description:"The port to expose metrics"`

	Keypair string `long:"keypair" description:"Filepath to keypair to use, or the keypair itself in base58"`
	Nice    int    `long:"nice"    description:"Scheduling priority of the miner process, from -20 (highest) to 19 (lowest)"`

	Pool   pool.Config    `group:"Pool"`
	Mining session.Config `group:"Mining"`
}

// DefaultConfig returns a config with default hardcoded values.
func DefaultConfig() *Config {
	minerDir := "./poolminer"
	cacheDir, err := os.UserCacheDir()
	if err == nil {
		minerDir = filepath.Join(cacheDir, "poolminer")
	}

	return &Config{
		MinerDir:       minerDir,
		DataDir:        filepath.Join(minerDir, defaultDataDirname),
		LogDir:         filepath.Join(minerDir, defaultLogDirname),
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
		Keypair:        defaultKeypair,
		Pool:           pool.DefaultConfig(),
		Mining:         session.DefaultConfig(),
	}
}

// ReadConfigFile reads config from an ini file.
// It uses the provided `cfg` as a base config and overrides it with the values
// from the config file.
func ReadConfigFile(cfg *Config) (*Config, error) {
	if cfg.ConfigFile == "" {
		return cfg, nil
	}
	logging.FromContext(context.Background()).Sugar().Debugf("reading config from %s", cfg.ConfigFile)
	if err := flags.IniParse(cfg.ConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %v: %w", cfg.ConfigFile, err)
	}

	return cfg, nil
}

// SetupConfig expands paths and initializes filesystem.
func SetupConfig(cfg *Config) (*Config, error) {
	// If the provided miner directory is not the default, we'll modify the
	// path to all of the files and directories that will live within it.
	defaultCfg := DefaultConfig()
	if cfg.MinerDir != defaultCfg.MinerDir {
		if cfg.DataDir == defaultCfg.DataDir {
			cfg.DataDir = filepath.Join(cfg.MinerDir, defaultDataDirname)
		}
		if cfg.LogDir == defaultCfg.LogDir {
			cfg.LogDir = filepath.Join(cfg.MinerDir, defaultLogDirname)
		}
	}

	cfg.MinerDir = cleanAndExpandPath(cfg.MinerDir)
	if err := os.MkdirAll(cfg.MinerDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %v: %w", cfg.MinerDir, err)
	}

	// As soon as we're done parsing configuration options, ensure all paths
	// to directories and files are cleaned and expanded before attempting
	// to use them later on.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.Keypair = cleanAndExpandPath(cfg.Keypair)

	return cfg, nil
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.Keypair == "" {
		result = multierror.Append(result, fmt.Errorf("%w: keypair path is required", ErrInvalidConfig))
	}
	if strings.TrimSpace(c.Pool.URL) == "" {
		result = multierror.Append(result, fmt.Errorf("%w: pool url is required", ErrInvalidConfig))
	}
	if c.Pool.RequestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: request timeout must be positive, got %v", ErrInvalidConfig, c.Pool.RequestTimeout))
	}
	if c.Pool.RetryBase <= 0 || c.Pool.RetryMax < c.Pool.RetryBase {
		result = multierror.Append(result, fmt.Errorf("%w: retry delays must satisfy 0 < base <= max, got %v and %v",
			ErrInvalidConfig, c.Pool.RetryBase, c.Pool.RetryMax))
	}
	if c.Nice < -20 || c.Nice > 19 {
		result = multierror.Append(result, fmt.Errorf("%w: nice must be within [-20, 19], got %d", ErrInvalidConfig, c.Nice))
	}
	if c.MetricsPort != nil && *c.MetricsPort == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: metrics port must not be 0", ErrInvalidConfig))
	}
	if err := c.Mining.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (c *Config) HistoryDir() string {
	return filepath.Join(c.DataDir, defaultHistoryDirname)
}

func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}

// implement zap.ObjectMarshaler interface.
func (c *Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("minerdir", c.MinerDir)
	enc.AddString("datadir", c.DataDir)
	enc.AddString("logdir", c.LogDir)
	if strings.ContainsRune(c.Keypair, filepath.Separator) {
		enc.AddString("keypair", c.Keypair)
	} else {
		enc.AddString("keypair", "<inline>")
	}
	enc.AddInt("nice", c.Nice)
	if c.MetricsPort != nil {
		enc.AddUint16("metrics-port", *c.MetricsPort)
	}
	if err := enc.AddObject("pool", c.Pool); err != nil {
		return err
	}
	return enc.AddObject("mining", c.Mining)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		user, err := user.Current()
		if err == nil {
			homeDir = user.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
