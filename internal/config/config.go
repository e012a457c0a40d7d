package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Listen      string
	MetricsAddr string
	PGDSN       string
	BlocksBack  uint64
	RPCURLs     map[uint64]string
	LogLevel    string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SLIPSENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":8080")
	v.SetDefault("metrics-addr", "")
	v.SetDefault("blocks-back", uint64(500))
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	rpcURLs, err := parseRPCURLs(v.GetStringMapString("rpc-urls"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Listen:      v.GetString("listen"),
		MetricsAddr: v.GetString("metrics-addr"),
		PGDSN:       v.GetString("pg-dsn"),
		BlocksBack:  v.GetUint64("blocks-back"),
		RPCURLs:     rpcURLs,
		LogLevel:    v.GetString("log-level"),
	}

	return cfg, nil
}

// Registry builds the chain registry with any configured RPC overrides applied.
func (c Config) Registry() (*Registry, error) {
	reg := DefaultRegistry()
	for chainID, url := range c.RPCURLs {
		if err := reg.SetRPCEndpoint(chainID, url); err != nil {
			return nil, fmt.Errorf("rpc override: %w", err)
		}
	}
	return reg, nil
}

func parseRPCURLs(raw map[string]string) (map[uint64]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[uint64]string, len(raw))
	for key, url := range raw {
		key = strings.TrimSpace(key)
		url = strings.TrimSpace(url)
		if key == "" || url == "" {
			continue
		}
		chainID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id in rpc-urls: %q", key)
		}
		out[chainID] = url
	}
	return out, nil
}
