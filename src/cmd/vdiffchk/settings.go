package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	SETTINGS_FILE_NAME = ".vdiffchk"
	ENV_PREFIX         = "VDIFFCHK"
)

// loadSettings layers, from strongest to weakest: flags, VDIFFCHK_* env, the settings file, flag defaults
func loadSettings(cmd *cobra.Command, settingsFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if settingsFile != "" {
		v.SetConfigFile(settingsFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(SETTINGS_FILE_NAME)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if settingsFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	} else {
		logger.WithField("file", v.ConfigFileUsed()).Debug("Loaded settings")
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}

// expandPath resolves a leading ~ in paths coming from settings or env
func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return filepath.Clean(expanded)
}

func setupLogging(v *viper.Viper) error {
	if v.GetString("log-format") == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	if v.GetBool("debug") {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	return nil
}
