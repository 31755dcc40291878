package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

func initConfig() error {
	viper.SetEnvPrefix("stashctl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		dirs, err := gap.NewScope(gap.User, "stashctl").ConfigDirs()
		if err != nil {
			return fmt.Errorf("locate config directory: %w", err)
		}
		for _, d := range dirs {
			viper.AddConfigPath(d)
		}
		viper.SetConfigName("stashctl")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read %s: %w", filepath.Base(viper.ConfigFileUsed()), err)
	}
	return nil
}
