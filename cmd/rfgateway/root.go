// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "rfgateway",
	Short: "RF12 radio to MQTT gateway",
	Long: `rfgateway - Gateway between an RFM12B radio using the JeeLabs RF12 packet format and MQTT.

Received packets are published to <prefix>/rx and packets published to <prefix>/tx
are transmitted. Processing modules configured in [module.<name>] sections of the
config file subscribe to one topic and publish derived messages to another.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "ini config file")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
}

// newLogger returns a console logger, at debug level if requested.
func newLogger(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
