// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var runFlags struct {
	mqttHost string
	mqttPort int
	format   string
	backend  string
	intrPin  string
	dataPin  string
	group    int
	prefix   string
	autoAck  bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the radio to MQTT gateway",
	Long:  "Run the gateway until interrupted. Flags override the config file.",
	RunE:  runGateway,
}

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the processing modules that can be configured",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, n := range moduleNames() {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.mqttHost, "mqtt-host", "", "MQTT broker host")
	f.IntVar(&runFlags.mqttPort, "mqtt-port", 0, "MQTT broker port")
	f.StringVar(&runFlags.format, "format", "", "MQTT payload format: json or cbor")
	f.StringVar(&runFlags.backend, "backend", "", "hardware library: periph or embd")
	f.StringVar(&runFlags.intrPin, "intr", "", "radio interrupt pin name")
	f.StringVar(&runFlags.dataPin, "data", "", "radio data pin name, enables legacy transmissions")
	f.IntVar(&runFlags.group, "group", 0, "RF12 network group")
	f.StringVar(&runFlags.prefix, "prefix", "", "MQTT topic prefix")
	f.BoolVar(&runFlags.autoAck, "ack", false, "acknowledge packets that request it")
	rootCmd.AddCommand(runCmd, modulesCmd)
}

// applyFlags overrides conf with the flags that were set on cmd.
func applyFlags(cmd *cobra.Command, conf *Config) error {
	f := cmd.Flags()
	if f.Changed("mqtt-host") {
		conf.Mqtt.Host = runFlags.mqttHost
	}
	if f.Changed("mqtt-port") {
		conf.Mqtt.Port = runFlags.mqttPort
	}
	if f.Changed("format") {
		conf.Mqtt.Format = runFlags.format
	}
	if f.Changed("backend") {
		conf.Radio.Backend = runFlags.backend
	}
	if f.Changed("intr") {
		conf.Radio.IntrPin = runFlags.intrPin
	}
	if f.Changed("data") {
		conf.Radio.DataPin = runFlags.dataPin
	}
	if f.Changed("group") {
		if runFlags.group < 1 || runFlags.group > 255 {
			return fmt.Errorf("group must be 1..255, not %d", runFlags.group)
		}
		conf.Radio.Group = byte(runFlags.group)
	}
	if f.Changed("prefix") {
		conf.Radio.Prefix = strings.TrimSuffix(runFlags.prefix, "/")
	}
	if f.Changed("ack") {
		conf.Radio.AutoAck = runFlags.autoAck
	}
	return nil
}

func runGateway(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, conf); err != nil {
		return err
	}
	log, err := newLogger(debug)
	if err != nil {
		return err
	}
	defer log.Sync()

	c, err := newCodec(conf.Mqtt.Format)
	if err != nil {
		return err
	}
	mq, err := newMQ(conf.Mqtt, c, log)
	if err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	defer mq.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	radio, notify, err := startRadio(ctx, conf.Radio, log)
	if err != nil {
		return err
	}
	if err := startGateway(ctx, radio, notify, conf.Radio, mq, log); err != nil {
		return err
	}
	for _, mc := range conf.Modules {
		if err := hookModule(mc, mq, log); err != nil {
			return err
		}
	}
	log.Infof("Gateway is ready")
	<-ctx.Done()
	log.Infof("Shutting down")
	return nil
}
