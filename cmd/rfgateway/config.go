// Copyright (c) 2016 by Thorsten von Eicken

package main

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/tve/rflink/rfm12"
)

// Config is the gateway configuration, read from an ini file.
type Config struct {
	Mqtt    MqttConfig
	Radio   RadioConfig
	Modules []ModuleConfig
}

// MqttConfig is the [mqtt] section.
type MqttConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Format   string // payload encoding: json or cbor
}

// RadioConfig is the [radio] section.
type RadioConfig struct {
	Backend    string // host library: periph or embd
	Spi        string // SPI port name for periph, channel number for embd
	SpiHz      int
	IntrPin    string // nIRQ
	DataPin    string // data pin for legacy waveforms, optional
	CSMuxPin   string // chip select mux pin, optional
	CSMuxValue int
	Group      byte
	Band       rfm12.Band
	Freq       uint16
	Rate       byte
	TimerTick  time.Duration // soft compare timer period
	Prefix     string        // MQTT topic prefix
	AutoAck    bool
}

// ModuleConfig is a [module.<name>] section.
type ModuleConfig struct {
	Name string // module to instantiate
	Sub  string // topic it subscribes to
	Pub  string // topic it publishes to
}

func defaultConfig() *Config {
	return &Config{
		Mqtt: MqttConfig{Host: "localhost", Port: 1883, Format: "json"},
		Radio: RadioConfig{
			Backend:   "periph",
			SpiHz:     2000000,
			IntrPin:   "GPIO22",
			Group:     rfm12.DefaultGroup,
			Band:      rfm12.Band868,
			Freq:      1600,
			Rate:      6,
			TimerTick: 50 * time.Microsecond,
			Prefix:    "rf12",
		},
	}
}

// loadConfig reads path on top of the defaults, an empty path yields the defaults.
func loadConfig(path string) (*Config, error) {
	conf := defaultConfig()
	if path == "" {
		return conf, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load config %s: %w", path, err)
	}
	if err := parseConfig(f, conf); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return conf, nil
}

func parseConfig(f *ini.File, conf *Config) error {
	m := f.Section("mqtt")
	conf.Mqtt.Host = m.Key("Host").MustString(conf.Mqtt.Host)
	conf.Mqtt.Port = m.Key("Port").MustInt(conf.Mqtt.Port)
	conf.Mqtt.User = m.Key("User").String()
	conf.Mqtt.Password = m.Key("Password").String()
	format, err := oneOf(m, "Format", conf.Mqtt.Format, "json", "cbor")
	if err != nil {
		return err
	}
	conf.Mqtt.Format = format

	r := f.Section("radio")
	rc := &conf.Radio
	backend, err := oneOf(r, "Backend", rc.Backend, "periph", "embd")
	if err != nil {
		return err
	}
	rc.Backend = backend
	rc.Spi = r.Key("Spi").MustString(rc.Spi)
	rc.SpiHz = r.Key("SpiHz").MustInt(rc.SpiHz)
	rc.IntrPin = r.Key("IntrPin").MustString(rc.IntrPin)
	rc.DataPin = r.Key("DataPin").String()
	rc.CSMuxPin = r.Key("CSMuxPin").String()
	rc.CSMuxValue = r.Key("CSMuxValue").RangeInt(0, 0, 1)
	rc.Group = byte(r.Key("Group").RangeInt(int(rc.Group), 1, 255))
	if r.HasKey("Band") {
		band, ok := rfm12.BandFor(r.Key("Band").MustInt(0))
		if !ok {
			return fmt.Errorf("radio Band value is '%s', must be 433, 868 or 915", r.Key("Band").String())
		}
		rc.Band = band
	}
	rc.Freq = uint16(r.Key("Freq").RangeInt(int(rc.Freq), 96, 3903))
	rc.Rate = byte(r.Key("Rate").RangeInt(int(rc.Rate), 1, 255))
	rc.TimerTick = r.Key("TimerTick").MustDuration(rc.TimerTick)
	rc.Prefix = strings.TrimSuffix(r.Key("Prefix").MustString(rc.Prefix), "/")
	rc.AutoAck = r.Key("AutoAck").MustBool(false)

	for _, s := range f.Sections() {
		name, ok := strings.CutPrefix(s.Name(), "module.")
		if !ok {
			continue
		}
		mc := ModuleConfig{
			Name: s.Key("Module").MustString(name),
			Sub:  s.Key("Sub").String(),
			Pub:  s.Key("Pub").String(),
		}
		if mc.Sub == "" || mc.Pub == "" {
			return fmt.Errorf("module %s needs Sub and Pub topics", name)
		}
		conf.Modules = append(conf.Modules, mc)
	}
	return nil
}

// oneOf returns the value of key in s, def if it is absent, and an error if it is not one of allowed.
func oneOf(s *ini.Section, key, def string, allowed ...string) (string, error) {
	if !s.HasKey(key) {
		return def, nil
	}
	v := s.Key(key).In("BAD", allowed)
	if v == "BAD" {
		return "", fmt.Errorf("%s %s value is '%s', must be one of %s",
			s.Name(), key, s.Key(key).String(), strings.Join(allowed, ", "))
	}
	return v, nil
}
