package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/GoldenFealla/VideoPlayerGo/internal/logger"
)

// Duration is a duration that is unmarshaled from a string like "300ms".
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var in string
	if err := unmarshal(&in); err != nil {
		return err
	}
	return d.unmarshalEnv(in)
}

func (d *Duration) unmarshalEnv(s string) error {
	du, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(du)
	return nil
}

// LogLevel is the logLevel parameter.
type LogLevel logger.Level

// MarshalYAML implements yaml.Marshaler.
func (l LogLevel) MarshalYAML() (interface{}, error) {
	switch logger.Level(l) {
	case logger.Error:
		return "error", nil
	case logger.Warn:
		return "warn", nil
	case logger.Info:
		return "info", nil
	default:
		return "debug", nil
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *LogLevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var in string
	if err := unmarshal(&in); err != nil {
		return err
	}
	return l.unmarshalEnv(in)
}

func (l *LogLevel) unmarshalEnv(s string) error {
	switch s {
	case "error":
		*l = LogLevel(logger.Error)
	case "warn":
		*l = LogLevel(logger.Warn)
	case "info":
		*l = LogLevel(logger.Info)
	case "debug":
		*l = LogLevel(logger.Debug)
	default:
		return fmt.Errorf("invalid log level: '%s'", s)
	}
	return nil
}

// LogDestinations is the logDestinations parameter.
type LogDestinations []logger.Destination

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *LogDestinations) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var in []string
	if err := unmarshal(&in); err != nil {
		return err
	}
	return d.set(in)
}

func (d *LogDestinations) unmarshalEnv(s string) error {
	return d.set(strings.Split(s, ","))
}

func (d *LogDestinations) set(in []string) error {
	out := LogDestinations{}
	for _, v := range in {
		switch v {
		case "stdout":
			out = append(out, logger.DestinationStdout)
		case "file":
			out = append(out, logger.DestinationFile)
		default:
			return fmt.Errorf("invalid log destination: '%s'", v)
		}
	}
	*d = out
	return nil
}
