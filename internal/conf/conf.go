// Package conf contains the struct that holds the configuration of the player.
package conf

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/GoldenFealla/VideoPlayerGo/internal/logger"
)

const envPrefix = "PLAYER"

// Conf is the player configuration.
type Conf struct {
	LogLevel        LogLevel        `yaml:"logLevel"`
	LogDestinations LogDestinations `yaml:"logDestinations"`
	LogFile         string          `yaml:"logFile"`
	MetricsAddress  string          `yaml:"metricsAddress"`

	QueueCapacity      int      `yaml:"queueCapacity"`
	DriftThreshold     Duration `yaml:"driftThreshold"`
	MinSleep           Duration `yaml:"minSleep"`
	MaxSleep           Duration `yaml:"maxSleep"`
	AudioLatencyOffset Duration `yaml:"audioLatencyOffset"`

	AudioSampleRate int `yaml:"audioSampleRate"`
	AudioChannels   int `yaml:"audioChannels"`
	WindowWidth     int `yaml:"windowWidth"`
	WindowHeight    int `yaml:"windowHeight"`
}

func (c *Conf) setDefaults() {
	c.LogLevel = LogLevel(logger.Info)
	c.LogDestinations = LogDestinations{logger.DestinationStdout}
	c.LogFile = "player.log"

	c.QueueCapacity = 50
	c.DriftThreshold = Duration(300 * time.Millisecond)
	c.MinSleep = Duration(time.Millisecond)
	c.MaxSleep = Duration(500 * time.Millisecond)
	c.AudioLatencyOffset = Duration(100 * time.Millisecond)

	c.AudioSampleRate = 44100
	c.AudioChannels = 2
	c.WindowWidth = 800
	c.WindowHeight = 450
}

// Load loads the configuration from a file, if it exists, then from the environment.
// found is false when fpath does not exist.
func Load(fpath string) (*Conf, bool, error) {
	c := &Conf{}
	c.setDefaults()

	found, err := c.loadFromFile(fpath)
	if err != nil {
		return nil, false, err
	}

	err = loadEnv(envPrefix, c)
	if err != nil {
		return nil, false, fmt.Errorf("conf: loading environment failed: %w", err)
	}

	err = c.Validate()
	if err != nil {
		return nil, false, err
	}

	return c, found, nil
}

func (c *Conf) loadFromFile(fpath string) (bool, error) {
	if fpath == "" {
		return false, nil
	}

	byts, err := os.ReadFile(fpath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("conf: reading file failed: %w", err)
	}

	err = c.Unmarshal(byts)
	if err != nil {
		return false, err
	}

	return true, nil
}

// Unmarshal decodes YAML on top of the current values.
func (c *Conf) Unmarshal(byts []byte) error {
	if err := yaml.UnmarshalStrict(byts, c); err != nil {
		return fmt.Errorf("conf: parsing yaml failed: %w", err)
	}
	return nil
}

// Validate checks the configuration.
func (c *Conf) Validate() error {
	if c.QueueCapacity < 2 {
		return fmt.Errorf("'queueCapacity' must be at least 2")
	}
	if c.DriftThreshold <= 0 {
		return fmt.Errorf("'driftThreshold' must be positive")
	}
	if c.MinSleep <= 0 || c.MaxSleep <= c.MinSleep {
		return fmt.Errorf("'maxSleep' must be greater than 'minSleep', both positive")
	}
	if c.AudioLatencyOffset < 0 {
		return fmt.Errorf("'audioLatencyOffset' must not be negative")
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("'audioSampleRate' must be positive")
	}
	if c.AudioChannels != 1 && c.AudioChannels != 2 {
		return fmt.Errorf("'audioChannels' must be 1 or 2")
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("window size must be positive")
	}
	for _, d := range c.LogDestinations {
		if d == logger.DestinationFile && c.LogFile == "" {
			return fmt.Errorf("'logFile' is required when logging to file")
		}
	}
	return nil
}
