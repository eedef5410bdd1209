package conf

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GoldenFealla/VideoPlayerGo/internal/logger"
)

func writeTempFile(t *testing.T, content string) string {
	fpath := filepath.Join(t.TempDir(), "player.yml")
	err := os.WriteFile(fpath, []byte(content), 0o644)
	require.NoError(t, err)
	return fpath
}

func TestLoadDefaults(t *testing.T) {
	c, found, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	require.False(t, found)

	require.Equal(t, 50, c.QueueCapacity)
	require.Equal(t, Duration(300*time.Millisecond), c.DriftThreshold)
	require.Equal(t, Duration(time.Millisecond), c.MinSleep)
	require.Equal(t, Duration(500*time.Millisecond), c.MaxSleep)
	require.Equal(t, LogLevel(logger.Info), c.LogLevel)
	require.Equal(t, LogDestinations{logger.DestinationStdout}, c.LogDestinations)
}

func TestLoadFromFile(t *testing.T) {
	fpath := writeTempFile(t, "logLevel: debug\n"+
		"logDestinations: [stdout, file]\n"+
		"queueCapacity: 8\n"+
		"driftThreshold: 250ms\n"+
		"audioLatencyOffset: 40ms\n")

	c, found, err := Load(fpath)
	require.NoError(t, err)
	require.True(t, found)

	require.Equal(t, LogLevel(logger.Debug), c.LogLevel)
	require.Equal(t, LogDestinations{logger.DestinationStdout, logger.DestinationFile}, c.LogDestinations)
	require.Equal(t, 8, c.QueueCapacity)
	require.Equal(t, Duration(250*time.Millisecond), c.DriftThreshold)
	require.Equal(t, Duration(40*time.Millisecond), c.AudioLatencyOffset)
	require.Equal(t, 44100, c.AudioSampleRate)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PLAYER_QUEUECAPACITY", "12")
	t.Setenv("PLAYER_MAXSLEEP", "250ms")
	t.Setenv("PLAYER_LOGLEVEL", "warn")

	fpath := writeTempFile(t, "queueCapacity: 8\n")

	c, _, err := Load(fpath)
	require.NoError(t, err)

	require.Equal(t, 12, c.QueueCapacity)
	require.Equal(t, Duration(250*time.Millisecond), c.MaxSleep)
	require.Equal(t, LogLevel(logger.Warn), c.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	for _, ca := range []struct {
		name    string
		content string
	}{
		{"unknown field", "notAField: 1\n"},
		{"bad duration", "maxSleep: soon\n"},
		{"bad level", "logLevel: loud\n"},
		{"bad destination", "logDestinations: [syslog]\n"},
		{"small queue", "queueCapacity: 1\n"},
		{"inverted sleeps", "minSleep: 600ms\n"},
		{"channels", "audioChannels: 6\n"},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, _, err := Load(writeTempFile(t, ca.content))
			require.Error(t, err)
		})
	}
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("PLAYER_QUEUECAPACITY", "many")

	_, _, err := Load("")
	require.Error(t, err)
}

func TestEnvKeysFollowYAMLTags(t *testing.T) {
	var s struct {
		Capacity int    `yaml:"queueCapacity"`
		Name     string `yaml:"displayName,omitempty"`
		Plain    int
		Skipped  int `yaml:"-"`
	}

	err := loadEnvValue(map[string]string{
		"PLAYER_QUEUECAPACITY": "7",
		"PLAYER_CAPACITY":      "99",
		"PLAYER_DISPLAYNAME":   "main",
		"PLAYER_PLAIN":         "3",
		"PLAYER_SKIPPED":       "5",
	}, "PLAYER", reflect.ValueOf(&s).Elem())
	require.NoError(t, err)

	require.Equal(t, 7, s.Capacity)
	require.Equal(t, "main", s.Name)
	require.Equal(t, 3, s.Plain)
	require.Equal(t, 0, s.Skipped)
}
