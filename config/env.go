package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that provide defaults for command-line flags.
const (
	EnvLogLevel    = "USIMM_LOG_LEVEL"
	EnvRecordDB    = "USIMM_RECORD_DB"
	EnvMonitorPort = "USIMM_MONITOR_PORT"
	EnvConfigFile  = "USIMM_CONFIG"
)

// Env holds the settings read from the environment.
type Env struct {
	LogLevel    string
	RecordDB    string
	MonitorPort int
	ConfigFile  string
}

// LoadEnv loads the given dotenv files, or .env when none is given, and
// reads the settings. Missing files are skipped. Variables already set in the
// process environment win over the files.
func LoadEnv(files ...string) (Env, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, file := range files {
		err := godotenv.Load(file)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Env{}, err
		}
	}

	env := Env{
		LogLevel:   os.Getenv(EnvLogLevel),
		RecordDB:   os.Getenv(EnvRecordDB),
		ConfigFile: os.Getenv(EnvConfigFile),
	}

	if port, ok := os.LookupEnv(EnvMonitorPort); ok && port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Env{}, errors.New(EnvMonitorPort + " must be a port number")
		}

		env.MonitorPort = p
	}

	return env, nil
}
