package env

import (
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds the process-wide flags shared by every command.
var Config struct {
	Region   string
	Profile  string
	Manifest string
}

type Environment struct {
	LogLevel    string `envconfig:"LOG_LEVEL"`
	GithubToken string `envconfig:"GITHUB_TOKEN"`
	FluxBinary  string `envconfig:"EKSCD_FLUX_BINARY" default:"flux"`
	Parallelism int    `envconfig:"EKSCD_PARALLELISM" default:"4"`
	StatePath   string `envconfig:"EKSCD_STATE_PATH"`
}

func LoadEnvironment() (environment Environment, err error) {
	err = envconfig.Process("", &environment)
	if err != nil {
		err = errors.Wrap(err, "reading environment")
		return
	}
	if environment.Parallelism < 1 {
		environment.Parallelism = 1
	}
	return
}

type VersionInfo struct {
	BuildVersion string
	Commit       string
}

// Set at link time with -ldflags "-X ekscd/internal/env.BuildVersion=..."
var BuildVersion string
var Commit string
