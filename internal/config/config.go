// Package config loads runtime settings from the environment, an optional
// .env file and an optional YAML pacing profile.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pricofy/reading-pacer/internal/chunker"
	"github.com/pricofy/reading-pacer/internal/pacing"
)

const (
	defaultEnvironment = "dev"
	defaultLogLevel    = "info"
)

// Settings is the resolved runtime configuration.
type Settings struct {
	Environment    string `validate:"required"`
	RenderFunction string `validate:"required"`
	LogLevel       string `validate:"loglevel"`
	ProfilePath    string

	Pacing pacing.Config
	Bands  chunker.Profile
}

// profile is the YAML document layout. Omitted keys keep their defaults.
type profile struct {
	Pacing *pacing.Config   `yaml:"pacing"`
	Bands  *chunker.Profile `yaml:"bands"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("loglevel", validLogLevel); err != nil {
		panic(err)
	}
	return v
}

func validLogLevel(fl validator.FieldLevel) bool {
	_, ok := levels[fl.Field().String()]
	return ok
}

// Default returns settings for env with the built-in pacing profile.
func Default(env string) *Settings {
	if env == "" {
		env = defaultEnvironment
	}
	return &Settings{
		Environment:    env,
		RenderFunction: "reading-renderer-" + env,
		LogLevel:       defaultLogLevel,
		Pacing:         pacing.DefaultConfig(),
		Bands:          chunker.DefaultProfile(),
	}
}

// Load resolves settings. Process environment variables win over the .env
// files; with no files given, ./.env is read if present.
func Load(envFiles ...string) (*Settings, error) {
	dotenv, err := readDotenv(envFiles)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}

	s := Default(lookup("ENVIRONMENT"))
	if fn := lookup("RENDER_FUNCTION"); fn != "" {
		s.RenderFunction = fn
	}
	if level := lookup("LOG_LEVEL"); level != "" {
		s.LogLevel = level
	}

	if s.ProfilePath = lookup("PACING_PROFILE"); s.ProfilePath != "" {
		data, err := os.ReadFile(s.ProfilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read pacing profile: %w", err)
		}
		if err := s.ApplyProfile(data); err != nil {
			return nil, err
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func readDotenv(files []string) (map[string]string, error) {
	explicit := len(files) > 0
	if !explicit {
		files = []string{".env"}
	}

	merged := make(map[string]string)
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

// ApplyProfile overlays a YAML pacing profile onto s.
func (s *Settings) ApplyProfile(data []byte) error {
	p := profile{Pacing: &s.Pacing, Bands: &s.Bands}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("failed to parse pacing profile: %w", err)
	}
	return nil
}

// Validate checks every section of the settings.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := s.Pacing.Validate(); err != nil {
		return fmt.Errorf("invalid pacing config: %w", err)
	}
	if err := s.Bands.Validate(); err != nil {
		return err
	}
	return nil
}
