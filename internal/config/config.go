package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Backend         string           `yaml:"backend" validate:"oneof=cloud ondevice"`
	Cloud           CloudConfig      `yaml:"cloud"`
	Credential      CredentialConfig `yaml:"credential"`
	OnDevice        OnDeviceConfig   `yaml:"ondevice"`
	PermissionsFile string           `yaml:"permissions_file" validate:"required"`
	Audio           AudioConfig      `yaml:"audio"`
	Hotkey          HotkeyConfig     `yaml:"hotkey"`
	Inject          InjectConfig     `yaml:"inject"`
	Session         SessionConfig    `yaml:"session"`
	LogLevel        string           `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat       string           `yaml:"log_format" validate:"oneof=console json"`
}

// CloudConfig holds settings for the hosted transcription API.
type CloudConfig struct {
	Endpoint       string        `yaml:"endpoint" validate:"required,url"`
	Model          string        `yaml:"model" validate:"required"`
	ResponseFormat string        `yaml:"response_format" validate:"oneof=json verbose_json"`
	FileName       string        `yaml:"file_name" validate:"required"`
	ContentType    string        `yaml:"content_type" validate:"required"`
	Timeout        time.Duration `yaml:"timeout" validate:"gt=0"`
}

// CredentialConfig selects where the API key lives.
type CredentialConfig struct {
	Store   string `yaml:"store" validate:"oneof=env file"`
	EnvVar  string `yaml:"env_var" validate:"required"`
	EnvFile string `yaml:"env_file"`
	File    string `yaml:"file" validate:"required"`
	KeyFile string `yaml:"key_file" validate:"required"`
}

// OnDeviceConfig holds settings for the local whisper.cpp engine.
type OnDeviceConfig struct {
	ModelPath string `yaml:"model_path" validate:"required"`
	Language  string `yaml:"language"`
	Threads   uint   `yaml:"threads"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate uint32 `yaml:"sample_rate" validate:"gt=0"`
	Channels   uint32 `yaml:"channels" validate:"gt=0"`
	FilePath   string `yaml:"file_path" validate:"required"`
	Device     string `yaml:"device"` // substring of a capture device name; empty = system default
	// MinDuration discards shorter recordings without transcribing them.
	// Zero transcribes every recording.
	MinDuration time.Duration `yaml:"min_duration" validate:"gte=0"`
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Keys []string `yaml:"keys" validate:"min=1,dive,required"`
	Mode string   `yaml:"mode" validate:"oneof=hold toggle"`
}

// InjectConfig holds text insertion settings.
type InjectConfig struct {
	Method string `yaml:"method" validate:"oneof=type paste stdout"`
}

// SessionConfig holds capture session policy.
type SessionConfig struct {
	// ReportCaptureErrors delivers microphone setup failures to the output
	// as "[Error: ...]" instead of only logging them.
	ReportCaptureErrors bool `yaml:"report_capture_errors"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gostt-dictate")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns the directory whisper models are downloaded to.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("models")
	}
	return filepath.Join(home, ".local", "share", "gostt-dictate", "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	dir := DefaultConfigDir()

	return &Config{
		Backend: "cloud",
		Cloud: CloudConfig{
			Endpoint:       "https://api.groq.com/openai/v1/audio/transcriptions",
			Model:          "whisper-large-v3",
			ResponseFormat: "json",
			FileName:       "voice.wav",
			ContentType:    "audio/wav",
			Timeout:        60 * time.Second,
		},
		Credential: CredentialConfig{
			Store:   "env",
			EnvVar:  "GROQ_API_KEY",
			EnvFile: filepath.Join(dir, ".env"),
			File:    filepath.Join(dir, "credential.enc"),
			KeyFile: filepath.Join(dir, "master.key"),
		},
		OnDevice: OnDeviceConfig{
			ModelPath: filepath.Join(DefaultModelsDir(), "ggml-base.en.bin"),
			Language:  "en",
		},
		PermissionsFile: filepath.Join(dir, "permissions.yaml"),
		Audio: AudioConfig{
			SampleRate: 12000,
			Channels:   1,
			FilePath:   filepath.Join(os.TempDir(), "gostt-dictate", "voice_input.wav"),
		},
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "r"},
			Mode: "hold",
		},
		Inject: InjectConfig{
			Method: "type",
		},
		Session: SessionConfig{
			ReportCaptureErrors: true,
		},
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in path fields is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	for _, p := range []*string{
		&cfg.Credential.EnvFile,
		&cfg.Credential.File,
		&cfg.Credential.KeyFile,
		&cfg.OnDevice.ModelPath,
		&cfg.PermissionsFile,
		&cfg.Audio.FilePath,
	} {
		*p = expandTilde(*p)
	}

	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks the config for invalid values. The returned error names
// the offending YAML key, e.g. `hotkey.mode must be one of [hold toggle]`.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return describe(verrs[0])
}

// describe turns a validator failure into a message keyed by YAML path.
func describe(fe validator.FieldError) error {
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}

	switch fe.Tag() {
	case "oneof":
		return fmt.Errorf("%s must be one of [%s], got %q", key, fe.Param(), fmt.Sprint(fe.Value()))
	case "required":
		return fmt.Errorf("%s must not be empty", key)
	case "min":
		return fmt.Errorf("%s must have at least %s entries", key, fe.Param())
	case "gt":
		return fmt.Errorf("%s must be > %s", key, fe.Param())
	case "gte":
		return fmt.Errorf("%s must be >= %s", key, fe.Param())
	case "url":
		return fmt.Errorf("%s must be a URL, got %q", key, fmt.Sprint(fe.Value()))
	default:
		return fmt.Errorf("%s failed %q validation", key, fe.Tag())
	}
}

const defaultHeader = `# gostt-dictate configuration
#
# backend: "cloud" posts recordings to an OpenAI-compatible transcription
# endpoint; "ondevice" runs whisper.cpp locally (run 'gostt-dictate model download').
# The API key is read from the credential store ('gostt-dictate key set').

`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the written path, or "" when a config was
// already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0o644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
