package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/turtlesh/core/vos"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	RecordingsDirName = "recordings"
)

type Configuration struct {
	configFs afero.Fs

	Prompt             string     `json:"prompt"`
	RelayBuffer        int        `json:"relay_buffer" validate:"gte=1,lte=4096"`
	EventLog           string     `json:"event_log"`
	InheritEnvironment bool       `json:"inherit_environment"`
	Variables          []Variable `json:"variables" validate:"dive"`
}

type Variable struct {
	Name  string `json:"name" validate:"required,shellname"`
	Value string `json:"value"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})
	if err := validate.RegisterValidation("shellname", func(fl validator.FieldLevel) bool {
		return vos.IsName(fl.Field().String())
	}); err != nil {
		return err
	}

	return validate.Struct(c)
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewOsFs()
	}
	return c.configFs
}

// OpenEventLog opens the event log in an append only state, it returns nil
// if the log is disabled.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, nil
	}
	return c.fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	if c.EventLog == "" {
		return nil, fmt.Errorf("no event_log configured")
	}
	return c.fs().OpenFile(c.EventLog, os.O_RDONLY, 0600)
}

// CreateRecording creates a session recording with the given name.
func (c *Configuration) CreateRecording(name string) (afero.File, error) {
	if err := c.fs().MkdirAll(RecordingsDirName, 0700); err != nil {
		return nil, err
	}
	return c.fs().Create(filepath.Join(RecordingsDirName, name))
}

// NewEnv creates the environment for a session and applies the configured
// variables to it.
func (c *Configuration) NewEnv() (*vos.Env, error) {
	env, err := vos.NewOSEnv()
	if err != nil {
		return nil, err
	}

	if !c.InheritEnvironment {
		keep := make(map[string]string)
		for _, name := range []string{vos.EnvHome, vos.EnvPWD, vos.EnvPath} {
			keep[name] = env.Getenv(name)
		}
		env.Clearenv()
		for _, name := range []string{vos.EnvHome, vos.EnvPWD, vos.EnvPath} {
			env.Setenv(name, keep[name])
		}
	}

	c.Apply(env)
	return env, nil
}

// Apply sets the configured variables in order, values are substituted
// against the environment as it is built up.
func (c *Configuration) Apply(env *vos.Env) {
	for _, v := range c.Variables {
		env.Setenv(v.Name, env.Substitute(v.Value))
	}
}

func parse(data []byte) (*Configuration, error) {
	var out Configuration
	if err := yaml.UnmarshalStrict(data, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Default returns the built-in configuration, relative paths resolve against
// the working directory.
func Default() *Configuration {
	out, err := parse(defaultConfigData)
	if err != nil {
		panic(err)
	}
	return out
}
