package config

import (
	"errors"
	"fmt"
	"io/fs"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	configContents, err := ioutil.ReadFile(filepath.Join(path, ConfigurationName))
	if err != nil {
		return nil, err
	}

	out, err := parse(configContents)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(path, ConfigurationName), err)
	}
	out.configFs = afero.NewBasePathFs(afero.NewOsFs(), path)
	return out, nil
}

// Initialize creates a configuration directory with the default
// configuration, an existing configuration is left alone.
func Initialize(dir string, logger *log.Logger) error {
	logger.Printf("Initializing %q\n", dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	switch _, err := os.Stat(configPath); {
	case err == nil:
		logger.Printf("- %s exists, skipping\n", configPath)
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("- writing %s\n", configPath)
		if err := ioutil.WriteFile(configPath, defaultConfigData, 0600); err != nil {
			return err
		}
	default:
		return err
	}

	recordings := filepath.Join(dir, RecordingsDirName)
	logger.Printf("- creating %s\n", recordings)
	return os.MkdirAll(recordings, 0700)
}
