package config

import (
	"fmt"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var Path = "lespas.yaml"

var instance *LayerConfig
var singletonLock = &sync.Once{}
var instanceLock = &sync.RWMutex{}

func reloadConfig() (*LayerConfig, error) {
	c := NewDefaultConfig()

	// Write a default config if the one given doesn't exist
	info, err := os.Stat(Path)
	exists := err == nil || !os.IsNotExist(err)
	if !exists {
		fmt.Println("Generating new configuration...")
		configBytes, err := yaml.Marshal(c)
		if err != nil {
			return nil, err
		}
		if err = os.WriteFile(Path, configBytes, 0644); err != nil {
			return nil, err
		}
	}

	info, err = os.Stat(Path)
	if err != nil {
		return nil, err
	}

	pathsOrdered := make([]string, 0)
	if info.IsDir() {
		logrus.Info("Config is a directory - loading all files over top of each other")

		files, err := os.ReadDir(Path)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			pathsOrdered = append(pathsOrdered, path.Join(Path, f.Name()))
		}
		sort.Strings(pathsOrdered)
	} else {
		pathsOrdered = append(pathsOrdered, Path)
	}

	for _, p := range pathsOrdered {
		logrus.Info("Loading config file: ", p)
		buffer, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(buffer, &c); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

func Get() *LayerConfig {
	instanceLock.RLock()
	c := instance
	instanceLock.RUnlock()
	if c != nil {
		return c
	}

	singletonLock.Do(func() {
		c, err := reloadConfig()
		if err != nil {
			logrus.Fatal(err)
		}
		set(c)
	})

	instanceLock.RLock()
	defer instanceLock.RUnlock()
	return instance
}

// Load switches the config location to p and reads it immediately.
func Load(p string) (*LayerConfig, error) {
	Path = p
	c, err := reloadConfig()
	if err != nil {
		return nil, err
	}
	singletonLock.Do(func() {})
	set(c)
	return c, nil
}

// Parse reads a single config document over the defaults without touching
// the global instance.
func Parse(b []byte) (*LayerConfig, error) {
	c := NewDefaultConfig()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SetForTesting replaces the global config.
func SetForTesting(c *LayerConfig) {
	singletonLock.Do(func() {})
	set(c)
}

func set(c *LayerConfig) {
	instanceLock.Lock()
	instance = c
	instanceLock.Unlock()
}
