package config

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

type ReloadFn func(previous *LayerConfig, current *LayerConfig)

var reloadListeners = make([]ReloadFn, 0)
var listenersLock = &sync.Mutex{}

// OnReload registers fn to be called after a changed config file has been
// applied.
func OnReload(fn ReloadFn) {
	listenersLock.Lock()
	defer listenersLock.Unlock()
	reloadListeners = append(reloadListeners, fn)
}

func Watch() *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Fatal(err)
	}

	err = watcher.Add(Path)
	if err != nil {
		logrus.Fatal(err)
	}

	go func() {
		debounced := debounce.New(1 * time.Second)
		for {
			select {
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				debounced(onFileChanged)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Error("error in config watcher:", err)
			}
		}
	}()

	return watcher
}

func onFileChanged() {
	logrus.Info("Config file change detected - reloading")
	configNow := Get()
	configNew, err := reloadConfig()
	if err != nil {
		logrus.Error("Error reloading configuration - ignoring")
		logrus.Error(err)
		return
	}

	if configNew.Cache != configNow.Cache {
		logrus.Warn("Cache configuration changed - restart to apply the new capacity")
		configNew.Cache = configNow.Cache
	}
	if configNew.General.LogDirectory != configNow.General.LogDirectory {
		logrus.Warn("Log configuration changed - restart to apply changes")
	}

	logrus.Info("Applying reloaded config live")
	set(configNew)
	notifyReload(configNow, configNew)
}

func notifyReload(previous *LayerConfig, current *LayerConfig) {
	listenersLock.Lock()
	listeners := make([]ReloadFn, len(reloadListeners))
	copy(listeners, reloadListeners)
	listenersLock.Unlock()

	for _, fn := range listeners {
		fn(previous, current)
	}
}
