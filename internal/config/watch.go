package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher receives configuration reloads. OnChange gets the newly
// validated config; OnError gets the reason a reload was rejected, in
// which case the previous config stays in effect.
type Watcher struct {
	OnChange func(*Config)
	OnError  func(error)
}

// Watch starts watching the config file viper was loaded from and reports
// each write through w. Only settings that are safe to change at runtime
// (such as logging.level) should be applied by the callbacks.
func Watch(w Watcher) {
	viper.OnConfigChange(w.handle)
	viper.WatchConfig()
}

func (w Watcher) handle(e fsnotify.Event) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}
	cfg, err := Load()
	if err != nil {
		if w.OnError != nil {
			w.OnError(err)
		}
		return
	}
	if w.OnChange != nil {
		w.OnChange(cfg)
	}
}
