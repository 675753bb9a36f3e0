package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const reloadDebounce = 200 * time.Millisecond

// Watch hot-reloads the config file until ctx is done. Run in a goroutine.
// Views mounted after a reload use the new origin lists; live views keep theirs.
func Watch(ctx context.Context, path string) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		slog.Warn("config watch initial read failed", "path", path, "error", err)
		return
	}

	var debounce *time.Timer
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		if filepath.Clean(e.Name) != filepath.Clean(path) {
			return
		}
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(reloadDebounce, func() { Reload(path) })
	})
	v.WatchConfig()

	<-ctx.Done()
}

// Reload loads path, swaps it in and notifies the reload callbacks. It returns the
// settings that changed. Settings read only at startup are reported but need a restart.
func Reload(path string) ([]string, error) {
	cfg, err := Load(path)
	if err != nil {
		slog.Warn("config hot-reload load failed", "path", path, "error", err)
		return nil, err
	}
	changed := Diff(Get(), cfg)
	if len(changed) == 0 {
		slog.Debug("config file touched, nothing changed", "path", path)
		return nil, nil
	}

	Set(cfg)
	notifyReload(cfg)

	var live, restart []string
	for _, key := range changed {
		if slices.Contains(restartOnly, key) {
			restart = append(restart, key)
		} else {
			live = append(live, key)
		}
	}
	slog.Info("config hot-reloaded", "path", path, "mode", cfg.Mode,
		"changed", live, "allowedOrigins", cfg.AllowedOrigins())
	if len(restart) > 0 {
		slog.Warn("config changes need a restart to take effect", "settings", restart)
	}
	return changed, nil
}

// Settings wired into long-lived components at startup.
var restartOnly = []string{"gateway.port", "store", "context", "llm", "pdf", "log.level"}

// Diff names the settings that differ between old and next. A nil old reports everything.
func Diff(old, next *Config) []string {
	if old == nil {
		old = &Config{}
	}
	var changed []string
	add := func(key string, differs bool) {
		if differs {
			changed = append(changed, key)
		}
	}
	add("mode", old.Mode != next.Mode)
	add("origins.development", !slices.Equal(old.Origins.Development, next.Origins.Development))
	add("origins.production", !slices.Equal(old.Origins.Production, next.Origins.Production))
	add("parentAppURL", old.ParentAppURL != next.ParentAppURL)
	add("replyTargetOrigin", old.ReplyTargetOrigin != next.ReplyTargetOrigin)
	add("gateway.auth.token", old.Gateway.Auth.Token != next.Gateway.Auth.Token)
	add("gateway.port", old.Gateway.Port != next.Gateway.Port)
	add("store", old.Store != next.Store)
	add("context", old.Context != next.Context)
	add("llm", old.LLM.APIKey != next.LLM.APIKey || old.LLM.BaseURL != next.LLM.BaseURL ||
		old.LLM.Model != next.LLM.Model || !slices.Equal(old.LLM.Fallbacks, next.LLM.Fallbacks))
	add("pdf", old.PDF != next.PDF)
	add("log.level", old.Log.Level != next.Log.Level)
	return changed
}
