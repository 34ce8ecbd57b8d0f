package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch loads the configuration and keeps watching the config file.
// onChange is called with the re-validated configuration after every write
// to the file; an edit that fails validation is logged and ignored.
// If no config file was found, the initial configuration is returned and
// nothing is watched.
func Watch(configPath string, onChange func(*Config)) (*Config, error) {
	v, err := read(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if v.ConfigFileUsed() == "" {
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		updated, err := decode(v)
		if err != nil {
			log.Warn().Err(err).Str("file", e.Name).Msg("ignoring invalid config change")
			return
		}

		log.Info().Str("file", e.Name).Msg("config file changed")
		onChange(updated)
	})
	v.WatchConfig()

	return cfg, nil
}
