package config

import "reflect"

// ConfigDiff describes what changed between two configs. Log level, catalog
// files, and normalizer tuning can be hot-reloaded; provider, storage, and
// server changes need a restart and are only reported.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// CatalogChanged is true when any catalog override path changed.
	CatalogChanged bool

	// NormalizerChanged is true when the normalizer tuning changed.
	NormalizerChanged bool

	// RestartRequired is true when providers, storage, or server settings
	// other than the log level changed.
	RestartRequired bool
}

// Changed reports whether the diff carries any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.CatalogChanged || d.NormalizerChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Catalog != new.Catalog {
		d.CatalogChanged = true
	}
	if old.Normalizer != new.Normalizer {
		d.NormalizerChanged = true
	}

	oldServer, newServer := old.Server, new.Server
	oldServer.LogLevel, newServer.LogLevel = "", ""
	if !reflect.DeepEqual(oldServer, newServer) {
		d.RestartRequired = true
	}
	if !reflect.DeepEqual(old.Providers, new.Providers) {
		d.RestartRequired = true
	}
	if old.Storage != new.Storage {
		d.RestartRequired = true
	}

	return d
}
