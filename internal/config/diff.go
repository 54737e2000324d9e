package config

import (
	"reflect"
	"time"
)

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ThrottleChanged     bool
	NewThrottleInterval time.Duration

	// RestartRequired lists the changed sections that a running process
	// cannot pick up, such as "run.batch" or "providers".
	RestartRequired []string
}

// Changed reports whether any hot-reloadable field differs.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.ThrottleChanged
}

// Diff compares old and new configs. Only the log level and the throttle
// interval apply to a running pipeline; every other change is reported in
// RestartRequired.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Run.ThrottleInterval != new.Run.ThrottleInterval {
		d.ThrottleChanged = true
		d.NewThrottleInterval = new.Run.ThrottleInterval
	}

	oldServer, newServer := old.Server, new.Server
	oldServer.LogLevel, newServer.LogLevel = "", ""
	if oldServer != newServer {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	oldRun, newRun := old.Run, new.Run
	oldRun.ThrottleInterval, newRun.ThrottleInterval = 0, 0
	oldRun.Batch, newRun.Batch = BatchConfig{}, BatchConfig{}
	if !reflect.DeepEqual(oldRun, newRun) {
		d.RestartRequired = append(d.RestartRequired, "run")
	}
	if old.Run.Batch != new.Run.Batch {
		d.RestartRequired = append(d.RestartRequired, "run.batch")
	}
	if !reflect.DeepEqual(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	return d
}
