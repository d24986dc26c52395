//go:build !go1.22

package main

import "log/slog"

// slog.SetLogLoggerLevel does not exist before Go 1.22; the bridge level
// for the default log package stays at its default there.
func setLogLoggerLevel(slog.Level) {}
