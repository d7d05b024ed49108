// Package log provides synthlog's structured logging facade and utilities.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. Internally it is backed by Go's
// standard library slog via a custom handler that routes records through a
// formatter and a set of outputs, so every component produces the same shape
// of output regardless of where it was constructed.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("logstore"), log.Session("s-1"))
//	l.Info("chunk sealed", log.Int("chunk", 3))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config, supporting JSON
// or text formatting and multiple outputs (console, file, null). Redaction and
// sampling are applied in the slog handler.
//
// # Interop
//
// Libraries expecting *log.Logger can use ToStdLogger; RedirectStdLog sends
// the process-wide standard logger through a Logger.
package log
