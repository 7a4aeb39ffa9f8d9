// Package logx wraps zerolog behind a small, stable logging API.
//
// The indirection exists so the rest of the codebase never imports zerolog
// directly: call sites use Logger plus Field helpers (String, Int64, Err, ...)
// and the Service can hot-swap sinks and levels when the config file changes.
package logx
