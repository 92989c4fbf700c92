// Package logx wraps zerolog behind a tiny structured-logging API.
//
// The Service owns the sinks (console, file) and can swap them at runtime
// via Apply(); Loggers handed out by the Service stay live across swaps.
package logx
