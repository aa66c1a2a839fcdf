// Package logger configures the application's structured logger and offers
// helpers for capturing log output in tests.
package logger
