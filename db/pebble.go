// Package db holds shared pebble helpers.
package db

import (
	"log"

	"github.com/cockroachdb/pebble/v2"
)

// quietLogger silences info logs, keeps errors.
type quietLogger struct{}

func (quietLogger) Infof(format string, args ...interface{}) {}
func (quietLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[pebble] "+format, args...)
}
func (quietLogger) Fatalf(format string, args ...interface{}) {
	log.Fatalf("[pebble] "+format, args...)
}

// QuietLogger returns a pebble logger that only logs errors.
func QuietLogger() pebble.Logger {
	return quietLogger{}
}

// CacheOptions returns pebble options tuned for the small write-mostly
// RPC response cache.
func CacheOptions() *pebble.Options {
	return &pebble.Options{
		Logger:       QuietLogger(),
		MemTableSize: 16 << 20,
	}
}
