//go:build dev || debug

package logger

import "github.com/rs/zerolog"

// defaultLevel is Debug for development builds, activated via the 'dev' or
// 'debug' build tag.
var defaultLevel = zerolog.DebugLevel
