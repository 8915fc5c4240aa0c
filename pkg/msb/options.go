package msb

import (
	"log/slog"

	"github.com/me/msbkit/internal/logging"
)

// Options carries per-call settings through the MSB machinery.
type Options struct {
	// Logger receives diagnostics; nil discards them.
	Logger *slog.Logger
	// Debug logs every built iterator tree and emitted observation.
	Debug bool
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return logging.Discard()
	}
	return o.Logger
}
