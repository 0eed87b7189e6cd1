package coordinator

import (
	"fmt"

	"go.uber.org/zap"
)

// NewZapEvHandler adapts a zap.SugaredLogger into the EvHandler signature
// every constructor in this module accepts, so callers get structured
// logging without the core packages importing zap themselves.
func NewZapEvHandler(log *zap.SugaredLogger) EvHandler {
	return func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}
}
