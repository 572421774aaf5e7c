//go:build !linux

package capture

import (
	"fmt"
	"log/slog"
)

func newALSASource(_ Config, _ *slog.Logger) (Source, error) {
	return nil, fmt.Errorf("%w: ALSA is only available on Linux", ErrMediaAccess)
}
