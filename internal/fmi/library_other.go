//go:build !linux && !darwin

package fmi

import (
	"fmt"
	"runtime"
)

func loadSlave(md *ModelDescription, dir string) (Slave, func() error, error) {
	return nil, nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
}
