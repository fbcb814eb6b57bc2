//go:build !linux

package telemetry

import "errors"

var errCaptureUnsupported = errors.New("native output capture is only supported on linux")

func redirectStdio(int) (func() error, error) {
	return nil, errCaptureUnsupported
}
