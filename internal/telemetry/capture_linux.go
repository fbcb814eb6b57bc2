//go:build linux

package telemetry

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// redirectStdio points fd 1 and 2 at target so output written by native code
// (printf from a loaded FMU) lands in the session log. The returned func
// restores the original descriptors.
func redirectStdio(target int) (func() error, error) {
	saved := make([]int, 0, 2)
	restore := func() error {
		var errs []error
		for i, fd := range saved {
			errs = append(errs, unix.Dup3(fd, i+1, 0), unix.Close(fd))
		}
		return errors.Join(errs...)
	}

	for _, fd := range []int{unix.Stdout, unix.Stderr} {
		dup, err := unix.Dup(fd)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("dup fd %d: %w", fd, err), restore())
		}
		saved = append(saved, dup)
		if err := unix.Dup3(target, fd, 0); err != nil {
			return nil, errors.Join(fmt.Errorf("redirect fd %d: %w", fd, err), restore())
		}
	}
	return restore, nil
}
