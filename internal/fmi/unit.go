package fmi

import (
	"errors"
	"fmt"
	"os"
)

// Options controls how a bundle is opened.
type Options struct {
	// WorkDir is the parent of the per-open extract directory; empty means os.TempDir().
	WorkDir string
	// KeepExtracted leaves the extracted files in place after Close.
	KeepExtracted bool
}

// Unit is an opened FMU: its metadata, its extracted files and its bound binary.
type Unit struct {
	Description *ModelDescription
	Dir         string
	Slave       Slave

	keep   bool
	unload func() error
}

// OpenFunc opens a bundle. Open is the production implementation.
type OpenFunc func(bundle string, opts Options) (*Unit, error)

// Open reads the model description, extracts the bundle and loads its binary.
func Open(bundle string, opts Options) (*Unit, error) {
	md, err := ReadModelDescription(bundle)
	if err != nil {
		return nil, err
	}

	dir, err := Extract(bundle, opts.WorkDir)
	if err != nil {
		return nil, err
	}

	slave, unload, err := loadSlave(md, dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to load %s: %w", md.ModelIdentifier, err)
	}

	return &Unit{
		Description: md,
		Dir:         dir,
		Slave:       slave,
		keep:        opts.KeepExtracted,
		unload:      unload,
	}, nil
}

// Close unloads the binary and removes the extract directory. The slave instance
// must already be freed.
func (u *Unit) Close() error {
	var errs []error
	if u.unload != nil {
		if err := u.unload(); err != nil {
			errs = append(errs, fmt.Errorf("failed to unload binary: %w", err))
		}
		u.unload = nil
	}
	if !u.keep && u.Dir != "" {
		if err := os.RemoveAll(u.Dir); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", u.Dir, err))
		}
	}
	return errors.Join(errs...)
}
