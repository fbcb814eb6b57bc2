package fmi

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Extract unpacks an FMU archive into a fresh directory under parentDir (the system
// temp dir when empty) and returns its absolute path. Every call gets its own directory.
func Extract(bundle, parentDir string) (string, error) {
	zr, err := zip.OpenReader(bundle)
	if err != nil {
		return "", fmt.Errorf("failed to open fmu %s: %w", bundle, err)
	}
	defer zr.Close()

	if parentDir != "" {
		if err := os.MkdirAll(parentDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", parentDir, err)
		}
	}
	dir, err := os.MkdirTemp(parentDir, "fmu-*")
	if err != nil {
		return "", fmt.Errorf("failed to create extract directory: %w", err)
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for _, f := range zr.File {
		if err := extractFile(f, dir); err != nil {
			os.RemoveAll(dir)
			return "", err
		}
	}
	return dir, nil
}

func extractFile(f *zip.File, dir string) error {
	target := filepath.Join(dir, filepath.FromSlash(f.Name))
	if target != dir && !strings.HasPrefix(target, dir+string(os.PathSeparator)) {
		return fmt.Errorf("illegal path in fmu archive: %s", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return out.Close()
}
