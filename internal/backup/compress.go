package backup

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// Archive bundles sourceDir into a gzip-compressed tarball named after the
// directory and removes the uncompressed directory. The directory itself is
// the top-level archive entry, so extraction reproduces the original name.
func Archive(sourceDir string) (string, error) {
	archivePath := sourceDir + ".tar.gz"

	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("create archive %q: %w", archivePath, err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	base := filepath.Base(sourceDir)
	err = filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(base, rel))
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("archive %q: %w", sourceDir, err)
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("finalize tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("finalize gzip stream: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close archive %q: %w", archivePath, err)
	}

	if err := os.RemoveAll(sourceDir); err != nil {
		return "", fmt.Errorf("remove source directory %q: %w", sourceDir, err)
	}
	return archivePath, nil
}
