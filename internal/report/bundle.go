package report

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BundleName is the zip name used when a fetch produced several PDFs.
func BundleName(date string) string {
	return fmt.Sprintf("cause_lists_%s.zip", SafeName(date))
}

// Tagged appends _<tag> to name before its extension.
func Tagged(name, tag string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + SafeName(tag) + ext
}

// Bundle zips files into dir/name, storing each under its base name.
func Bundle(dir, name string, files []string) (_ string, err error) {
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create zip: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close zip: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	zw := zip.NewWriter(out)
	for _, f := range files {
		if err := addFile(zw, f); err != nil {
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish zip: %w", err)
	}
	return path, nil
}

func addFile(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	w, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", path, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to add %s: %w", path, err)
	}
	return nil
}
