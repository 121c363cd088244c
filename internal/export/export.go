// Package export materializes converted files, either into a vault
// directory or as a zip archive for download.
package export

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
)

// ToVault writes every converted file into the vault. Files are written
// one by one; the first failure aborts and reports which file broke.
func ToVault(vault storage.Vault, files []models.ConvertedFile) error {
	for _, f := range files {
		if err := vault.Write(f.NewPath, []byte(f.Content)); err != nil {
			return fmt.Errorf("export: write %s: %w", f.NewPath, err)
		}
	}
	return nil
}

// ToZip streams a zip archive of the converted files to w. Entry names
// are the output filenames; original paths are not part of the archive.
func ToZip(w io.Writer, files []models.ConvertedFile) error {
	zw := zip.NewWriter(w)
	for _, f := range files {
		entry, err := zw.Create(f.NewPath)
		if err != nil {
			return fmt.Errorf("export: zip entry %s: %w", f.NewPath, err)
		}
		if _, err := entry.Write([]byte(f.Content)); err != nil {
			return fmt.Errorf("export: zip write %s: %w", f.NewPath, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("export: close zip: %w", err)
	}
	return nil
}
