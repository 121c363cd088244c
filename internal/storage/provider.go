// Package storage defines the file-system abstraction for the Keep
// export directory and the Obsidian vault output directory.
package storage

// Source lists and reads Keep HTML export files.
type Source interface {
	// List returns the relative paths of every .html file under dir
	// (relative to the source root), sorted lexically.
	List(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
}

// Vault writes converted Markdown files into the output directory.
type Vault interface {
	// Write atomically writes content to path (relative to the vault root).
	Write(path string, content []byte) error
}
