// Package models defines the domain types for Raido.
package models

import "time"

// ParsedNote is the structured form of one Google Keep export document.
// It is produced fresh per parse and never mutated afterwards.
type ParsedNote struct {
	// Title is the trimmed note title; empty string means the note has none.
	Title string `json:"title,omitempty"`
	// CreationTime is parsed from the note's creation heading, or set to
	// the parse time when the heading is missing or unreadable. It is
	// always a valid timestamp.
	CreationTime time.Time `json:"creation_time"`
	// Tags holds the note labels in source order.
	Tags []string `json:"tags,omitempty"`
	// Content is the note body already converted to Markdown.
	Content string `json:"content"`
	// Attachments holds raw attachment references (image src values)
	// exactly as found in the source, in source order.
	Attachments []string `json:"attachments,omitempty"`
}

// SourceFile is one selected export document. Data is read once and shared
// between duplicate detection and conversion; Hash is the SHA-256 content
// fingerprint of Data.
type SourceFile struct {
	Path string `json:"path"`
	Data []byte `json:"-"`
	Hash string `json:"hash"`
}

// ConvertedFile is one conversion output.
type ConvertedFile struct {
	OriginalPath string `json:"originalPath"`
	NewPath      string `json:"newPath"`
	Content      string `json:"content"`
}
