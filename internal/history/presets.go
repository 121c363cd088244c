package history

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
)

// Preset kinds.
const (
	PresetNaming     = "naming"
	PresetFormatting = "formatting"
)

// Settings keys for the last-selected preset pointers.
const (
	SettingLastNamingPreset     = "last_naming_preset"
	SettingLastFormattingPreset = "last_formatting_preset"
)

// Preset is a named, saved options configuration. Options is the JSON
// encoding of either NamingOptions or FormattingOptions depending on Kind.
type Preset struct {
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Options string `json:"options"`
}

// SavePreset inserts or replaces a preset.
func (db *DB) SavePreset(kind, name, optionsJSON string) error {
	_, err := db.conn.Exec(`
		INSERT INTO presets (kind, name, options) VALUES (?, ?, ?)
		ON CONFLICT(kind, name) DO UPDATE SET options = excluded.options
	`, kind, name, optionsJSON)
	if err != nil {
		return fmt.Errorf("history: save preset: %w", err)
	}
	return nil
}

// GetPreset returns the options JSON for a preset, or apperr.ErrNotFound.
func (db *DB) GetPreset(kind, name string) (string, error) {
	var options string
	err := db.conn.QueryRow(`SELECT options FROM presets WHERE kind = ? AND name = ?`, kind, name).Scan(&options)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("history: get preset: %w", err)
	}
	return options, nil
}

// ListPresets returns all presets of a kind, sorted by name.
func (db *DB) ListPresets(kind string) ([]Preset, error) {
	rows, err := db.conn.Query(`SELECT kind, name, options FROM presets WHERE kind = ? ORDER BY name`, kind)
	if err != nil {
		return nil, fmt.Errorf("history: list presets: %w", err)
	}
	defer rows.Close()

	var out []Preset
	for rows.Next() {
		var p Preset
		if err := rows.Scan(&p.Kind, &p.Name, &p.Options); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePreset removes a preset and, when it was the last selected one,
// clears the pointer to it.
func (db *DB) DeletePreset(kind, name string) error {
	res, err := db.conn.Exec(`DELETE FROM presets WHERE kind = ? AND name = ?`, kind, name)
	if err != nil {
		return fmt.Errorf("history: delete preset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}

	key := SettingLastNamingPreset
	if kind == PresetFormatting {
		key = SettingLastFormattingPreset
	}
	if current, err := db.GetSetting(key); err == nil && current == name {
		_, _ = db.conn.Exec(`DELETE FROM settings WHERE key = ?`, key)
	}
	return nil
}

// GetSetting reads one settings value, or apperr.ErrNotFound.
func (db *DB) GetSetting(key string) (string, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("history: get setting: %w", err)
	}
	return value, nil
}

// SetSetting writes one settings value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("history: set setting: %w", err)
	}
	return nil
}
