package history

// Store defines the interface for run-history and preset persistence.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type Store interface {
	AppendRun(rec RunRecord) (int64, error)
	ListRuns() ([]RunRecord, error)
	FindRunByBatchHash(hash string) (*RunRecord, error)
	ClearRuns() error
	KnownNoteHashes() (map[string]struct{}, error)

	SavePreset(kind, name, optionsJSON string) error
	GetPreset(kind, name string) (string, error)
	ListPresets(kind string) ([]Preset, error)
	DeletePreset(kind, name string) error

	GetSetting(key string) (string, error)
	SetSetting(key, value string) error

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
