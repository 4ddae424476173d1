package core

// Config selects the ledger's backing database.
type Config struct {
	// DataDir holds the LevelDB database. Empty keeps everything in memory.
	DataDir string `toml:",omitempty"`

	// Cache is the LevelDB cache size in megabytes.
	Cache int `toml:",omitempty"`

	// Handles is the number of open file handles LevelDB may use.
	Handles int `toml:",omitempty"`
}

// DefaultConfig is an in-memory ledger.
var DefaultConfig = Config{
	Cache:   16,
	Handles: 16,
}
