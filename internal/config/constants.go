package config

// Default paths for databases
const (
	// DefaultDatabasePath holds the invocation audit log and the ingest ledger.
	// The calibre library itself is never stored here.
	DefaultDatabasePath = "./calibre-bridge.db"
)
