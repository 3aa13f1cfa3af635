package models

import "time"

// Config contains configuration for a branch comparison run
type Config struct {
	// Branches to compare
	FirstBranch  string
	SecondBranch string

	// Comparison
	Arch        string // Restrict fetch and diff to one architecture, empty for all
	KeyMode     string // Identity key: "name" or "symbol"
	Relation    string // Version relation reported in newer_in_first: gt, lt, eq, ge, le, ne
	SymbolField string // Package field holding the needed symbol in "symbol" mode

	// Cache
	CacheDir      string
	TTL           time.Duration
	Force         bool   // Bypass cache validity and refetch
	StaleFallback bool   // Serve a stale entry when the refetch fails
	Compression   string // Cache payload codec: gzip, xz, none

	// Remote
	APIURL  string
	Timeout time.Duration
	Retries int

	// Output
	OutputPath    string
	GPGKeyPath    string
	GPGPassphrase string
}
