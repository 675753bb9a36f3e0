package config

import "path/filepath"

// Directories the gateway owns live under home (~/.canvas or CANVAS_HOME).

// Home returns the canvas root directory (ResolveHome()).
func Home() string {
	return ResolveHome()
}

// DataDir returns home/data.
func DataDir() string {
	return filepath.Join(Home(), "data")
}

// StoreDir is the default directory for the file-backed canvas store.
func StoreDir() string {
	return filepath.Join(DataDir(), "store")
}

// EnvFiles lists the .env files read at startup, most specific first.
func EnvFiles() []string {
	return []string{".env", filepath.Join(Home(), ".env")}
}
