// Package file provides the file-based configuration store.
//
// The tap configuration is read from a JSON or TOML file, chosen by
// extension. A .env file in the same directory and the process environment
// may override credentials so they need not be written into the config file.
package file
