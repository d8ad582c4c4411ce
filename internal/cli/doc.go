// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It layers
// explicitly set flags over the project config file and hands the app a
// fully resolved configuration.
package cli
