// Package app contains the core application logic. It wires plan loading,
// graph validation, scheduling and execution into one lifecycle, decoupled
// from any specific entrypoint like a CLI.
package app
