// Package config defines the runtime configuration model for the
// application: the settings every run needs, their defaults, and the
// project-level queryplan.toml files that override them. Flag handling
// lives in the cli package; this package only knows about values and
// where they come from on disk.
package config
