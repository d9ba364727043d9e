// Package config loads qsync connection profiles, named queries and defaults
// from YAML files and QSYNC_ environment variables. It is internal; CLI code
// maps flags and files into engine configuration.
package config
