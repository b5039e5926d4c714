// Package config defines configuration structures for the downer CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (DOWNER_ prefix)
//   - YAML configuration file
//
// Sizes (rate_limit, buffer_size) accept human-readable byte strings such
// as "1MB"; timeout accepts Go duration strings such as "30s".
package config
