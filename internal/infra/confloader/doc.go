// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults supplied by the caller (LoadMap)
//  2. A YAML file
//  3. Environment variables with the RECALL_ prefix
//  4. Explicitly set command-line flags (LoadMap)
//
// Watcher reports writes to a config file so long-running processes can
// re-apply settings such as the log level.
package confloader
