// Package config defines the recall-cli configuration.
//
// The configuration lives in ~/.recall/cli.yaml and is layered by
// confloader: defaults, then the file, then RECALL_* environment
// variables, then explicitly set flags.
package config
