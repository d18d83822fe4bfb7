// Package storage provides the embedded key-value engine for recall.
//
// The CLI keeps one session and one settings record on disk. Badger holds
// them under ~/.recall/data; every multi-key change goes through Write so a
// token pair is never observed half replaced.
//
// The memory subpackage provides a map-backed engine used for --ephemeral
// runs and tests.
package storage
