// Package memory provides an in-process implementation of storage.KV.
//
// It keeps every key in a single map guarded by one RWMutex, so Write is
// atomic with respect to concurrent readers. Nothing survives the process.
package memory
