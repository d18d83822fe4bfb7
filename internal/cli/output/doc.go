// Package output renders command results for recall-cli.
//
// Results are written as a table (the default), JSON or YAML. Types that
// know their own tabular form implement Tabler; everything else is laid out
// by reflection over exported fields.
package output
