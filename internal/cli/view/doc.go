// Package view turns backend results into the tables recall-cli prints.
//
// Each function returns an output.Tabler; json and yaml output bypass it
// and encode the raw result instead.
package view
