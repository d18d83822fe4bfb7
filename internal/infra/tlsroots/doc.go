// Package tlsroots builds the trusted root set of the backend client.
//
// The system pool is the base; a PEM bundle named by backend.ca_file is
// added on top for self-hosted backends behind a private CA.
package tlsroots
