// Package adaptive provides authenticated encryption for values the CLI
// keeps at rest.
//
// Supported Algorithms:
//
//   - AES-256-GCM: selected where Go's AES is hardware accelerated
//   - ChaCha20-Poly1305: selected elsewhere
//
// Sealer layers an HKDF-SHA256 key derivation and a text encoding on top,
// which is what the credential store uses for tokens:
//
//	s, err := adaptive.NewSealer(master, "recall credential store v1")
//	v, err := s.Seal("token", accessToken)
//	tok, err := s.Open("token", v)
package adaptive
