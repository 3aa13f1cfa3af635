package signer

// Signer signs comparison reports
type Signer interface {
	// SignReport creates an armored detached signature of the report
	// contents, labelled with the report file name
	SignReport(name string, data []byte) ([]byte, error)

	// PublicKey returns the armored public key verifying the signatures
	PublicKey() ([]byte, error)

	// KeyID names the signing key in logs
	KeyID() string
}
