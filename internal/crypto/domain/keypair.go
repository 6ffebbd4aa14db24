package domain

// Keypair is an X25519 keypair used for key exchange.
//
// The private key exists only on a client. It is never transmitted to the
// server and never logged; callers must Zero it when done.
type Keypair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// Zero clears the private key material. The public key is not sensitive.
func (k *Keypair) Zero() {
	Zero(k.PrivateKey)
}
