package domain

// MessageCodec is the encrypt/decrypt boundary for chat text. The ledger
// stores only ciphertext; readers decrypt on the way out.
type MessageCodec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
