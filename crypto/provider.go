package crypto

// CryptoProvider is the narrow crypto interface the CLI's key-handling
// and transaction-hashing code is written against. DevStdCryptoProvider
// is the only implementation in this tree; a FIPS/HSM-backed provider
// would satisfy the same interface without CLI callers changing.
type CryptoProvider interface {
	SHA3_256(input []byte) ([32]byte, error)
	VerifyMLDSA87(pubkey []byte, sig []byte, digest32 [32]byte) bool
	VerifySLHDSASHAKE_256f(pubkey []byte, sig []byte, digest32 [32]byte) bool
}
