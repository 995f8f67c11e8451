// Package secure provides memory-safe handling of masked credentials.
//
// Values typed at a masked prompt (passwords, JWTs, Vault tokens) are sealed
// into memguard enclaves as soon as Enter is pressed and are only decrypted
// when the login request body is built:
//
//	buf, err := secure.NewSecureBuffer(typed)
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	password, err := buf.Reveal()
//
// The encrypted enclave keeps plaintext out of core dumps and swap. It does
// NOT protect against an attacker with access to the running process.
package secure
