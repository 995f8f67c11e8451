package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrEmpty is returned when sealing a zero-length value.
var ErrEmpty = errors.New("secure: refusing to seal an empty value")

// ErrDestroyed is returned when a destroyed buffer is read.
var ErrDestroyed = errors.New("secure: buffer has been destroyed")

// SecureBuffer provides memory-safe storage for a masked credential.
// It wraps memguard.Enclave so the value is encrypted at rest in memory
// between the prompt that captured it and the login that consumes it.
type SecureBuffer struct {
	enclave   *memguard.Enclave
	mu        sync.RWMutex
	destroyed bool
}

// NewSecureBuffer seals data into an encrypted enclave. memguard wipes
// data once it has been copied, so callers must not reuse the slice.
func NewSecureBuffer(data []byte) (*SecureBuffer, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	return &SecureBuffer{
		enclave: memguard.NewEnclave(data),
	}, nil
}

// Open decrypts and returns the protected data in a locked buffer.
// The caller MUST call Destroy() on the returned LockedBuffer when done.
func (s *SecureBuffer) Open() (*memguard.LockedBuffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}

	return s.enclave.Open()
}

// Reveal returns a plain string copy of the value. The copy lives in
// ordinary Go memory, so it should only be built right before it is sent.
func (s *SecureBuffer) Reveal() (string, error) {
	locked, err := s.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()

	return string(locked.Bytes()), nil
}

// Size returns the length of the sealed value, or zero once destroyed.
func (s *SecureBuffer) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return 0
	}
	return s.enclave.Size()
}

// Destroy marks this SecureBuffer as destroyed and prevents further use.
// It is idempotent. Call memguard.Purge() at exit for a full wipe.
func (s *SecureBuffer) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}

	s.enclave = nil
	s.destroyed = true
}

// String keeps the sealed value out of accidental %s and %v formatting.
func (s *SecureBuffer) String() string {
	return "[REDACTED]"
}
