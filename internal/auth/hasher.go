// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Audio-Draft Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Supported hashing algorithms.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// DefaultBcryptCost is used when no cost is configured.
const DefaultBcryptCost = 12

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code(CodeInvalidInput).
	With("field", "password").
	Wrapf(ErrInvalidInput, "password cannot be empty")

// PasswordHasher is the hashing strategy used by the Authenticator.
// Implementations must salt every call and embed the salt and cost in the
// returned digest so Verify needs nothing else.
type PasswordHasher interface {
	// Hash produces a salted digest of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the digest in constant time.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid digest.
	Verify(password, digest string) (bool, error)
}

// NewPasswordHasher returns a hasher that hashes with the named algorithm and
// verifies digests of either supported algorithm.
func NewPasswordHasher(algorithm string, bcryptCost int) (PasswordHasher, error) {
	var primary PasswordHasher
	switch strings.ToLower(algorithm) {
	case "", AlgorithmBcrypt:
		h, err := NewBcryptHasher(bcryptCost)
		if err != nil {
			return nil, err
		}
		primary = h
	case AlgorithmArgon2id:
		primary = NewArgon2idHasher()
	default:
		return nil, oops.Code("AUTH_UNKNOWN_HASH_ALGORITHM").
			With("algorithm", algorithm).
			Errorf("unsupported hash algorithm %q", algorithm)
	}
	return NewMigratingHasher(primary), nil
}

// MigratingHasher hashes new passwords with its primary hasher and verifies
// stored digests with the hasher their prefix names, so accounts created
// under a previous algorithm keep logging in after the algorithm changes.
type MigratingHasher struct {
	primary PasswordHasher
	bcrypt  *BcryptHasher
	argon2  *Argon2idHasher
}

// NewMigratingHasher wraps primary. Bcrypt verification does not depend on
// the configured cost, which is read from the digest.
func NewMigratingHasher(primary PasswordHasher) *MigratingHasher {
	return &MigratingHasher{
		primary: primary,
		bcrypt:  &BcryptHasher{cost: DefaultBcryptCost},
		argon2:  NewArgon2idHasher(),
	}
}

// Primary returns the hasher new digests are produced with.
func (h *MigratingHasher) Primary() PasswordHasher {
	return h.primary
}

// Hash produces a digest with the primary hasher.
func (h *MigratingHasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

// Verify dispatches on the digest prefix: $2a$, $2b$ and $2y$ are bcrypt,
// $argon2id$ is argon2id.
func (h *MigratingHasher) Verify(password, digest string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, "$2a$"),
		strings.HasPrefix(digest, "$2b$"),
		strings.HasPrefix(digest, "$2y$"):
		return h.bcrypt.Verify(password, digest)
	case strings.HasPrefix(digest, "$"+AlgorithmArgon2id+"$"):
		return h.argon2.Verify(password, digest)
	default:
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unrecognized digest format")
	}
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. A zero cost selects DefaultBcryptCost.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_INVALID_HASH_COST").
			With("cost", cost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash produces a bcrypt digest of the password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", oops.Code(CodeInvalidInput).
			With("field", "password").
			Wrapf(ErrInvalidInput, "password must be at most 72 bytes")
	}
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").With("algorithm", AlgorithmBcrypt).Wrap(err)
	}
	return string(digest), nil
}

// Verify checks if the password matches the bcrypt digest.
func (h *BcryptHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, oops.Code("AUTH_INVALID_HASH").With("algorithm", AlgorithmBcrypt).Wrap(err)
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct{}

// NewArgon2idHasher creates a new Argon2idHasher.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{}
}

// Hash produces an argon2id digest of the password in PHC string format.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if the password matches the argon2id digest.
func (h *Argon2idHasher) Verify(password, digest string) (bool, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != AlgorithmArgon2id {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var memory, iterations, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if threads > 255 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d exceeds uint8 max", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	keyLen := len(expected)
	if keyLen == 0 || keyLen > 1<<30 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, uint8(threads), uint32(keyLen))
	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// Compile-time interface checks.
var (
	_ PasswordHasher = (*BcryptHasher)(nil)
	_ PasswordHasher = (*Argon2idHasher)(nil)
	_ PasswordHasher = (*MigratingHasher)(nil)
)
