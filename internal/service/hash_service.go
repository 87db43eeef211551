package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2Params is the cost profile a hash was computed with. The profile is
// embedded in every encoded hash, so Verify always re-derives with the
// parameters of the stored hash and old passwords keep working after the
// defaults change.
type argon2Params struct {
	memoryKiB uint32
	passes    uint32
	lanes     uint8
	saltLen   int
	keyLen    uint32
}

// Interactive-login profile. Tuned for a shared campus host rather than the
// 64MB-per-hash profile heavier services use: login bursts at semester start
// must not exhaust memory.
var defaultArgon2Params = argon2Params{
	memoryKiB: 19 * 1024,
	passes:    2,
	lanes:     1,
	saltLen:   16,
	keyLen:    32,
}

// Argon2HashService implements ports.HashService with Argon2id, encoding
// hashes in the standard PHC string format.
type Argon2HashService struct {
	params argon2Params
}

// NewArgon2HashService creates a hash service with the interactive profile.
func NewArgon2HashService() *Argon2HashService {
	return &Argon2HashService{params: defaultArgon2Params}
}

// Hash derives an Argon2id hash of the password under the service's profile.
func (s *Argon2HashService) Hash(password string) (string, error) {
	p := s.params

	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	sum := argon2.IDKey([]byte(password), salt, p.passes, p.memoryKiB, p.lanes, p.keyLen)

	var b strings.Builder
	fmt.Fprintf(&b, "$argon2id$v=%d", argon2.Version)
	fmt.Fprintf(&b, "$m=%d,t=%d,p=%d", p.memoryKiB, p.passes, p.lanes)
	fmt.Fprintf(&b, "$%s", base64.RawStdEncoding.EncodeToString(salt))
	fmt.Fprintf(&b, "$%s", base64.RawStdEncoding.EncodeToString(sum))
	return b.String(), nil
}

// Verify reports whether the password matches the encoded hash. The
// comparison is constant-time; the cost profile comes from the hash itself.
func (s *Argon2HashService) Verify(password string, encodedHash string) (bool, error) {
	p, salt, sum, err := parsePHCArgon2(encodedHash)
	if err != nil {
		return false, err
	}

	candidate := argon2.IDKey([]byte(password), salt, p.passes, p.memoryKiB, p.lanes, p.keyLen)
	return subtle.ConstantTimeCompare(sum, candidate) == 1, nil
}

// parsePHCArgon2 unpacks a $argon2id$v=..$m=..,t=..,p=..$<salt>$<sum> string.
func parsePHCArgon2(encoded string) (argon2Params, []byte, []byte, error) {
	var p argon2Params

	rest, ok := strings.CutPrefix(encoded, "$argon2id$")
	if !ok {
		return p, nil, nil, errors.New("not an argon2id hash")
	}

	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return p, nil, nil, fmt.Errorf("malformed argon2id hash: %d fields", len(fields))
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("parsing argon2 version: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version %d", version)
	}

	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &p.memoryKiB, &p.passes, &p.lanes); err != nil {
		return p, nil, nil, fmt.Errorf("parsing argon2 cost profile: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(fields[2])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decoding salt: %w", err)
	}
	sum, err := base64.RawStdEncoding.DecodeString(fields[3])
	if err != nil {
		return p, nil, nil, fmt.Errorf("decoding hash: %w", err)
	}

	p.saltLen = len(salt)
	p.keyLen = uint32(len(sum))
	return p, salt, sum, nil
}
