package users

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Memory-hard on purpose: a leaked hash table should
// stay expensive to brute-force.
const (
	argonMemoryKB    uint32 = 64 * 1024
	argonTime        uint32 = 1
	argonParallelism uint8  = 4
	argonSaltLength         = 16
	argonKeyLength   uint32 = 32
	argonAlgorithmID        = "argon2id"
)

// HashPassword hashes a password with argon2id and encodes it in PHC string
// format, parameters included, so they can evolve without invalidating
// stored hashes.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Wrap(err, "[HashPassword] rand.Read")
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemoryKB, argonParallelism, argonKeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argonAlgorithmID,
		argon2.Version,
		argonMemoryKB,
		argonTime,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// CheckPasswordHash verifies a password against a PHC-encoded argon2id hash.
// The comparison is constant time.
func CheckPasswordHash(password, encodedHash string) bool {
	memory, time, parallelism, salt, hash, err := parsePHC(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, parallelism, uint32(len(hash)))
	return subtle.ConstantTimeCompare(computed, hash) == 1
}

func parsePHC(encoded string) (memory, time uint32, parallelism uint8, salt, hash []byte, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != argonAlgorithmID {
		return 0, 0, 0, nil, nil, errors.New("[parsePHC] malformed hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return 0, 0, 0, nil, nil, errors.New("[parsePHC] unsupported argon2 version")
	}

	params := strings.Split(parts[3], ",")
	if len(params) != 3 {
		return 0, 0, 0, nil, nil, errors.New("[parsePHC] malformed parameters")
	}
	m, errM := strconv.ParseUint(strings.TrimPrefix(params[0], "m="), 10, 32)
	t, errT := strconv.ParseUint(strings.TrimPrefix(params[1], "t="), 10, 32)
	p, errP := strconv.ParseUint(strings.TrimPrefix(params[2], "p="), 10, 8)
	if errM != nil || errT != nil || errP != nil {
		return 0, 0, 0, nil, nil, errors.New("[parsePHC] malformed parameters")
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, errors.Wrap(err, "[parsePHC] salt")
	}
	hash, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return 0, 0, 0, nil, nil, errors.Wrap(err, "[parsePHC] hash")
	}

	return uint32(m), uint32(t), uint8(p), salt, hash, nil
}
