package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/inkwell-cms/auth-service/internal/utils"
	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
)

// Verification outcomes for access tokens. These are distinct on purpose:
// callers route a bad signature differently from a stale-but-genuine token.
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenVerification = errors.New("token verification failed")
)

const (
	gcmNonceSize = 12

	// argon2id parameters for deriving the refresh AEAD key from the
	// configured secret. Derivation happens once per Service, not per token.
	kdfTime     uint32 = 3
	kdfMemoryKB uint32 = 64 * 1024
	kdfThreads  uint8  = 4
	kdfKeyLen   uint32 = 32
)

// Service mints and verifies the two token types: signed short-lived access
// tokens (HS256 JWT) and encrypted opaque refresh tokens (AES-256-GCM over
// a JSON payload, key derived from a secret with argon2id).
type Service struct {
	signingSecret []byte
	aead          cipher.AEAD
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowFunc       func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

// WithExpiry overrides the access and refresh token lifetimes.
func WithExpiry(access, refresh time.Duration) ServiceOption {
	return func(s *Service) {
		s.accessExpiry = access
		s.refreshExpiry = refresh
	}
}

// NewService initializes a token Service. signingSecret signs access tokens;
// refreshSecret and kdfSalt feed the argon2id derivation of the 256-bit
// refresh encryption key.
func NewService(signingSecret, refreshSecret, kdfSalt string, options ...ServiceOption) (*Service, error) {
	if strings.TrimSpace(signingSecret) == "" {
		return nil, errors.New("[token.NewService] signing secret is required")
	}
	if strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("[token.NewService] refresh secret is required")
	}

	key := argon2.IDKey([]byte(refreshSecret), []byte(kdfSalt), kdfTime, kdfMemoryKB, kdfThreads, kdfKeyLen)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "[token.NewService] aes.NewCipher")
	}
	aead, err := cipher.NewGCMWithNonceSize(block, gcmNonceSize)
	if err != nil {
		return nil, errors.Wrap(err, "[token.NewService] cipher.NewGCM")
	}

	s := &Service{
		signingSecret: []byte(signingSecret),
		aead:          aead,
		accessExpiry:  15 * time.Minute,
		refreshExpiry: 7 * 24 * time.Hour,
		nowFunc:       time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// GenAccessToken signs the payload as a short-lived access JWT.
func (s *Service) GenAccessToken(p Payload) (string, error) {
	now := s.nowFunc()
	claims := jwt.MapClaims{
		"sessionId":   p.SessionID,
		"userId":      p.UserID,
		"email":       p.Email,
		"name":        p.Name,
		"imageUrl":    p.ImageURL,
		"roles":       p.Roles,
		"fingerprint": p.Fingerprint,
		"type":        TypeAccess,
		"iat":         now.Unix(),
		"exp":         now.Add(s.accessExpiry).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingSecret)
	if err != nil {
		return "", errors.Wrap(err, "[Service.GenAccessToken] SignedString")
	}
	return signed, nil
}

type refreshEnvelope struct {
	Payload
	Type string `json:"type"`
	Iat  int64  `json:"iat"`
	Exp  int64  `json:"exp"`
}

// GenRefreshToken serializes the payload with a refresh type tag and an
// internal expiry, encrypts it with AES-256-GCM under a fresh nonce, and
// encodes the result as nonceHex:cipherHex:tagHex. Identical payloads
// produce different ciphertexts.
func (s *Service) GenRefreshToken(p Payload) (string, error) {
	now := s.nowFunc()
	plaintext, err := json.Marshal(refreshEnvelope{
		Payload: p,
		Type:    TypeRefresh,
		Iat:     now.Unix(),
		Exp:     now.Add(s.refreshExpiry).Unix(),
	})
	if err != nil {
		return "", errors.Wrap(err, "[Service.GenRefreshToken] json.Marshal")
	}

	nonce := make([]byte, gcmNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", errors.Wrap(err, "[Service.GenRefreshToken] rand.Read")
	}

	sealed := s.aead.Seal(nil, nonce, plaintext, nil)
	tagStart := len(sealed) - s.aead.Overhead()

	return hex.EncodeToString(nonce) + ":" +
		hex.EncodeToString(sealed[:tagStart]) + ":" +
		hex.EncodeToString(sealed[tagStart:]), nil
}

// GenTokenPair issues both token types from one payload snapshot.
func (s *Service) GenTokenPair(p Payload) (*Pair, error) {
	access, err := s.GenAccessToken(p)
	if err != nil {
		return nil, err
	}
	refresh, err := s.GenRefreshToken(p)
	if err != nil {
		return nil, err
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Verify checks an access-style JWT: signature, expiry, and that the
// embedded type matches requiredType. Outcomes are ErrInvalidToken
// (malformed or bad signature), ErrTokenExpired, ErrTokenVerification
// (claims unusable or wrong type), or the payload.
func (s *Service) Verify(raw string, requiredType string) (*Payload, error) {
	parsed, err := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.nowFunc),
	).Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return s.signingSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenVerification
	}

	tokenType, _ := claims["type"].(string)
	if tokenType != requiredType {
		return nil, ErrTokenVerification
	}

	return payloadFromClaims(claims), nil
}

// VerifyRefreshToken reverses the AEAD encoding. Any failure, whether
// parse, decrypt, tag mismatch or expiry, collapses to a single false
// outcome; callers must not assume finer granularity.
func (s *Service) VerifyRefreshToken(raw string) (*Payload, bool) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return nil, false
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != gcmNonceSize {
		return nil, false
	}
	ciphertext, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, false
	}
	tag, err := hex.DecodeString(parts[2])
	if err != nil || len(tag) != s.aead.Overhead() {
		return nil, false
	}

	plaintext, err := s.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, false
	}

	var env refreshEnvelope
	if err := json.Unmarshal(plaintext, &env); err != nil {
		return nil, false
	}
	if env.Type != TypeRefresh {
		return nil, false
	}
	if s.nowFunc().Unix() > env.Exp {
		return nil, false
	}

	p := env.Payload
	return &p, true
}

func payloadFromClaims(claims jwt.MapClaims) *Payload {
	p := &Payload{}
	p.SessionID, _ = claims["sessionId"].(string)
	p.UserID, _ = claims["userId"].(string)
	p.Email, _ = claims["email"].(string)
	p.Name, _ = claims["name"].(string)
	p.ImageURL, _ = claims["imageUrl"].(string)
	p.Fingerprint, _ = claims["fingerprint"].(string)
	if roles, ok := claims["roles"].([]interface{}); ok {
		p.Roles = utils.ToStringSlice(roles)
	}
	return p
}
