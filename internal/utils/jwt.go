package utils // package utils provides token signing, verification and hashing helpers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any verification failure: bad signature,
// wrong algorithm, expiry, or a malformed subject claim. Callers must not
// present a more specific reason to end clients.
var ErrInvalidToken = errors.New("invalid token")

// SignedToken is a serialized HS256 JWT together with its UTC expiry.
// Access and refresh tokens share this shape but are signed with two
// independent secrets and carry independently configured lifetimes.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken signs a short-lived access token for a user. The claims
// carry the subject (user id), the role, expiry and issue time.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (SignedToken, error) {
	return sign(secret, userID, role, time.Duration(ttlMin)*time.Minute)
}

// NewRefreshToken signs a long-lived refresh token for a user. Only the
// SHA-256 hash of the result is ever persisted; see HashToken.
func NewRefreshToken(secret string, userID uint64, ttlDays int) (SignedToken, error) {
	return sign(secret, userID, "", time.Duration(ttlDays)*24*time.Hour)
}

func sign(secret string, userID uint64, role string, ttl time.Duration) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(userID, 10),
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// VerifyToken checks signature and expiry of a token against the given
// secret and returns the subject user id plus the role claim (empty for
// refresh tokens). Every failure mode collapses into ErrInvalidToken.
func VerifyToken(secret, raw string) (uint64, string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Tokens signed with any non-HMAC algorithm are rejected outright.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return 0, "", ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	var userID uint64
	switch sub := claims["sub"].(type) {
	case string:
		userID, err = strconv.ParseUint(sub, 10, 64)
		if err != nil {
			return 0, "", ErrInvalidToken
		}
	case float64:
		userID = uint64(sub)
	default:
		return 0, "", ErrInvalidToken
	}
	if userID == 0 {
		return 0, "", ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	return userID, role, nil
}

// HashToken returns the SHA-256 hex digest of a raw token. Refresh tokens
// are stored only as this digest so a leaked database row cannot be used
// to refresh a session.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
