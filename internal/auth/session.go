package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie the platform sets on browser login.
const SessionCookie = "session"

// JWTSessions verifies HS256-signed session cookies whose subject is the
// user id.
type JWTSessions struct {
	secret []byte
}

func NewJWTSessions(secret string) *JWTSessions {
	return &JWTSessions{secret: []byte(secret)}
}

// UserID implements SessionVerifier.
func (s *JWTSessions) UserID(r *http.Request) (int64, bool) {
	if len(s.secret) == 0 {
		return 0, false
	}
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return 0, false
	}

	tok, err := jwt.Parse(c.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return 0, false
	}

	sub, err := tok.Claims.GetSubject()
	if err != nil {
		return 0, false
	}
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, false
	}
	return uid, true
}

// Issue mints a session token for the user. Used by tests and tooling; the
// production issuer is the platform's login flow sharing the same secret.
func (s *JWTSessions) Issue(userID int64, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
