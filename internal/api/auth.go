package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/victornm/trivia/internal/errors"
)

const identityKey = "caller_identity"

// Identity authenticates the caller from a Bearer JWT and stores the subject
// claim as the caller identity. The room core trusts this identity as-is;
// token issuance happens outside this service.
func Identity(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, errors.New(errors.CodeUnauthenticated,
				errors.WithMessagef("authorization header required")))
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, errors.New(errors.CodeUnauthenticated,
				errors.WithMessagef("invalid authorization header format")))
			return
		}

		subject, err := parseSubject(parts[1], secret)
		if err != nil {
			abortWithError(c, errors.New(errors.CodeUnauthenticated,
				errors.WithCause(err),
				errors.WithMessagef("invalid or expired token")))
			return
		}

		c.Set(identityKey, subject)
		c.Next()
	}
}

// CallerIdentity returns the authenticated identity set by the Identity
// middleware.
func CallerIdentity(c *gin.Context) string {
	return c.GetString(identityKey)
}

func parseSubject(tokenString, secret string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return claims.Subject, nil
}

// IssueToken mints an identity token. Production callers get tokens from the
// external identity provider; this exists for local setups and tests.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	return token.SignedString([]byte(secret))
}
