/*
 * Copyright 2026 Relayops, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package auth verifies caller identity for watcher connections. Token
// issuance lives elsewhere; this package only consumes verified claims.
package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptyToken    = errors.New("auth: empty token")
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrSigningMethod = errors.New("auth: invalid signing method")
)

const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
)

// Identity is the verified caller identity handed to the scope resolver.
type Identity struct {
	Subject   string
	Role      string
	TenantIDs []string
	// Local marks a connection from a trusted local process (no token);
	// such callers are treated as admin.
	Local bool
}

// IsAdmin reports whether this identity sees every tenant.
func (id Identity) IsAdmin() bool {
	return id.Local || id.Role == RoleAdmin
}

// Claims are the JWT claims issued by the platform's auth service.
type Claims struct {
	Role      string   `json:"role"`
	TenantIDs []string `json:"tenant_ids,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates watcher bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret []byte, issuer string) *Verifier {
	return &Verifier{secret: secret, issuer: issuer}
}

// VerifyToken parses and validates a bearer token and returns the caller's
// identity. Validation is strict: HS256 only, expiry enforced, issuer
// checked when configured.
func (v *Verifier) VerifyToken(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrEmptyToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}

	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSigningMethod
		}

		return v.secret, nil
	})
	if err != nil {
		return Identity{}, err
	}

	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		Subject:   claims.Subject,
		Role:      claims.Role,
		TenantIDs: claims.TenantIDs,
	}, nil
}
