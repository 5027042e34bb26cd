// SPDX-License-Identifier: AGPL-3.0-or-later
// ZelloFNEGateway - Bridge a Zello PTT channel to a P25/DMR FNE peer
// Copyright (C) 2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/USA-RedDragon/ZelloFNEGateway>

// Package jwtsigner mints the short-lived RS256 JWT Zello accepts as a
// logon auth_token.
package jwtsigner

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiry is fixed at 3000 seconds from mint time.
const expiry = 3000 * time.Second

var (
	// ErrEmptyInput is returned when either the issuer or the PEM key is empty.
	ErrEmptyInput = errors.New("jwtsigner: issuer and pem must not be empty")
	// ErrPemParse is returned when the PEM block does not decode to an RSA private key.
	ErrPemParse = errors.New("jwtsigner: failed to parse RSA private key")
)

// Signer holds a parsed RSA private key and mints JWTs for a fixed issuer.
type Signer struct {
	issuer string
	key    any
}

// New parses a PKCS#1 or PKCS#8 PEM-encoded RSA private key and binds it to
// issuer for subsequent Create calls.
func New(issuer, pem string) (*Signer, error) {
	if issuer == "" || pem == "" {
		return nil, ErrEmptyInput
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPemParse, err)
	}
	return &Signer{issuer: issuer, key: key}, nil
}

// Create builds and signs an RS256 JWT carrying {iss, exp}.
func (s *Signer) Create() (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtsigner: signing token: %w", err)
	}
	return signed, nil
}

// Create is a package-level convenience for one-shot signing without
// retaining a Signer.
func Create(issuer, pem string) (string, error) {
	signer, err := New(issuer, pem)
	if err != nil {
		return "", err
	}
	return signer.Create()
}
