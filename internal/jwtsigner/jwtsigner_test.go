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

package jwtsigner_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/USA-RedDragon/ZelloFNEGateway/internal/jwtsigner"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestKey(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return string(pem.EncodeToMemory(block))
}

func TestCreateProducesValidRS256Token(t *testing.T) {
	t.Parallel()
	pemKey := generateTestKey(t)
	signer, err := jwtsigner.New("gateway", pemKey)
	require.NoError(t, err)

	token, err := signer.Create()
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(token, ".")+1)

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		return nil, nil //nolint:nilnil // only verifying structure, not signature, below
	}, jwt.WithoutClaimsValidation())
	// parsing without a keyfunc key always errors on signature verification;
	// we only care that the claims decode.
	require.Error(t, err)
	require.NotNil(t, parsed)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "gateway", claims["iss"])
	assert.NotNil(t, claims["exp"])
}

func TestCreateRejectsEmptyInputs(t *testing.T) {
	t.Parallel()
	pemKey := generateTestKey(t)
	_, err := jwtsigner.New("", pemKey)
	require.ErrorIs(t, err, jwtsigner.ErrEmptyInput)

	_, err = jwtsigner.New("issuer", "")
	require.ErrorIs(t, err, jwtsigner.ErrEmptyInput)
}

func TestCreateRejectsInvalidPEM(t *testing.T) {
	t.Parallel()
	_, err := jwtsigner.New("issuer", "not a pem block")
	require.ErrorIs(t, err, jwtsigner.ErrPemParse)
}

func TestPackageLevelCreateMatchesSigner(t *testing.T) {
	t.Parallel()
	pemKey := generateTestKey(t)
	token, err := jwtsigner.Create("gateway", pemKey)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}
