// Copyright 2026 The Crux Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes. A token signed for one purpose is never redeemable for
// another.
const (
	PurposeMagicLink     = "magic_link"
	PurposePasswordReset = "password_reset"
	PurposeInvite        = "invite"
)

// Token errors
var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenUsed    = errors.New("token has already been used")
)

// OneTimeToken is the persisted redemption record for an emailed link.
// Redemption stamps UsedAt exactly once.
type OneTimeToken struct {
	ID        string
	UserID    string
	Purpose   string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// OneTimeTokenStore defines the interface for single-use token persistence
type OneTimeTokenStore interface {
	// Save persists a newly issued token
	Save(ctx context.Context, token *OneTimeToken) error

	// Consume marks a token used. Returns ErrTokenUsed if already redeemed
	// and ErrTokenInvalid if the token does not exist.
	Consume(ctx context.Context, id string) error

	// DeleteExpired removes expired tokens
	DeleteExpired(ctx context.Context) error
}

// LinkClaims are the JWT claims carried by emailed links
type LinkClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and redeems the JWTs behind magic links, password
// resets and invitations. Single use is enforced through the one-time
// token store keyed on the JWT ID.
type TokenIssuer struct {
	secret []byte
	store  OneTimeTokenStore
}

// NewTokenIssuer creates a new token issuer
func NewTokenIssuer(secret string, store OneTimeTokenStore) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), store: store}
}

// Sign creates a signed token without persisting a redemption record.
// Used for invitations, whose single-use guarantee lives on the
// invitation row itself.
func (i *TokenIssuer) Sign(id, subject, purpose string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := LinkClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse validates the signature, expiry and purpose of a token
func (i *TokenIssuer) Parse(tokenString, purpose string) (*LinkClaims, error) {
	var claims LinkClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.Purpose != purpose || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

// Issue signs a single-use token for a user and persists its redemption
// record.
func (i *TokenIssuer) Issue(ctx context.Context, userID, purpose string, ttl time.Duration) (string, error) {
	jti := uuid.NewString()

	signed, err := i.Sign(jti, userID, purpose, ttl)
	if err != nil {
		return "", err
	}

	record := &OneTimeToken{
		ID:        jti,
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := i.store.Save(ctx, record); err != nil {
		return "", fmt.Errorf("failed to save token record: %w", err)
	}

	return signed, nil
}

// Redeem validates a token and consumes its redemption record, returning
// the subject user id. A second redemption of the same token fails with
// ErrTokenUsed.
func (i *TokenIssuer) Redeem(ctx context.Context, tokenString, purpose string) (string, error) {
	claims, err := i.Parse(tokenString, purpose)
	if err != nil {
		return "", err
	}

	if err := i.store.Consume(ctx, claims.ID); err != nil {
		return "", err
	}

	return claims.Subject, nil
}
