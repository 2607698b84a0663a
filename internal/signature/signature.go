// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

// Package signature implements the request signing scheme that the schema
// registry uses when calling external composition services: The request body
// is signed with HMAC-SHA256 using a pre-shared secret, and the hex-encoded
// digest is transmitted in the X-Hive-Signature-256 header.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// HeaderName is the name of the request header carrying the signature.
const HeaderName = "X-Hive-Signature-256"

// SchemePrefix may optionally precede the hex digest in the header value.
const SchemePrefix = "sha256="

// AuthError is returned by Verify.
type AuthError struct {
	Message string
}

// Error implements the builtin/error interface.
func (e *AuthError) Error() string {
	return e.Message
}

// Possible values for AuthError.
var (
	ErrMissingSignature   = &AuthError{"missing signature"}
	ErrMalformedSignature = &AuthError{"malformed signature"}
	ErrSignatureMismatch  = &AuthError{"invalid signature"}
)

// Verifier checks request signatures against a fixed secret.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier. The secret is copied, so the caller may reuse
// the given buffer.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("signature secret may not be empty")
	}
	return &Verifier{secret: append([]byte(nil), secret...)}, nil
}

// Verify checks that the given signature matches the raw request body. The
// body must be exactly the bytes that were received.
func (v *Verifier) Verify(rawBody []byte, providedSignature string) error {
	return Verify(rawBody, providedSignature, v.secret)
}

// Sign computes the signature of the given body, as it appears in the header.
func (v *Verifier) Sign(body []byte) string {
	return Sign(body, v.secret)
}

// Verify is like Verifier.Verify, but takes the secret as an argument.
func Verify(rawBody []byte, providedSignature string, secret []byte) error {
	providedSignature = strings.TrimSpace(providedSignature)
	if providedSignature == "" {
		return ErrMissingSignature
	}

	// the scheme tag is optional, but if there is one, it must be ours
	if scheme, digest, found := strings.Cut(providedSignature, "="); found {
		if !strings.EqualFold(scheme+"=", SchemePrefix) {
			return ErrMalformedSignature
		}
		providedSignature = digest
	}

	if len(providedSignature) != 2*sha256.Size {
		return ErrMalformedSignature
	}
	provided, err := hex.DecodeString(providedSignature)
	if err != nil {
		return ErrMalformedSignature
	}

	if !hmac.Equal(provided, computeDigest(rawBody, secret)) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign computes the signature of the given body as a lower-case hex digest.
// This is the form that the schema registry sends.
func Sign(body, secret []byte) string {
	return hex.EncodeToString(computeDigest(body, secret))
}

// SignWithScheme is like Sign, but includes the "sha256=" scheme tag.
func SignWithScheme(body, secret []byte) string {
	return SchemePrefix + Sign(body, secret)
}

func computeDigest(body, secret []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body) // hash.Hash.Write never returns an error
	return mac.Sum(nil)
}
