package subkey

import (
	"time"

	"github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// ErrFingerprintMismatch is returned when an update source does not describe
// the same cryptographic key as the receiver.
var ErrFingerprintMismatch error = errors.StructuralError("subkey update: fingerprint mismatch")

// Update merges other, an independently obtained copy of the same subkey,
// into the receiver. The merge never downgrades trust: private key material
// is adopted but never dropped, at most one binding signature is kept per
// issuer with the later creation time winning, and revocation signatures are
// accepted only if they currently constitute a valid revocation as of date.
// Candidates that fail verification are dropped silently so that merging with
// a partially-untrusted source remains possible. Update is idempotent.
//
// If other carries a different fingerprint, ErrFingerprintMismatch is
// returned and the receiver is left unmodified.
func (s *Subkey) Update(other *Subkey, primary *packet.PublicKey, date time.Time) error {
	if !s.SameFingerprintAs(other) {
		return ErrFingerprintMismatch
	}
	if s.PrivateKey == nil && other.PrivateKey != nil {
		s.PrivateKey = other.PrivateKey
	}
	// Bindings are reconciled before revocations; the key material adopted
	// above participates in the revocation checks below.
	for _, candidate := range other.Bindings {
		s.mergeBinding(candidate, primary)
	}
	for _, candidate := range other.Revocations {
		s.mergeRevocation(candidate, primary, date)
	}
	return nil
}

// mergeBinding folds one binding-signature candidate into the local list. A
// candidate from a known issuer replaces the local entry only if strictly
// newer. A candidate from an unknown issuer is kept if it is already marked
// verified or newly verifies against primary.
func (s *Subkey) mergeBinding(candidate *VerifiableSig, primary *packet.PublicKey) {
	if candidate.Signature.SigType != packet.SigTypeSubkeyBinding {
		return
	}
	for idx, existing := range s.Bindings {
		if sameIssuer(existing.Signature, candidate.Signature) {
			if candidate.Signature.CreationTime.Unix() > existing.Signature.CreationTime.Unix() {
				s.Bindings[idx] = candidate
			}
			return
		}
	}
	if !candidate.Verified {
		err := primary.VerifyKeySignature(s.PublicKey, candidate.Signature)
		candidate.Valid = err == nil
		candidate.Verified = true
	}
	if candidate.Valid {
		s.Bindings = append(s.Bindings, candidate)
	}
}

// mergeRevocation folds one revocation-signature candidate into the local
// list. The candidate is checked in isolation against the revocation
// predicate; duplicates of an already-held revocation are skipped.
func (s *Subkey) mergeRevocation(candidate *VerifiableSig, primary *packet.PublicKey, date time.Time) {
	for _, existing := range s.Revocations {
		if sameIssuer(existing.Signature, candidate.Signature) &&
			existing.Signature.CreationTime.Equal(candidate.Signature.CreationTime) {
			return
		}
	}
	if !s.revokedBy(candidate, primary, date) {
		return
	}
	s.Revocations = append(s.Revocations, candidate)
}

func sameIssuer(a, b *packet.Signature) bool {
	if a.IssuerKeyId == nil || b.IssuerKeyId == nil {
		return a.IssuerKeyId == b.IssuerKeyId
	}
	return *a.IssuerKeyId == *b.IssuerKeyId
}
