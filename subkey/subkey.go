// Package subkey implements the trust lifecycle of an OpenPGP subkey bound to
// a primary key: binding-signature selection, revocation evaluation,
// expiration resolution, and reconciliation of two independently obtained
// copies of the same subkey.
//
// Signature verification results are cached on the wrapping VerifiableSig, so
// read operations may write to shared state even though they are logically
// pure. A Subkey must not be used from multiple goroutines without external
// synchronization.
package subkey

import (
	"bytes"
	"io"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// A VerifiableSig wraps a signature packet together with the cached result of
// its verification. Verified records whether verification has been attempted;
// Valid holds the outcome. Revoked is set once a revocation check against the
// signature has succeeded.
type VerifiableSig struct {
	Verified  bool
	Valid     bool
	Revoked   bool
	Signature *packet.Signature
}

func NewVerifiableSig(signature *packet.Signature) *VerifiableSig {
	return &VerifiableSig{
		Verified:  false,
		Valid:     false,
		Signature: signature,
	}
}

// A Subkey is a subordinate key bound to a primary key by binding signatures.
// PrivateKey is nil for public-only copies. Bindings and Revocations hold the
// subkey binding and subkey revocation signatures seen for this key.
type Subkey struct {
	PublicKey   *packet.PublicKey
	PrivateKey  *packet.PrivateKey
	Bindings    []*VerifiableSig
	Revocations []*VerifiableSig
}

// NewSubkey wraps the given key packets into a Subkey with empty signature
// lists. priv may be nil for a public-only subkey; when present it must carry
// the same key as pub.
func NewSubkey(pub *packet.PublicKey, priv *packet.PrivateKey) (*Subkey, error) {
	if pub == nil {
		return nil, errors.InvalidArgumentError("missing subkey packet")
	}
	if priv != nil && !bytes.Equal(priv.Fingerprint, pub.Fingerprint) {
		return nil, errors.InvalidArgumentError("private key does not match subkey packet")
	}
	return &Subkey{
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

// KeyID returns the key id of the subkey.
func (s *Subkey) KeyID() uint64 {
	return s.PublicKey.KeyId
}

// Fingerprint returns the fingerprint of the subkey.
func (s *Subkey) Fingerprint() []byte {
	return s.PublicKey.Fingerprint
}

// Algorithm returns the public key algorithm of the subkey.
func (s *Subkey) Algorithm() packet.PublicKeyAlgorithm {
	return s.PublicKey.PubKeyAlgo
}

// BitLength returns the bit length of the subkey.
func (s *Subkey) BitLength() (uint16, error) {
	return s.PublicKey.BitLength()
}

// CreationTime returns the creation time of the subkey.
func (s *Subkey) CreationTime() time.Time {
	return s.PublicKey.CreationTime
}

// IsPrivate reports whether the subkey carries private key material.
func (s *Subkey) IsPrivate() bool {
	return s.PrivateKey != nil
}

// IsDecrypted reports whether the subkey carries usable private key material.
func (s *Subkey) IsDecrypted() bool {
	return s.PrivateKey != nil && !s.PrivateKey.Dummy() && !s.PrivateKey.Encrypted
}

// SameFingerprintAs reports whether other describes the same cryptographic
// key as this subkey.
func (s *Subkey) SameFingerprintAs(other *Subkey) bool {
	return other != nil && s.MatchesKey(other.PublicKey)
}

// MatchesKey reports whether pub carries the same fingerprint as this subkey.
func (s *Subkey) MatchesKey(pub *packet.PublicKey) bool {
	return pub != nil && bytes.Equal(s.PublicKey.Fingerprint, pub.Fingerprint)
}

// Serialize writes the subkey packet sequence to w: the key packet first,
// then all revocation signatures, then all binding signatures. Revocations
// preceding bindings is a protocol contract for downstream consumers.
// If includeSecrets is set, the private key packet is written instead of the
// public one.
func (s *Subkey) Serialize(w io.Writer, includeSecrets bool) error {
	if includeSecrets {
		if s.PrivateKey == nil {
			return errors.InvalidArgumentError("no private key material in subkey")
		}
		if err := s.PrivateKey.Serialize(w); err != nil {
			return err
		}
	} else {
		if err := s.PublicKey.Serialize(w); err != nil {
			return err
		}
	}
	for _, revocation := range s.Revocations {
		if err := revocation.Signature.Serialize(w); err != nil {
			return err
		}
	}
	for _, bindingSig := range s.Bindings {
		if err := bindingSig.Signature.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks that the subkey is validly bound to primary and neither
// revoked nor expired as of date. A nil return means the subkey is valid;
// otherwise ErrNoValidBindingSignature, errors.ErrKeyRevoked, or
// errors.ErrKeyExpired is returned.
func (s *Subkey) Verify(primary *packet.PublicKey, date time.Time) error {
	selected, err := s.latestValidBinding(primary, date)
	if err != nil {
		return err
	}
	if selected.Revoked || s.Revoked(primary, date) {
		selected.Revoked = true
		return errors.ErrKeyRevoked
	}
	if s.PublicKey.KeyExpired(selected.Signature, date) || selected.Signature.SigExpired(date) {
		return errors.ErrKeyExpired
	}
	return nil
}

// ReSign re-issues the currently selected binding signature of the subkey
// with signer, the primary private key. If the binding carries an embedded
// cross-signature, it is re-issued with the subkey's own private key.
func (s *Subkey) ReSign(primary *packet.PublicKey, signer *packet.PrivateKey, config *packet.Config) error {
	var timeZero time.Time
	selected, err := s.latestValidBinding(primary, timeZero)
	if err != nil {
		return err
	}
	if err := selected.Signature.SignKey(s.PublicKey, signer, config); err != nil {
		return err
	}
	if selected.Signature.EmbeddedSignature != nil {
		if s.PrivateKey == nil {
			return errors.InvalidArgumentError("subkey private key needed for cross-signature")
		}
		if err := selected.Signature.EmbeddedSignature.CrossSignKey(s.PublicKey, primary,
			s.PrivateKey, config); err != nil {
			return err
		}
	}
	return nil
}

// EncryptPrivateKey encrypts the subkey's private key material with a key
// derived from passphrase. Public-only, dummy, and already-encrypted subkeys
// are ignored without error.
func (s *Subkey) EncryptPrivateKey(passphrase []byte, config *packet.Config) error {
	if s.PrivateKey == nil || s.PrivateKey.Dummy() || s.PrivateKey.Encrypted {
		return nil
	}
	return packet.EncryptPrivateKeys([]*packet.PrivateKey{s.PrivateKey}, passphrase, config)
}

// DecryptPrivateKey decrypts the subkey's private key material with the given
// passphrase. Public-only, dummy, and unencrypted subkeys are ignored without
// error.
func (s *Subkey) DecryptPrivateKey(passphrase []byte) error {
	if s.PrivateKey == nil || s.PrivateKey.Dummy() || !s.PrivateKey.Encrypted {
		return nil
	}
	return packet.DecryptPrivateKeys([]*packet.PrivateKey{s.PrivateKey}, passphrase)
}
