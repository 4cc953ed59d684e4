package subkey

import (
	"time"

	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// ExpirationTime returns the effective expiration of the subkey as of date:
// the earlier of the key-level expiry (subkey creation time plus the key
// lifetime asserted by the binding signature) and the binding signature's own
// expiry. ok is false when no valid binding signature exists as of date, in
// which case the subkey has no defined expiration. A nil expiry with ok true
// means the subkey never expires.
func (s *Subkey) ExpirationTime(primary *packet.PublicKey, date time.Time) (expiry *time.Time, ok bool) {
	selected, err := s.latestValidBinding(primary, date)
	if err != nil {
		return nil, false
	}
	keyExpiry := calculateExpiry(s.PublicKey.CreationTime, selected.Signature.KeyLifetimeSecs)
	sigExpiry := calculateExpiry(selected.Signature.CreationTime, selected.Signature.SigLifetimeSecs)
	return earlier(keyExpiry, sigExpiry), true
}

// Expired reports whether the subkey is expired as of date. It returns
// ErrNoValidBindingSignature if no valid binding signature exists.
func (s *Subkey) Expired(primary *packet.PublicKey, date time.Time) (bool, error) {
	selected, err := s.latestValidBinding(primary, date)
	if err != nil {
		return false, err
	}
	return s.PublicKey.KeyExpired(selected.Signature, date) || selected.Signature.SigExpired(date), nil
}

// calculateExpiry resolves a creation time and a lifetime into an expiration
// time. A nil or zero lifetime means no expiration (RFC 4880, section
// 5.2.3.6).
func calculateExpiry(creation time.Time, lifetimeSecs *uint32) *time.Time {
	if lifetimeSecs == nil || *lifetimeSecs == 0 {
		return nil
	}
	expiry := creation.Add(time.Duration(*lifetimeSecs) * time.Second)
	return &expiry
}

// earlier returns the earlier of two expiration times, nil meaning unbounded.
func earlier(a, b *time.Time) *time.Time {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.Before(*a) {
		return b
	}
	return a
}
