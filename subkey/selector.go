package subkey

import (
	"time"

	"github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// ErrNoValidBindingSignature is returned when no binding signature of the
// subkey verifies against the primary key as of the queried date.
var ErrNoValidBindingSignature error = errors.StructuralError("no valid binding signature found for subkey")

// LatestValidBindingSignature returns the binding signature that verifies
// against primary and has the latest creation time not after date. A zero
// date disables the creation-time filter. Signature expiration is not
// considered here; it is evaluated by Verify and ExpirationTime.
func (s *Subkey) LatestValidBindingSignature(primary *packet.PublicKey, date time.Time) (*packet.Signature, error) {
	selected, err := s.latestValidBinding(primary, date)
	if err != nil {
		return nil, err
	}
	return selected.Signature, nil
}

// latestValidBinding scans the binding list back to front so that, on equal
// creation times, the signature nearer the end of the list wins. Verification
// is attempted at most once per signature and the result cached.
func (s *Subkey) latestValidBinding(primary *packet.PublicKey, date time.Time) (*VerifiableSig, error) {
	var selected *VerifiableSig
	for sigIdx := len(s.Bindings) - 1; sigIdx >= 0; sigIdx-- {
		sig := s.Bindings[sigIdx]
		if sig.Signature.SigType != packet.SigTypeSubkeyBinding {
			continue
		}
		if (date.IsZero() || date.Unix() >= sig.Signature.CreationTime.Unix()) &&
			(selected == nil || selected.Signature.CreationTime.Unix() < sig.Signature.CreationTime.Unix()) {
			if !sig.Verified {
				err := primary.VerifyKeySignature(s.PublicKey, sig.Signature)
				sig.Valid = err == nil
				sig.Verified = true
			}
			if sig.Valid {
				selected = sig
			}
		}
	}
	if selected == nil {
		return nil, ErrNoValidBindingSignature
	}
	return selected, nil
}
