package subkey

import (
	"time"

	"github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// Revoked reports whether the subkey has been revoked by the primary key as
// of date. Note that third-party revocation signatures are not supported.
func (s *Subkey) Revoked(primary *packet.PublicKey, date time.Time) bool {
	for _, revocation := range s.Revocations {
		if s.revokedBy(revocation, primary, date) {
			return true
		}
	}
	return false
}

// revokedBy reports whether revocation, considered alone, revokes the subkey
// as of date. The signature is verified with verifyKey on first use and the
// result cached.
func (s *Subkey) revokedBy(revocation *VerifiableSig, verifyKey *packet.PublicKey, date time.Time) bool {
	if revocation.Signature.SigType != packet.SigTypeSubkeyRevocation {
		return false
	}
	if !revocation.Verified {
		err := verifyKey.VerifySubkeyRevocationSignature(revocation.Signature, s.PublicKey)
		revocation.Valid = err == nil
		revocation.Verified = true
	}
	if !revocation.Valid {
		return false
	}
	if revocation.Signature.RevocationReason != nil && *revocation.Signature.RevocationReason == packet.KeyCompromised {
		// If the key is compromised, the key is considered revoked even before the revocation date.
		return true
	}
	if !date.IsZero() && date.Unix() < revocation.Signature.CreationTime.Unix() {
		return false
	}
	return !revocation.Signature.SigExpired(date)
}

// Revoke generates a subkey revocation signature (packet.SigTypeSubkeyRevocation)
// with the given reason code and text (RFC 4880, section 5.2.3.23) and
// returns a new Subkey carrying it, with all prior binding and revocation
// history merged in. The receiver is left unmodified, so previously returned
// snapshots stay valid. signer must be the decrypted private primary key.
func (s *Subkey) Revoke(primary *packet.PublicKey, signer *packet.PrivateKey, reason packet.ReasonForRevocation,
	reasonText string, config *packet.Config) (*Subkey, error) {
	if signer == nil || signer.Dummy() || signer.Encrypted {
		return nil, errors.InvalidArgumentError("revoking key must be decrypted private key material")
	}
	reason = NormalizeReason(reason)

	revSig := createSignaturePacket(primary, packet.SigTypeSubkeyRevocation, config)
	revSig.RevocationReason = &reason
	revSig.RevocationReasonText = reasonText
	if err := revSig.RevokeSubkey(s.PublicKey, signer, config); err != nil {
		return nil, err
	}

	revoked := &Subkey{
		PublicKey:  s.PublicKey,
		PrivateKey: s.PrivateKey,
		Revocations: []*VerifiableSig{{
			Verified:  true,
			Valid:     true,
			Signature: revSig,
		}},
	}
	if err := revoked.Update(s, primary, config.Now()); err != nil {
		return nil, err
	}
	return revoked, nil
}

// NormalizeReason validates a reason-for-revocation code, mapping anything
// outside the known set to packet.NoReason.
func NormalizeReason(reason packet.ReasonForRevocation) packet.ReasonForRevocation {
	switch reason {
	case packet.NoReason, packet.KeySuperseded, packet.KeyCompromised, packet.KeyRetired:
		return reason
	default:
		return packet.NoReason
	}
}

func createSignaturePacket(signer *packet.PublicKey, sigType packet.SignatureType, config *packet.Config) *packet.Signature {
	sigLifetimeSecs := config.SigLifetime()
	return &packet.Signature{
		Version:           signer.Version,
		SigType:           sigType,
		PubKeyAlgo:        signer.PubKeyAlgo,
		Hash:              config.Hash(),
		CreationTime:      config.Now(),
		IssuerKeyId:       &signer.KeyId,
		IssuerFingerprint: signer.Fingerprint,
		SigLifetimeSecs:   &sigLifetimeSecs,
	}
}
