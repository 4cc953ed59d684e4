package subkey

import (
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyValidSubkey(t *testing.T) {
	entity, sk := newTestKeyPair(t, testKeyCreation)

	date := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sk.Verify(entity.PrimaryKey, date))

	expiry, ok := sk.ExpirationTime(entity.PrimaryKey, date)
	require.True(t, ok)
	assert.Nil(t, expiry, "a binding without lifetimes never expires")

	expired, err := sk.Expired(entity.PrimaryKey, date)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestVerifyWithoutBindingSignature(t *testing.T) {
	entity, sk := newTestKeyPair(t, testKeyCreation)
	sk.Bindings = nil

	date := testKeyCreation.Add(time.Hour)
	require.ErrorIs(t, sk.Verify(entity.PrimaryKey, date), ErrNoValidBindingSignature)

	expiry, ok := sk.ExpirationTime(entity.PrimaryKey, date)
	assert.False(t, ok, "no valid binding means no defined expiration")
	assert.Nil(t, expiry)

	_, err := sk.Expired(entity.PrimaryKey, date)
	require.ErrorIs(t, err, ErrNoValidBindingSignature)
}

func TestVerifyBeforeBindingCreation(t *testing.T) {
	entity, sk := newTestKeyPair(t, testKeyCreation)

	date := testKeyCreation.Add(-time.Hour)
	require.ErrorIs(t, sk.Verify(entity.PrimaryKey, date), ErrNoValidBindingSignature)
}

func TestVerifyForeignBindingRejected(t *testing.T) {
	entity, sk := newTestKeyPair(t, testKeyCreation)
	stranger, _ := newTestKeyPair(t, testKeyCreation)

	forged := bindingSignature(t, stranger, sk, testKeyCreation, 0, 0)
	sk.Bindings = []*VerifiableSig{NewVerifiableSig(forged)}

	require.ErrorIs(t, sk.Verify(entity.PrimaryKey, testKeyCreation.Add(time.Hour)),
		ErrNoValidBindingSignature)
}

func TestVerifyKeyExpired(t *testing.T) {
	entity, sk := newTestKeyPair(t, testKeyCreation)

	oneYear := uint32(365 * 24 * 60 * 60)
	sig := bindingSignature(t, entity, sk, testKeyCreation.Add(time.Hour), oneYear, 0)
	sk.Bindings = append(sk.Bindings, NewVerifiableSig(sig))

	within := testKeyCreation.Add(30 * 24 * time.Hour)
	require.NoError(t, sk.Verify(entity.PrimaryKey, within))

	past := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	require.ErrorIs(t, sk.Verify(entity.PrimaryKey, past), errors.ErrKeyExpired)

	expired, err := sk.Expired(entity.PrimaryKey, past)
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestVerifySignatureExpired(t *testing.T) {
	entity, sk := newTestKeyPair(t, testKeyCreation)

	oneDay := uint32(24 * 60 * 60)
	sig := bindingSignature(t, entity, sk, testKeyCreation.Add(time.Hour), 0, oneDay)
	sk.Bindings = []*VerifiableSig{NewVerifiableSig(sig)}

	require.NoError(t, sk.Verify(entity.PrimaryKey, testKeyCreation.Add(2*time.Hour)))
	require.ErrorIs(t, sk.Verify(entity.PrimaryKey, testKeyCreation.Add(72*time.Hour)),
		errors.ErrKeyExpired)
}

func TestLatestBindingSignatureWins(t *testing.T) {
	entity, sk := newTestKeyPair(t, testKeyCreation)

	oneYear := uint32(365 * 24 * 60 * 60)
	newer := bindingSignature(t, entity, sk, testKeyCreation.Add(time.Hour), oneYear, 0)
	sk.Bindings = append(sk.Bindings, NewVerifiableSig(newer))

	date := testKeyCreation.Add(48 * time.Hour)
	selected, err := sk.LatestValidBindingSignature(entity.PrimaryKey, date)
	require.NoError(t, err)
	assert.True(t, selected.CreationTime.Equal(newer.CreationTime))

	// Before the newer signature exists, the original binding governs.
	earlierDate := testKeyCreation.Add(30 * time.Minute)
	selected, err = sk.LatestValidBindingSignature(entity.PrimaryKey, earlierDate)
	require.NoError(t, err)
	assert.True(t, selected.CreationTime.Equal(testKeyCreation))

	// The newer signature's key lifetime governs the expiration.
	expiry, ok := sk.ExpirationTime(entity.PrimaryKey, date)
	require.True(t, ok)
	require.NotNil(t, expiry)
	assert.True(t, expiry.Equal(testKeyCreation.Add(time.Duration(oneYear)*time.Second)))
}

func TestSelectorSkipsNonBindingTypes(t *testing.T) {
	entity, sk := newTestKeyPair(t, testKeyCreation)

	revoked, err := sk.Revoke(entity.PrimaryKey, entity.PrivateKey,
		packet.KeyRetired, "", testConfig(testKeyCreation.Add(time.Hour)))
	require.NoError(t, err)

	// A revocation in the binding list must never be selected as a binding.
	revoked.Bindings = append(revoked.Bindings, revoked.Revocations[0])
	selected, err := revoked.LatestValidBindingSignature(entity.PrimaryKey, testKeyCreation.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, packet.SigTypeSubkeyBinding, selected.SigType)
}
