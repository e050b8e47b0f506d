package escrow

import (
	"golang.org/x/crypto/ed25519"

	"github.com/hashgate/hashgate"
	"github.com/hashgate/hashgate/errors"
	"github.com/hashgate/hashgate/ledger"
)

// Authenticator tells whether the current call was authorized by a given
// address. How the authorization was established (transaction signature,
// session, test fixture) is outside of this package.
type Authenticator interface {
	HasAddress(ctx hashgate.Context, addr hashgate.Address) bool
}

// Whitelist is the factory-side resolver registry consulted by the
// endorsement policy. When Bypass reports true the whitelist is not
// consulted at all and any resolver endorsement is acceptable.
type Whitelist interface {
	IsResolver(db hashgate.ReadOnlyKVStore, addr hashgate.Address) bool
	Bypass(db hashgate.ReadOnlyKVStore) bool
}

// AuthorizationPolicy decides whether a caller may execute the public
// variant of an operation on the escrow committed to by digest. The proof
// payload is policy specific and may be nil.
type AuthorizationPolicy interface {
	Authorize(ctx hashgate.Context, db hashgate.ReadOnlyKVStore, caller hashgate.Address, digest Digest, proof []byte) error
}

// TokenHolderPolicy authorizes every caller holding a positive balance of
// the designated capability token.
type TokenHolderPolicy struct {
	Token  hashgate.Address
	Ledger ledger.Controller
}

var _ AuthorizationPolicy = TokenHolderPolicy{}

// Authorize implements AuthorizationPolicy.
func (p TokenHolderPolicy) Authorize(ctx hashgate.Context, db hashgate.ReadOnlyKVStore, caller hashgate.Address, digest Digest, proof []byte) error {
	balance, err := p.Ledger.Balance(db, caller, p.Token)
	if err != nil {
		return errors.Wrap(err, "capability balance")
	}
	if balance.IsZero() {
		return errors.Wrapf(ErrInvalidCaller, "%s does not hold the capability token", caller)
	}
	return nil
}

// endorsementSize is ed25519 public key plus signature.
const endorsementSize = ed25519.PublicKeySize + ed25519.SignatureSize

// Endorse produces the proof payload accepted by the endorsement policy:
// the resolver public key followed by its signature over the immutables
// digest.
func Endorse(priv ed25519.PrivateKey, digest Digest) []byte {
	pub := priv.Public().(ed25519.PublicKey)
	out := make([]byte, 0, endorsementSize)
	out = append(out, pub...)
	out = append(out, ed25519.Sign(priv, digest[:])...)
	return out
}

// EndorserCondition returns the identity condition of an endorsing key.
func EndorserCondition(pub ed25519.PublicKey) hashgate.Condition {
	return hashgate.NewCondition("sigs", "ed25519", pub)
}

// EndorsedSignaturePolicy authorizes any caller presenting a valid
// off-band endorsement signed by a whitelisted resolver. Signature
// verification is a black box: pubkey plus signature in, signer address
// out.
type EndorsedSignaturePolicy struct {
	Whitelist Whitelist
}

var _ AuthorizationPolicy = EndorsedSignaturePolicy{}

// Authorize implements AuthorizationPolicy.
func (p EndorsedSignaturePolicy) Authorize(ctx hashgate.Context, db hashgate.ReadOnlyKVStore, caller hashgate.Address, digest Digest, proof []byte) error {
	if len(proof) != endorsementSize {
		return errors.Wrapf(ErrInvalidCaller, "endorsement must be %d bytes", endorsementSize)
	}
	pub := ed25519.PublicKey(proof[:ed25519.PublicKeySize])
	sig := proof[ed25519.PublicKeySize:]
	if !ed25519.Verify(pub, digest[:], sig) {
		return errors.Wrap(ErrInvalidCaller, "endorsement signature does not verify")
	}
	signer := EndorserCondition(pub).Address()
	if p.Whitelist.Bypass(db) {
		return nil
	}
	if !p.Whitelist.IsResolver(db, signer) {
		return errors.Wrapf(ErrInvalidCaller, "endorser %s is not a whitelisted resolver", signer)
	}
	return nil
}

// AnyOf authorizes a caller that satisfies at least one of the given
// policies. The last rejection is reported when none accepts.
type AnyOf []AuthorizationPolicy

var _ AuthorizationPolicy = AnyOf(nil)

// Authorize implements AuthorizationPolicy.
func (ps AnyOf) Authorize(ctx hashgate.Context, db hashgate.ReadOnlyKVStore, caller hashgate.Address, digest Digest, proof []byte) error {
	if len(ps) == 0 {
		return errors.Wrap(ErrInvalidCaller, "no authorization policy configured")
	}
	var err error
	for _, p := range ps {
		if err = p.Authorize(ctx, db, caller, digest, proof); err == nil {
			return nil
		}
	}
	return err
}
