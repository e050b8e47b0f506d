package gatetest

import (
	"context"
	"fmt"

	"github.com/hashgate/hashgate"
)

// Auth is a mock implementing the escrow.Authenticator interface.
//
// This structure authenticates any of the referenced conditions. You can
// use either Signer or Signers (or both) attributes to reference
// conditions. Each time all signers (regardless which attribute) are
// considered.
type Auth struct {
	// Signer represents an authentication of a single signer. This is a
	// convenience attribute when creating an authentication method for
	// a single signer.
	Signer hashgate.Condition

	// Signers represents an authentication of multiple signers.
	Signers []hashgate.Condition
}

func (a *Auth) HasAddress(ctx hashgate.Context, addr hashgate.Address) bool {
	for _, s := range a.Signers {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	if a.Signer == nil {
		return false
	}
	return addr.Equals(a.Signer.Address())
}

// CtxAuth is a mock implementing the escrow.Authenticator interface.
//
// This implementation is using the context to store and retrieve
// permissions.
type CtxAuth struct {
	// Key used to set and retrieve conditions from the context. For
	// convenience only string type keys are allowed.
	Key string
}

func (a *CtxAuth) SetConditions(ctx hashgate.Context, permissions ...hashgate.Condition) hashgate.Context {
	return context.WithValue(ctx, ctxAuthKey(a.Key), permissions)
}

func (a *CtxAuth) GetConditions(ctx hashgate.Context) []hashgate.Condition {
	val := ctx.Value(ctxAuthKey(a.Key))
	if val == nil {
		return nil
	}
	conds, ok := val.([]hashgate.Condition)
	if !ok {
		panic(fmt.Sprintf("instead of []hashgate.Condition got %T", val))
	}
	return conds
}

func (a *CtxAuth) HasAddress(ctx hashgate.Context, addr hashgate.Address) bool {
	for _, s := range a.GetConditions(ctx) {
		if addr.Equals(s.Address()) {
			return true
		}
	}
	return false
}

type ctxAuthKey string
