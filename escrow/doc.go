/*
Package escrow implements the hash-time-locked escrow state machine.

One Escrow instance exists per swap leg. It starts Active and ends either
Withdrawn (the secret matching the hashlock was presented inside the
withdrawal window) or Cancelled (the cancellation window opened first).
Both terminal states are reached exactly once; every transition is gated
on the packed timelock schedule, on the caller identity and, for
withdrawals, on the secret preimage.

The full parameter set of an escrow (Immutables) is frozen at deployment.
Only its digest is kept on record; every later call must present the
complete parameters again and is rejected when their digest does not
match. The digest also serves as the content-addressing salt, so the
escrow address itself commits to the parameters.

Every state transition is recorded in an append-only journal. The
journal entry of a withdrawal carries the revealed secret and is the only
channel through which the secret travels to the counterpart ledger.
*/
package escrow
