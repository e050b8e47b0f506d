/*
Package hashgate defines the primitives shared by the hashgate escrow
engine: content-addressed conditions and addresses, POSIX time values,
key-value store interfaces and context helpers.

Hashgate implements trust-minimized atomic swaps between two independent
ledgers. Each swap leg is a hash-time-locked escrow whose address is a
pure function of its frozen parameter set, so both parties can agree on
every address off-band before anything is deployed. The only information
that crosses between the two ledgers is the secret revealed by a
withdrawal, carried in the escrow journal.

Domain packages build on these primitives: timelock (packed stage
schedules), escrow (the hash-time-locked state machine), factory
(deterministic deployment and the registry), ledger (token movements).
*/
package hashgate
