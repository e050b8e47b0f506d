/*
Package factory deploys escrows at content-addressed locations.

The factory is the only writer of new escrow records. Anyone can predict
where an escrow will live from its parameters alone, which is what lets
the counterpart chain pre-fund an address before anything is deployed
there. The factory also keeps the swap registry (hashlock to escrow
address), the resolver whitelist and the runtime configuration.

Creation is gated by the pause switch; operations on already deployed
escrows never are.
*/
package factory
