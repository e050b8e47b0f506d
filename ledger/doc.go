/*
Package ledger implements token balances and atomic value transfers.

The escrow engine treats value transfer as an external collaborator: the
escrow and factory packages only depend on the Controller interface
declared here. The bundled BaseController keeps wallets in a bucket, with
per-token 256-bit balances. The zero-address token is the native token
and is how safety deposits are denominated.
*/
package ledger
