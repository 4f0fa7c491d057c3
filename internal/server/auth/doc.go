// Package auth contains the credential primitives of the server: password
// hashing, session token issuance/validation and verification of Google
// identity assertions. Nothing here touches the account store.
package auth
