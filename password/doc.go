// Package password hashes and verifies account passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<iterations>,p=<threads>$<salt>$<key>
//
// The identity backend stub stores only these hashes. [Hasher.VerifyUnknown]
// lets a caller spend the same work for accounts that do not exist.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Enforce password policy.
//   - Log plaintext passwords.
package password
