// Package ir provides the scalar value representation shared by every layer
// of modelsync.
//
// Property values held by nodes, and every field of an encoded notification,
// are expressed as ir.Value. ir imports nothing internal; all other packages
// import ir.
//
// Key design constraints:
//   - NO float types (use Int) so encoded notifications hash deterministically
//   - No null value: an absent property is "unset", never a stored null
//   - All encoded keys use snake_case
//   - Canonical JSON (RFC 8785) is the only encoding used for hashing
package ir
