// Package auth validates the bearer tokens presented to the API.
//
// Tokens are HMAC signed JWTs. Besides the registered claims they carry the
// capabilities of the caller:
//   - manage_options grants access to the guard settings
//   - edit_posts grants access to content items and status transitions
package auth
