// Package auth is the Rentwise identity and token-lifecycle core.
//
// Identities live in two disjoint stores, admins and users. The Resolver
// checks admins first, so an admin named "alice" shadows a user of the same
// name. Roles are ADMIN for admins and OWNER or USER for users depending on
// their is_owner flag.
//
// The TokenCodec signs HS512 JWTs. Access tokens carry a roles claim and a
// typ of "access"; refresh tokens carry typ "refresh" and no role. Each
// identity has at most one refresh token on record: issuing a new one
// overwrites the old one in place, so the last writer wins and an earlier
// token stops renewing.
//
// The Gateway orchestrates login, refresh issuance, access renewal,
// password-less re-authentication, Google federated login and registration.
package auth
