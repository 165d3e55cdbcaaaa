// Package rental drives rent requests through their lifecycle.
//
// A request starts PENDING (status 0). The property's owner or an admin
// either accepts it, which sets the agreed terms and moves it to
// ACCEPTED (status 1), or rejects it, which deletes the row. Nothing
// moves an accepted request back to pending. Accepting an already
// accepted request re-applies the new terms.
//
// Accept and reject load the request, check ownership and write inside a
// single transaction, so a forbidden caller never mutates anything and
// two concurrent accepts on the same id serialise.
package rental
