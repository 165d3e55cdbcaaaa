// Package property is the slice of property persistence the rental
// workflow depends on: lookup with owner, owner listings, the admin
// verification toggle and tenant wishlists.
//
// Listing search, photos and facilities live elsewhere.
package property
