package domain

// Identity is the authenticated caller's username.
type Identity string

// Authority is a coarse capability label attached to an authenticated request.
type Authority string

// AuthorityAdmin is the only authority the service grants.
const AuthorityAdmin Authority = "ADMIN"
