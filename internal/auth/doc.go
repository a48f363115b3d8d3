// Package auth is the authentication and authorization core of the
// service.  It verifies credentials, issues and verifies JWT access and
// refresh tokens, owns the single refresh-token slot of every user and
// decides which session may act on which user.
//
// Flows:
//
//	login:   email+password -> Authenticator.Password -> Issuer.Issue -> RefreshStore.SetRefreshToken
//	refresh: bearer refresh -> Authenticator.Refresh  -> Issuer.Issue -> RefreshStore.SetRefreshToken
//	logout:  session        -> RefreshStore.SetRefreshToken(subject, "")
//
// No locks are held here.  Two concurrent writers to the same slot are
// resolved by the storage layer; the last write wins.
package auth
