package common

import "time"

// AuthorizationHeaderName carries the bearer token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token inside the Authorization header.
const BearerPrefix = "Bearer "

// SessionValidity is the default lifetime of a signed session token and of
// the session row that backs it.
const SessionValidity = 7 * 24 * time.Hour

// CredentialsProvider is the provider kind of password-backed accounts.
const CredentialsProvider = "credentials"

// BookContentTypes are the sniffed content types a book file may have.
var BookContentTypes = []string{"application/pdf", "application/epub+zip"}
