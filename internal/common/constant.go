// Package common contains shared constants and sentinel errors used across
// socialgraph components.
package common

// AuthorizationHeaderName carries the bearer access token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the access token inside the Authorization header.
const BearerPrefix = "Bearer "

// RefreshTokenSize is the number of random bytes in a refresh token before
// hex encoding.
const RefreshTokenSize = 32
