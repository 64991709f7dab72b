package errors

import "strings"

// Identity providers report stale refresh tokens as loosely structured error
// text rather than typed errors. These signatures cover the OAuth2
// invalid_grant family plus the common refresh-token phrasings.
var staleTokenSignatures = []string{
	"invalid_grant",
	"invalid refresh token",
	"refresh token expired",
	"refresh token not found",
	"refresh token already used",
	"refresh_token_not_found",
}

// IndicatesStaleToken reports whether the error text points at a stale or
// invalid refresh token. Such errors are fatal to the session: the caller
// must perform a full local session wipe, never a partial one.
func IndicatesStaleToken(err error) bool {
	if err == nil {
		return false
	}
	if IsToken(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range staleTokenSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
