package ux

import (
	"github.com/felixgeelhaar/adminconsole/internal/errors"
)

var suggestions = map[errors.ErrorCode]string{
	errors.ErrCodeTokenInvalid: "Sign in again with 'adminctl auth login'",
	errors.ErrCodeSecondFactor: "Request a new code with 'adminctl auth 2fa send' and try again",
	errors.ErrCodeForbidden:    "Run 'adminctl permissions' to see what your roles grant",
	errors.ErrCodeServerError:  "The server failed; retry later or check its logs",
	errors.ErrCodeRateLimited:  "Wait a moment before retrying",
	errors.ErrCodeStorageRead:  "Check ADMINCONSOLE_PASSPHRASE or remove the credentials file",
	errors.ErrCodeConfig:       "Fix the value with 'adminctl config set' or edit the config file",
}

// EnhanceError attaches a recovery hint to console errors that have none.
// Other errors are returned unchanged.
func EnhanceError(err error) error {
	ce, ok := errors.As(err)
	if !ok || len(ce.Suggestions) > 0 {
		return err
	}
	if hint, ok := suggestions[ce.Code]; ok {
		ce.WithSuggestion(hint)
	}
	return err
}
