package health

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/felixgeelhaar/adminconsole/internal/api"
	"github.com/felixgeelhaar/adminconsole/internal/clock"
	"github.com/felixgeelhaar/adminconsole/internal/credential"
	"github.com/felixgeelhaar/adminconsole/internal/errors"
)

// Doer sends API requests.
type Doer interface {
	Do(ctx context.Context, req api.Request) (*api.Response, error)
}

// APIChecker asks the API root for any response. Client errors still
// prove the server is up; 5xx is degraded and no response is unhealthy.
func APIChecker(client Doer, baseURL string) Checker {
	return CheckFunc{CheckName: "api", Fn: func(ctx context.Context) *Result {
		resp, err := client.Do(ctx, api.Request{Method: http.MethodGet, Path: "/", Endpoint: "health"})
		if resp == nil {
			msg := "no response"
			if err != nil {
				msg = err.Error()
			}
			return Unhealthy(msg).WithDetail("url", baseURL)
		}
		if resp.Status >= 500 {
			return Degraded("server error").WithDetail("url", baseURL).WithDetail("status", resp.Status)
		}
		return Healthy("reachable").WithDetail("url", baseURL).WithDetail("status", resp.Status)
	}}
}

// StorageChecker reads the token key to prove the credential file can be
// opened (and decrypted when a passphrase is set).
func StorageChecker(storage credential.Storage, location string) Checker {
	return CheckFunc{CheckName: "credentials", Fn: func(ctx context.Context) *Result {
		_, ok, err := storage.Get(ctx, credential.KeyToken)
		if err != nil {
			return Unhealthy(err.Error()).WithDetail("path", location)
		}
		if !ok {
			return Healthy("no stored session").WithDetail("path", location)
		}
		return Healthy("readable").WithDetail("path", location)
	}}
}

// TokenChecker inspects the stored token without contacting the server.
// An expired JWT is degraded since the next command will sign out.
func TokenChecker(store *credential.Store, clk clock.Clock) Checker {
	return CheckFunc{CheckName: "token", Fn: func(ctx context.Context) *Result {
		record, ok, err := store.Load(ctx)
		if err != nil {
			return Unhealthy(err.Error())
		}
		if !ok {
			return Healthy("not signed in")
		}

		res := Healthy("present")
		if record.User != nil {
			res.WithDetail("user", record.User.Email)
		}
		if !record.LastValidatedAt.IsZero() {
			res.WithDetail("last_validated_at", record.LastValidatedAt.UTC())
		}

		var claims jwt.RegisteredClaims
		if _, _, err := jwt.NewParser().ParseUnverified(record.Token, &claims); err != nil {
			return res.WithDetail("format", "opaque")
		}
		res.WithDetail("format", "jwt")
		if claims.ExpiresAt != nil {
			res.WithDetail("expires_at", claims.ExpiresAt.UTC())
			if !clk.Now().Before(claims.ExpiresAt.Time) {
				res.Status = StatusDegraded
				res.Message = errors.NewTokenExpiredError().Message
			}
		}
		return res
	}}
}
