// Package middleware provides HTTP authentication and authorization
// middleware for Praetor.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/praetorhq/praetor"
)

// Require authenticates the request and enforces the given permission.
// Responds 401 when the credential is missing or invalid and 403 when the
// decision pipeline denies. Route-level checks carry no ABAC rules, so
// policies are not consulted here; handlers needing policy evaluation call
// Guard.Authorize with their rules.
func Require(g *praetor.Guard, permissionCode string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			r := ctx.Request()
			actor, err := g.Authenticate(ctx.Context(), bearerToken(r))
			if err != nil {
				return errorResponse(ctx, http.StatusUnauthorized, err)
			}

			if err := g.Enforce(ctx.Context(), actor, permissionCode, nil, requestMeta(r)); err != nil {
				return errorResponse(ctx, http.StatusForbidden, err)
			}
			return next(ctx)
		}
	}
}

// RequireRole authenticates the request and allows it only when the user
// holds at least one of the named roles.
func RequireRole(g *praetor.Guard, roleNames ...string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			actor, err := g.Authenticate(ctx.Context(), bearerToken(ctx.Request()))
			if err != nil {
				return errorResponse(ctx, http.StatusUnauthorized, err)
			}

			held, err := g.HasRole(ctx.Context(), actor.UserID, roleNames...)
			if err != nil {
				return errorResponse(ctx, http.StatusInternalServerError, err)
			}
			if !held {
				return errorResponse(ctx, http.StatusForbidden, praetor.ErrRoleRequired)
			}
			return next(ctx)
		}
	}
}

// Authenticate rejects requests without a valid session. It performs no
// permission check.
func Authenticate(g *praetor.Guard) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			if _, err := g.Authenticate(ctx.Context(), bearerToken(ctx.Request())); err != nil {
				return errorResponse(ctx, http.StatusUnauthorized, err)
			}
			return next(ctx)
		}
	}
}

// Audit records a success audit entry after the handler completes without
// error.
func Audit(g *praetor.Guard, action, resource string) forge.Middleware {
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			r := ctx.Request()
			actor, err := g.Authenticate(ctx.Context(), bearerToken(r))
			if err != nil {
				return errorResponse(ctx, http.StatusUnauthorized, err)
			}

			if err := next(ctx); err != nil {
				return err
			}
			g.RecordAccess(ctx.Context(), actor, action, resource, requestMeta(r), nil)
			return nil
		}
	}
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}

// requestMeta captures the request attributes carried into decisions and
// audit entries.
func requestMeta(r *http.Request) praetor.RequestMeta {
	ip := r.RemoteAddr
	if i := strings.LastIndex(ip, ":"); i > 0 && !strings.HasSuffix(ip, "]") {
		ip = ip[:i]
	}
	return praetor.RequestMeta{
		IP:        ip,
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
		Method:    r.Method,
	}
}

func errorResponse(ctx forge.Context, status int, err error) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(status)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{
		"code":  praetor.ErrorCode(err),
		"error": err.Error(),
	})
}
