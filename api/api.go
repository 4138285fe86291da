// Package api provides HTTP handlers for the Praetor authorization engine.
package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/praetorhq/praetor"
)

// API wires all Praetor HTTP handlers together.
type API struct {
	guard  *praetor.Guard
	router forge.Router
}

// New creates an API from a Guard and a Forge router.
func New(g *praetor.Guard, router forge.Router) *API {
	return &API{guard: g, router: router}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("praetor: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerAuthzRoutes,
		a.registerRoleRoutes,
		a.registerPermissionRoutes,
		a.registerACLRoutes,
		a.registerPolicyRoutes,
		a.registerAuditRoutes,
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}
