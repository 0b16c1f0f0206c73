package api

import (
	"context"

	"github.com/orgbill/console/store"
)

type contextKey int

const contextKeyOrganization contextKey = iota

// SetOrganizationContext returns a new context with the organization attached.
func SetOrganizationContext(ctx context.Context, org *store.Organization) context.Context {
	return context.WithValue(ctx, contextKeyOrganization, org)
}

// OrganizationFromContext extracts the organization loaded by the
// WithOrganization middleware, or nil.
func OrganizationFromContext(ctx context.Context) *store.Organization {
	org, _ := ctx.Value(contextKeyOrganization).(*store.Organization)
	return org
}
