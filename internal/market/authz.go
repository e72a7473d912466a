package market

import (
	"fmt"

	"github.com/ravenmarkets/raven-engine/pkg/types"
)

// Role names a protocol role a caller can hold relative to a market.
type Role uint8

const (
	// RoleAdmin is the global protocol administrator.
	RoleAdmin Role = iota + 1
	// RoleCreator is the creator of the specific market being acted on.
	RoleCreator
)

// Authorize checks that caller holds at least one of the required roles.
// mk may be nil for global operations, in which case RoleCreator never
// matches. This is the single authorization path for every role-gated
// operation; call sites never compare identities directly.
func (c *Catalog) Authorize(caller types.AccountID, mk *Config, roles ...Role) error {
	return c.authorizeLocked(caller, mk, roles...)
}

// authorizeLocked is Authorize without touching the catalog mutex; the admin
// identity is immutable after bootstrap and mk is the caller's copy or an
// already-locked record.
func (c *Catalog) authorizeLocked(caller types.AccountID, mk *Config, roles ...Role) error {
	for _, role := range roles {
		switch role {
		case RoleAdmin:
			if caller == c.admin {
				return nil
			}
		case RoleCreator:
			if mk != nil && caller == mk.Creator {
				return nil
			}
		}
	}

	return fmt.Errorf("%w: %s", types.ErrUnauthorized, caller)
}
