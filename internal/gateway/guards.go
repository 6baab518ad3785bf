package gateway

import (
	"time"

	"sockgate/internal/telemetry"
	telemetrydomain "sockgate/internal/telemetry/domain"
	userdomain "sockgate/internal/user/domain"
)

// Gate enforces per-event authorization against a ConnContext. Every denial is
// emitted as a security event with the connection id and attempted action
// before the error is returned; the caller decides how to respond.
type Gate struct {
	emitter telemetry.EventEmitter
}

// NewGate returns a Gate emitting denials through emitter (may be nil).
func NewGate(emitter telemetry.EventEmitter) *Gate {
	return &Gate{emitter: emitter}
}

// RequireAuthenticated denies with ErrAuthRequired when the connection is anonymous.
func (g *Gate) RequireAuthenticated(cc *ConnContext, action string) error {
	if !cc.Authenticated {
		g.deny(cc, action, "not authenticated")
		return ErrAuthRequired
	}
	return nil
}

// RequireRole denies with ErrAuthRequired when anonymous and with
// ErrInsufficientPermissions when the identity's role is neither in roles nor
// the administrative role (ADMIN always passes).
func (g *Gate) RequireRole(cc *ConnContext, action string, roles ...userdomain.Role) error {
	if !cc.Authenticated || cc.Identity == nil {
		g.deny(cc, action, "not authenticated")
		return ErrAuthRequired
	}
	if cc.Identity.IsAdmin() {
		return nil
	}
	for _, r := range roles {
		if cc.Identity.Role == r {
			return nil
		}
	}
	g.deny(cc, action, "role "+string(cc.Identity.Role)+" not permitted")
	return ErrInsufficientPermissions
}

// RequireOwnership denies with ErrAuthRequired when anonymous; allows ADMIN
// unconditionally; otherwise allows only when the identity owns the resource,
// denying with ErrAccessDenied.
func (g *Gate) RequireOwnership(cc *ConnContext, action, resourceOwnerID string) error {
	if !cc.Authenticated || cc.Identity == nil {
		g.deny(cc, action, "not authenticated")
		return ErrAuthRequired
	}
	if cc.Identity.IsAdmin() {
		return nil
	}
	if cc.Identity.ID != resourceOwnerID {
		g.deny(cc, action, "not resource owner")
		return ErrAccessDenied
	}
	return nil
}

func (g *Gate) deny(cc *ConnContext, action, reason string) {
	telemetry.EmitAsync(g.emitter, &telemetrydomain.SecurityEvent{
		EventType:    telemetrydomain.EventAuthzDenied,
		ConnectionID: cc.ID,
		IdentityID:   cc.IdentityID(),
		RemoteAddr:   cc.RemoteAddr,
		Action:       action,
		Reason:       reason,
		CreatedAt:    time.Now().UTC(),
	})
}
