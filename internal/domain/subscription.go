package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ScopeKind selects how wide a subscription sees: one order, one store, or
// every order on the platform.
type ScopeKind string

const (
	ScopeOrder    ScopeKind = "order"
	ScopeStore    ScopeKind = "store"
	ScopePlatform ScopeKind = "platform"
)

type Scope struct {
	Kind ScopeKind
	ID   uuid.UUID // order id or store id; unused for platform
}

func OrderScope(id uuid.UUID) Scope { return Scope{Kind: ScopeOrder, ID: id} }
func StoreScope(id uuid.UUID) Scope { return Scope{Kind: ScopeStore, ID: id} }
func PlatformScope() Scope          { return Scope{Kind: ScopePlatform} }

func (s Scope) Matches(ev ChangeEvent) bool {
	switch s.Kind {
	case ScopeOrder:
		return ev.ID == s.ID
	case ScopeStore:
		return ev.StoreID == s.ID
	case ScopePlatform:
		return true
	}
	return false
}

func (s Scope) String() string {
	if s.Kind == ScopePlatform {
		return string(s.Kind)
	}
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}
