package domain

import "github.com/google/uuid"

type Role string

const (
	// RoleCustomer is the anonymous actor: no token, no store.
	RoleCustomer Role = "customer"
	// RoleStaff belongs to exactly one store and may mutate only its orders.
	RoleStaff Role = "staff"
	// RoleOperator sees every store but owns none.
	RoleOperator Role = "operator"
)

type Actor struct {
	Role    Role
	Subject string
	// StoreID is set only for staff.
	StoreID uuid.UUID
}

func Anonymous() Actor { return Actor{Role: RoleCustomer} }
