package authz

import (
	"github.com/google/uuid"

	"github.com/vrindashine1/erp-po-inventory/internal/model"
)

// Action identifies an operation checked by the gate
type Action string

const (
	ActionReadPO        Action = "po.read"
	ActionCreatePO      Action = "po.create"
	ActionApprovePO     Action = "po.approve"
	ActionReceiveGoods  Action = "po.receive"
	ActionDeletePO      Action = "po.delete"
	ActionWriteSupplier Action = "supplier.write"
	ActionWriteProduct  Action = "product.write"
	ActionViewLedger    Action = "ledger.view"
	ActionManageUsers   Action = "users.manage"
)

// Actor is the authenticated principal a decision is made for
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) isManager() bool {
	return a.Role == model.RoleManager || a.Role == model.RoleAdmin
}

// Decision is an allow/deny outcome with a human-readable reason on deny
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// rule decides one action. po is nil for actions that are not scoped to a
// specific purchase order.
type rule func(actor Actor, po *model.PurchaseOrder) Decision

var anyAuthenticated rule = func(Actor, *model.PurchaseOrder) Decision {
	return allow()
}

var managerOnly rule = func(actor Actor, _ *model.PurchaseOrder) Decision {
	if actor.isManager() {
		return allow()
	}
	return deny("requires Manager role")
}

// creatorOrManager: a Manager may always delete; the creator may delete
// only while the order is still Pending. The InvalidState guard for
// non-Pending orders lives in the lifecycle service, not here.
var creatorOrManager rule = func(actor Actor, po *model.PurchaseOrder) Decision {
	if actor.isManager() {
		return allow()
	}
	if po != nil && po.CreatedByID == actor.ID && po.Status == model.POStatusPending {
		return allow()
	}
	return deny("only a Manager or the order's creator (while Pending) may delete")
}

var rules = map[Action]rule{
	ActionReadPO:        anyAuthenticated,
	ActionCreatePO:      anyAuthenticated,
	ActionApprovePO:     managerOnly,
	ActionReceiveGoods:  managerOnly,
	ActionDeletePO:      creatorOrManager,
	ActionWriteSupplier: managerOnly,
	ActionWriteProduct:  managerOnly,
	ActionViewLedger:    managerOnly,
	ActionManageUsers:   managerOnly,
}

// CanPerform is the single authorization decision point. It is pure with
// respect to everything except actor.Role and po.CreatedBy/Status.
func CanPerform(actor Actor, action Action, po *model.PurchaseOrder) Decision {
	r, ok := rules[action]
	if !ok {
		return deny("unknown action")
	}
	return r(actor, po)
}
