package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionUndo   AuditAction = "undo"
	AuditActionRedo   AuditAction = "redo"
)

// Undoable reports whether the entry records a data change, as opposed to
// an undo or redo of one.
func (a AuditAction) Undoable() bool {
	return a == AuditActionCreate || a == AuditActionUpdate || a == AuditActionDelete
}

// Entity types recorded in the audit log.
const (
	EntityProduct     = "product"
	EntityOrder       = "order"
	EntityDelivery    = "delivery"
	EntityConsumption = "consumption"
)

// AuditLog keeps the before/after snapshot of every mutation so that it can
// be undone later. Undo lives here, outside the projection code.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	EntityType string      `gorm:"size:50;index" json:"entity_type"`
	EntityID   string      `gorm:"size:36;index" json:"entity_id"`
	Action     AuditAction `gorm:"size:20" json:"action"`

	Description string `gorm:"size:255" json:"description"`

	// JSON snapshots; "null" when absent.
	BeforeData string `gorm:"type:text" json:"before_data"`
	AfterData  string `gorm:"type:text" json:"after_data"`

	// GroupID ties together the entries written by one request (a delivery
	// and the consumption it spawned) so they are undone together.
	GroupID string `gorm:"size:36;index" json:"group_id"`

	IsUndone bool       `gorm:"default:false" json:"is_undone"`
	UndoneAt *time.Time `json:"undone_at"`
}
