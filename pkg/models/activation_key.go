package models

import "time"

// ActivationKey is one issued license key. JSON field names mirror the
// table's column names so a table dump reads like the table itself.
type ActivationKey struct {
	Key         string    `json:"ActivationKey" gorm:"column:activation_key;primaryKey"`
	UserEmail   string    `json:"UserEmail" gorm:"column:user_email;not null;index"`
	MachineID   *string   `json:"MachineID" gorm:"column:machine_id"`
	DateCreated time.Time `json:"DateCreated" gorm:"column:date_created;not null"`
	ExpiresAt   time.Time `json:"ExpiresAt" gorm:"column:expires_at;not null"`
}

// TableName pins the gorm table to the one created by the SQL migrations.
func (ActivationKey) TableName() string { return "keys" }

// Bound reports whether the key is locked to a machine.
func (k *ActivationKey) Bound() bool {
	return k.MachineID != nil && *k.MachineID != ""
}

// BoundMachine returns the machine the key is locked to, or "".
func (k *ActivationKey) BoundMachine() string {
	if k.MachineID == nil {
		return ""
	}
	return *k.MachineID
}
