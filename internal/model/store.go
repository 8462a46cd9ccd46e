package model

import (
	"fmt"
	"strings"
)

// Store is a physical shop. Stores mirrored from the ERP carry its store
// number in ExternalID; stores created by an admin have none.
type Store struct {
	BaseModel
	ExternalID *int64 `db:"external_id" json:"external_id"`
	Address    string `db:"address" json:"address"`
	IsActive   bool   `db:"is_active" json:"is_active"`
}

// StoreAddress returns address, or a generated label when the ERP left it blank.
func StoreAddress(address string, externalID int64) string {
	if address = strings.TrimSpace(address); address == "" {
		return fmt.Sprintf("Store #%d", externalID)
	}
	return address
}
