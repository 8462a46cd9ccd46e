package dto

import "github.com/fekuna/omnipos-catalog-service/internal/model"

type SyncInput struct {
	Scope model.SyncScope `json:"scope" validate:"required,oneof=ALL STORES CATEGORIES PRODUCTS"`

	// ProductIDs restricts a PRODUCTS run to these ERP product ids.
	ProductIDs []int64 `json:"product_ids,omitempty" validate:"omitempty,dive,gt=0"`
}

type SyncResponse struct {
	Status model.SyncStatus `json:"status"`
	RunID  string           `json:"run_id"`
	Errors []string         `json:"errors,omitempty"`
}

func NewSyncResponse(r *model.SyncResult) *SyncResponse {
	return &SyncResponse{
		Status: r.Status,
		RunID:  r.RunID,
		Errors: r.Errors,
	}
}
