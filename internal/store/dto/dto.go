package dto

type StoreFilters struct {
	IsActive *bool
}

type CreateStoreInput struct {
	Address string `json:"address" validate:"required"`
}
