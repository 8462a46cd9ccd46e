package dto

type CategoryFilters struct {
	Search string
}

type SetIconInput struct {
	ID       int64  `json:"-" validate:"gt=0"`
	IconPath string `json:"icon_path" validate:"required"`
}
