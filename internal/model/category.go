package model

type Category struct {
	BaseModel
	ExternalID int64   `db:"external_id" json:"external_id"`
	Name       string  `db:"name" json:"name"`
	IconPath   *string `db:"icon_path" json:"icon_path"` // admin-owned once set
}
