package models

// Tag labels recipes; filtering uses the slug
type Tag struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"type:varchar(256);not null" json:"name"`
	Slug string `gorm:"type:varchar(64);uniqueIndex;not null" json:"slug"`
}
