package models

import "time"

// Image is a photo owned by one user. UserID holds the owner's handle.
type Image struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index;size:255;not null" json:"user_id"`
	Src       string    `gorm:"size:512;not null" json:"src"`
	Caption   string    `gorm:"size:2000" json:"caption"`
	Picked    bool      `gorm:"not null;default:false" json:"picked"`
	Published bool      `gorm:"not null;default:false" json:"published"`
	Hidden    bool      `gorm:"not null;default:false" json:"hidden"`
	Comments  []Comment `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is an entry in an image's comment list. Ordering follows ID.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ImageID   uint      `gorm:"index;not null" json:"image_id"`
	Author    string    `gorm:"index;size:255;not null" json:"author"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
