package database

import "onebatch/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Image{},
		&models.Comment{},
		&models.Follow{},
	}
}
