package repo

import "gorm.io/gorm"

// GormRepo is the credential store. Uniqueness of the account email is
// enforced by the unique index, not by a read-before-write.
type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}
