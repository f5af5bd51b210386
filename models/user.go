package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email    string          `gorm:"uniqueIndex" json:"email"`
	Password string          `json:"-"`
	Cash     decimal.Decimal `gorm:"type:numeric(20,2)" json:"cash"`
}
