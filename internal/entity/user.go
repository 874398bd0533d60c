package entity

import (
	"github.com/google/uuid"
)

type User struct {
	Id          uuid.UUID `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	DisplayName string    `json:"displayName" db:"display_name"`
	IsProvider  bool      `json:"isProvider" db:"is_provider"`
}
