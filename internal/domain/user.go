// Package domain defines the user record persisted by the service, the
// plain wire view it is serialized to, and the value objects exchanged by
// the query and archival pipeline.
package domain

import "gorm.io/gorm"

// User is the managed record. The identifier is assigned by the database
// and never changes; Email is unique across all rows.
//
// Fields:
//   - ID: auto-increment primary key.
//   - Name: display name (non-empty).
//   - Email: contact address, unique index.
//   - Age: years; generated users fall within 18–80.
//   - City: locality.
//   - NameKey / CityKey: folded copies of Name and City used by the
//     contains filters; set on every save.
type User struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"type:varchar(255);not null" validate:"required"`
	Email   string `gorm:"type:varchar(320);not null;uniqueIndex" validate:"required,email"`
	Age     int    `gorm:"not null" validate:"gte=0"`
	City    string `gorm:"type:varchar(255);not null" validate:"required"`
	NameKey string `gorm:"type:varchar(255);not null;default:'';index" json:"-"`
	CityKey string `gorm:"type:varchar(255);not null;default:''" json:"-"`
}

// BeforeSave refreshes the folded filter columns. SQL LOWER is not
// Unicode-aware on every driver, so folding happens here with the same
// rules the query builder applies to the needle.
func (u *User) BeforeSave(*gorm.DB) error {
	u.NameKey = Fold(u.Name)
	u.CityKey = Fold(u.City)
	return nil
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// UserView is the serialized form of a User returned to callers and written
// into archival documents.
type UserView struct {
	ID    uint   `json:"id"    example:"42"`
	Name  string `json:"name"  example:"Ada Lovelace"`
	Email string `json:"email" example:"ada@example.com"`
	Age   int    `json:"age"   example:"36"`
	City  string `json:"city"  example:"London"`
}

// ToView maps a persisted User to its wire representation.
func ToView(u User) UserView {
	return UserView{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Age:   u.Age,
		City:  u.City,
	}
}

// ToViews maps a slice of users, returning an empty (non-nil) slice when
// there are none so it serializes as [] rather than null.
func ToViews(users []User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, ToView(u))
	}
	return out
}
