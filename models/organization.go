package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Court is a jurisdiction cases are filed with
type Court struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name  string `gorm:"not null" json:"name"`
	Kind  string `json:"kind,omitempty"` // first instance, appeal, military...
	City  string `json:"city,omitempty"`
	Email string `json:"email,omitempty"`
}

func (c *Court) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (Court) TableName() string {
	return "courts"
}

// PoliceStation receives complaints and SOS alerts
type PoliceStation struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name      string  `gorm:"not null" json:"name"`
	City      string  `json:"city,omitempty"`
	Phone     string  `json:"phone,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p *PoliceStation) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (PoliceStation) TableName() string {
	return "police_stations"
}

// Prison is a detention facility
type Prison struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"not null" json:"name"`
	City     string `json:"city,omitempty"`
	Capacity int    `gorm:"not null;default:0" json:"capacity"`
}

func (p *Prison) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

func (Prison) TableName() string {
	return "prisons"
}
