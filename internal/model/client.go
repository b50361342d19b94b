package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is a billable customer. Invoices and projects hang off it.
type Client struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	Name      string `gorm:"size:255;not null"`
	Email     string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Client) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Project groups tasks, time entries and expenses under a client.
type Project struct {
	ID        string `gorm:"primaryKey;type:uuid"`
	ClientID  string `gorm:"not null;index"`
	Name      string `gorm:"size:255;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
