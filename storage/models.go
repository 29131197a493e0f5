package storage

import "time"

// Box is a catalog item row. Stock holds the units left; NULL means untracked.
type Box struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:128;uniqueIndex;not null"`
	Price        string `gorm:"size:32;not null"`
	Description  string
	Contents     string `gorm:"type:text"` // JSON array
	Availability string `gorm:"size:16;not null;default:available"`
	Stock        *int
	Position     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store is the singleton restaurant row (ID 1).
type Store struct {
	ID            uint `gorm:"primaryKey"`
	Name          string
	Address       string
	Phone         string
	Email         string
	Timezone      string
	WeekdaysLabel string
	WeekdaysOpen  string `gorm:"size:5"`
	WeekdaysClose string `gorm:"size:5"`
	WeekendsLabel string
	WeekendsOpen  string `gorm:"size:5"`
	WeekendsClose string `gorm:"size:5"`
	UpdatedAt     time.Time
}

// OrderRecord is a persisted order.
type OrderRecord struct {
	ID           string `gorm:"primaryKey;size:16"`
	Status       string `gorm:"size:16;index;not null"`
	Total        string `gorm:"size:32;not null"`
	CustomerName string
	Phone        string
	PickupTime   string `gorm:"size:5"`
	Lines        []OrderLineRecord `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (OrderRecord) TableName() string { return "orders" }

// OrderLineRecord is one line of an order.
type OrderLineRecord struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   string `gorm:"size:16;index;not null"`
	Position  int
	ItemName  string `gorm:"size:128;not null"`
	Quantity  int    `gorm:"not null"`
	UnitPrice string `gorm:"size:32;not null"`
	Subtotal  string `gorm:"size:32;not null"`
}

func (OrderLineRecord) TableName() string { return "order_lines" }
