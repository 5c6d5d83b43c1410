package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "Processing"
	StatusShipped    OrderStatus = "Shipped"
	StatusDelivered  OrderStatus = "Delivered"
)

type ShippingAddress struct {
	Address    string `gorm:"not null" json:"address" binding:"required"`
	City       string `gorm:"not null" json:"city" binding:"required"`
	PostalCode string `gorm:"not null" json:"postalCode" binding:"required"`
	Country    string `gorm:"not null" json:"country"`
}

type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"index;not null" json:"userId"`
	User            *User           `json:"user,omitempty"`
	OrderItems      []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"orderItems"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shippingAddress"`
	PaymentMethod   string          `gorm:"not null" json:"paymentMethod"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalPrice"`
	Status          OrderStatus     `gorm:"type:varchar(20);index;not null;default:Processing" json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
}

// OrderItem is a snapshot of a cart line; it never follows later product changes.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	OrderID   uint            `gorm:"index;not null" json:"-"`
	ProductID uint            `gorm:"index;not null" json:"product"`
	Name      string          `gorm:"not null" json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Qty       int             `gorm:"not null" json:"qty"`
}
