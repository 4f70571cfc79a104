package entity

import "time"

// 订单状态
const (
	OrderStatusOpen      = "open"
	OrderStatusPlanned   = "planned"
	OrderStatusCompleted = "completed"
)

// Order 生产订单
type Order struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Code         string     `json:"code" gorm:"size:50;not null;uniqueIndex"`
	StyleID      string     `json:"style_id" gorm:"size:36;not null;index"`
	Buyer        string     `json:"buyer" gorm:"size:128"`
	DeliveryDate *time.Time `json:"delivery_date" gorm:"type:date"`
	Status       string     `json:"status" gorm:"size:20;not null;default:open"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Style  *Style       `json:"style,omitempty" gorm:"foreignKey:StyleID"`
	Colors []OrderColor `json:"colors,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "prod_orders"
}

// TotalQuantity 订单总数量
func (o *Order) TotalQuantity() int {
	total := 0
	for _, c := range o.Colors {
		total += c.Quantity
	}
	return total
}

// OrderColor 订单颜色明细；计划记录以其ID作为颜色标识
type OrderColor struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	OrderID   string `json:"order_id" gorm:"size:36;not null;index"`
	Name      string `json:"name" gorm:"size:64;not null"`
	Quantity  int    `json:"quantity" gorm:"not null"`
	SortOrder int    `json:"sort_order" gorm:"default:0"`
}

func (OrderColor) TableName() string {
	return "prod_order_colors"
}
