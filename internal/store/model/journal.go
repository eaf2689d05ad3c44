package model

import (
	"time"

	"gorm.io/datatypes"
)

// JournalKind 标记一条审计记录的来源动作。
type JournalKind string

const (
	KindStartup         JournalKind = "startup"
	KindOrderSubmitted  JournalKind = "order_submitted"
	KindOrderPurged     JournalKind = "order_purged"
	KindOrdersCancelled JournalKind = "orders_cancelled"
	KindGuardClose      JournalKind = "guard_close"
	KindFlatten         JournalKind = "flatten"
	KindControl         JournalKind = "control"
)

// JournalEntry 只追加不修改，重启后不用于恢复状态。
type JournalEntry struct {
	ID        string            `gorm:"column:id;primaryKey;size:36" json:"id"`
	Kind      JournalKind       `gorm:"column:kind;index;size:32" json:"kind"`
	Symbol    string            `gorm:"column:symbol;size:32" json:"symbol"`
	OrderID   string            `gorm:"column:order_id;size:64" json:"order_id,omitempty"`
	Side      string            `gorm:"column:side;size:8" json:"side,omitempty"`
	OrderType string            `gorm:"column:order_type;size:16" json:"order_type,omitempty"`
	Price     string            `gorm:"column:price;size:32" json:"price,omitempty"`
	Quantity  string            `gorm:"column:quantity;size:32" json:"quantity,omitempty"`
	Reason    string            `gorm:"column:reason" json:"reason,omitempty"`
	Error     string            `gorm:"column:error" json:"error,omitempty"`
	Payload   datatypes.JSONMap `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt time.Time         `gorm:"column:created_at;index" json:"created_at"`
}

func (JournalEntry) TableName() string { return "journal_entries" }
