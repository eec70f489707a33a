package model

import "time"

// BaseModel 基础模型，ID 由 sonyflake 生成，不使用自增主键
type BaseModel struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CreatedAt time.Time `gorm:"precision:6" json:"created_at"`
	UpdatedAt time.Time `gorm:"precision:6" json:"updated_at"`
}
