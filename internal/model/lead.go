package model

import "time"

// Lead 对应 leads 表，记录通过小组件留下联系方式的潜在客户。
// 聊天流程只读取它来个性化 system 提示。
type Lead struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Email     string    `gorm:"type:varchar(255);index;not null" json:"email"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Sector    string    `gorm:"type:varchar(100)" json:"sector"`
	Lang      string    `gorm:"type:varchar(8)" json:"lang"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Lead) TableName() string {
	return "leads"
}
