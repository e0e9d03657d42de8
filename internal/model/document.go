package model

import "time"

type Document struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Filename   string    `gorm:"size:255;not null;uniqueIndex" json:"filename"`
	Filepath   string    `gorm:"size:1024;not null" json:"filepath"`
	UploadedAt time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (Document) TableName() string {
	return "documents"
}
