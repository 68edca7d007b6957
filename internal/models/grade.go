package models

import "time"

// Grade is a single mark in a subject, on a 0-20 scale.
type Grade struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	Subject   string  `gorm:"size:200;not null;index"`
	Date      string  `gorm:"size:50"`
	Value     float64 `gorm:"not null"`
	CreatedAt time.Time
}
