package model

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	DefaultProjectColor    = "#3B82F6"
	DefaultProjectIcon     = "folder"
	DefaultProjectCategory = "work"
)

// Project belongs to exactly one owner.
type Project struct {
	ID          string     `json:"id" bson:"_id"`
	Name        string     `json:"name" bson:"name"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Color       string     `json:"color" bson:"color"`
	Icon        string     `json:"icon" bson:"icon"`
	Category    string     `json:"category" bson:"category"`
	StartDate   *time.Time `json:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
	IsPrivate   bool       `json:"isPrivate" bson:"isPrivate"`
	Priority    Priority   `json:"priority" bson:"priority"`
	Goals       []string   `json:"goals" bson:"goals"`
	Owner       string     `json:"owner" bson:"owner"`
	CreatedAt   time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}
