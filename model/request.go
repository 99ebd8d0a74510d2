// file: model/request.go

package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RegisterRequest defines the payload for creating a new user.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	UserName string `json:"userName" validate:"required,notblank,min=3,max=50"`
	Password string `json:"password" validate:"required,notblank,min=6"`
}

// LoginRequest accepts either an email or a username.
type LoginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	UserName string `json:"userName" validate:"omitempty,max=50"`
	Password string `json:"password" validate:"required,notblank"`
}

// RefreshRequest is optional: the refresh token normally arrives as a cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required,notblank"`
	NewPassword string `json:"newPassword" validate:"required,notblank,min=6"`
}

type UpdateAccountRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AvatarUploadResponse struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	Avatar    string    `json:"avatar"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ConfirmAvatarRequest struct {
	Key string `json:"key" validate:"required,notblank"`
}

type CreateProjectRequest struct {
	Name        string        `json:"name" validate:"required,notblank,max=100"`
	Description string        `json:"description" validate:"max=1000"`
	Color       string        `json:"color" validate:"omitempty,hexcolor"`
	Icon        string        `json:"icon" validate:"max=50"`
	Category    string        `json:"category" validate:"max=50"`
	StartDate   *FlexibleTime `json:"startDate"`
	EndDate     *FlexibleTime `json:"endDate"`
	IsPrivate   bool          `json:"isPrivate"`
	Priority    Priority      `json:"priority" validate:"omitempty,oneof=low medium high"`
	Goals       []string      `json:"goals" validate:"omitempty,dive,max=200"`
}

// UpdateProjectRequest only touches the fields that are present.
type UpdateProjectRequest struct {
	Name        *string       `json:"name" validate:"omitempty,notblank,max=100"`
	Description *string       `json:"description" validate:"omitempty,max=1000"`
	Color       *string       `json:"color" validate:"omitempty,hexcolor"`
	Icon        *string       `json:"icon" validate:"omitempty,max=50"`
	Category    *string       `json:"category" validate:"omitempty,max=50"`
	StartDate   *FlexibleTime `json:"startDate"`
	EndDate     *FlexibleTime `json:"endDate"`
	IsPrivate   *bool         `json:"isPrivate"`
	Priority    *Priority     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Goals       *[]string     `json:"goals" validate:"omitempty,dive,max=200"`
}

type CreateTaskRequest struct {
	Title       string        `json:"title" validate:"required,notblank,max=200"`
	Description string        `json:"description" validate:"required,notblank,max=5000"`
	Priority    Priority      `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      TaskStatus    `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	DueDate     *FlexibleTime `json:"dueDate" validate:"required"`
	DueTime     string        `json:"dueTime" validate:"max=10"`
	ProjectID   string        `json:"projectId"`
	Tags        []string      `json:"tags" validate:"omitempty,dive,max=50"`
	Category    string        `json:"category" validate:"required,notblank,max=50"`
	AssigneeID  string        `json:"assigneeId"`
}

// UpdateTaskRequest only touches the fields that are present. An empty
// projectId detaches the task from its project.
type UpdateTaskRequest struct {
	Title       *string       `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string       `json:"description" validate:"omitempty,notblank,max=5000"`
	Priority    *Priority     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      *TaskStatus   `json:"status" validate:"omitempty,oneof=pending in-progress completed"`
	DueDate     *FlexibleTime `json:"dueDate"`
	DueTime     *string       `json:"dueTime" validate:"omitempty,max=10"`
	ProjectID   *string       `json:"projectId"`
	Tags        *[]string     `json:"tags" validate:"omitempty,dive,max=50"`
	Category    *string       `json:"category" validate:"omitempty,notblank,max=50"`
	AssigneeID  *string       `json:"assigneeId"`
}

type UpdateTaskStatusRequest struct {
	Status TaskStatus `json:"status" validate:"required,oneof=pending in-progress completed"`
}

// FlexibleTime accepts RFC 3339 timestamps as well as plain dates.
type FlexibleTime struct {
	time.Time
}

var flexibleLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

func (t *FlexibleTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	for _, layout := range flexibleLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// TimePtr returns nil for a nil receiver.
func (t *FlexibleTime) TimePtr() *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}
