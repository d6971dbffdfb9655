package handlers

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/Skotchmaster/meetsync/internal/models"
)

const (
	msgFieldsRequired = "All fields are required"
	msgIDNameRequired = "ID and name are required"
)

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignUpRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error(msgFieldsRequired), validation.Length(1, 200).Error("Name is too long")),
		validation.Field(&r.Email, validation.Required.Error(msgFieldsRequired), validation.Length(1, 254).Error("Email is too long")),
		// bcrypt refuses passwords longer than 72 bytes
		validation.Field(&r.Password, validation.Required.Error(msgFieldsRequired), validation.Length(1, 72).Error("Password must be at most 72 bytes")),
	)
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignInRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required.Error(msgFieldsRequired)),
		validation.Field(&r.Password, validation.Required.Error(msgFieldsRequired)),
	)
}

type TokenProviderRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (r *TokenProviderRequest) Normalize() {
	r.ID = strings.TrimSpace(r.ID)
	r.Name = strings.TrimSpace(r.Name)
}

func (r TokenProviderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.Required.Error(msgIDNameRequired), validation.Length(1, 128).Error("Invalid id")),
		validation.Field(&r.Name, validation.Required.Error(msgIDNameRequired)),
	)
}

type CreateMeetingRequest struct {
	Title string `json:"title"`
}

func (r *CreateMeetingRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
}

func (r CreateMeetingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(0, 200).Error("Title is too long")),
	)
}

// validationMessage prefers the missing-field message over any other field
// error, then falls back to the first error in field name order.
func validationMessage(err error, required string) string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return required
	}
	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if verrs[k].Error() == required {
			return required
		}
	}
	return verrs[keys[0]].Error()
}

type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func NewUserSummary(u *models.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type SignUpResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SignInResponse struct {
	Success     bool        `json:"success"`
	Token       string      `json:"token"`
	StreamToken string      `json:"streamToken"`
	User        UserSummary `json:"user"`
}

type ProfileResponse struct {
	User *models.User `json:"user"`
}

type ProviderUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type TokenProviderResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    ProviderUser `json:"user"`
}

type MeetingResponse struct {
	Success bool           `json:"success"`
	Meeting models.Meeting `json:"meeting"`
}

type SearchResponse struct {
	Total    int64            `json:"total"`
	Meetings []models.Meeting `json:"meetings"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
