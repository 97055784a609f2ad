package dto

import (
	"time"

	"github.com/contactkeeper/backend/internal/model"
	"github.com/google/uuid"
)

const birthdayLayout = "2006-01-02"

type EmailInput struct {
	Email string `json:"email" binding:"required,email"`
}

type PhoneInput struct {
	Phone string `json:"phone" binding:"required,min=3,max=30"`
}

type CreateContactRequest struct {
	FirstName   string       `json:"firstname" binding:"required,min=3,max=50"`
	LastName    string       `json:"lastname" binding:"required,min=3,max=50"`
	Birthday    string       `json:"birthday" binding:"required,datetime=2006-01-02"`
	Description *string      `json:"description" binding:"omitempty,min=3,max=250"`
	Emails      []EmailInput `json:"emails" binding:"omitempty,dive"`
	Phones      []PhoneInput `json:"phones" binding:"omitempty,dive"`
}

// UpdateContactRequest replaces scalar fields unconditionally. Emails and
// phones follow full-replace semantics: a nil slice leaves the existing set
// untouched, a present slice (even empty) replaces the whole set.
type UpdateContactRequest struct {
	FirstName   string       `json:"firstname" binding:"required,min=3,max=50"`
	LastName    string       `json:"lastname" binding:"required,min=3,max=50"`
	Birthday    string       `json:"birthday" binding:"required,datetime=2006-01-02"`
	Description *string      `json:"description" binding:"omitempty,min=3,max=250"`
	Emails      []EmailInput `json:"emails" binding:"omitempty,dive"`
	Phones      []PhoneInput `json:"phones" binding:"omitempty,dive"`
}

func (r CreateContactRequest) ParsedBirthday() (time.Time, error) {
	return time.Parse(birthdayLayout, r.Birthday)
}

func (r UpdateContactRequest) ParsedBirthday() (time.Time, error) {
	return time.Parse(birthdayLayout, r.Birthday)
}

type ListContactsQuery struct {
	Limit  int `form:"limit,default=10" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset,default=0" binding:"omitempty,min=0"`
}

type BirthdaysQuery struct {
	Days   int `form:"days,default=7" binding:"omitempty,min=1,max=366"`
	Limit  int `form:"limit,default=10" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset,default=0" binding:"omitempty,min=0"`
}

type SearchContactsQuery struct {
	Query string `form:"q" binding:"required,min=1"`
}

type EmailResponse struct {
	Email string `json:"email"`
}

type PhoneResponse struct {
	Phone string `json:"phone"`
}

type ContactResponse struct {
	ID          uint            `json:"id"`
	FirstName   string          `json:"firstname"`
	LastName    string          `json:"lastname"`
	Birthday    string          `json:"birthday"`
	Description *string         `json:"description,omitempty"`
	OwnerID     *uuid.UUID      `json:"owner_id,omitempty"`
	Emails      []EmailResponse `json:"emails"`
	Phones      []PhoneResponse `json:"phones"`
}

func NewContactResponse(contact *model.Contact) ContactResponse {
	emails := make([]EmailResponse, 0, len(contact.Emails))
	for _, e := range contact.Emails {
		emails = append(emails, EmailResponse{Email: e.Email})
	}

	phones := make([]PhoneResponse, 0, len(contact.Phones))
	for _, p := range contact.Phones {
		phones = append(phones, PhoneResponse{Phone: p.Phone})
	}

	return ContactResponse{
		ID:          contact.ID,
		FirstName:   contact.FirstName,
		LastName:    contact.LastName,
		Birthday:    contact.Birthday.Format(birthdayLayout),
		Description: contact.Description,
		OwnerID:     contact.OwnerID,
		Emails:      emails,
		Phones:      phones,
	}
}

func NewContactListResponse(contacts []*model.Contact) []ContactResponse {
	out := make([]ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, NewContactResponse(c))
	}
	return out
}
