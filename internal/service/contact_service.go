package service

import (
	"context"
	"errors"
	"html"
	"log"
	"strings"
	"time"

	"github.com/contactkeeper/backend/internal/dto"
	"github.com/contactkeeper/backend/internal/model"
	"github.com/contactkeeper/backend/internal/repository"
	"github.com/contactkeeper/backend/pkg/apperror"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

const (
	maxPageSize         = 500
	defaultBirthdayDays = 7
)

type ContactService interface {
	List(ctx context.Context, limit, offset int, ownerID *uuid.UUID) ([]*model.Contact, error)
	Get(ctx context.Context, id uint, ownerID *uuid.UUID) (*model.Contact, error)
	Create(ctx context.Context, input dto.CreateContactRequest, ownerID *uuid.UUID) (*model.Contact, error)
	Update(ctx context.Context, id uint, input dto.UpdateContactRequest, ownerID *uuid.UUID) (*model.Contact, error)
	Delete(ctx context.Context, id uint, ownerID *uuid.UUID) error
	UpcomingBirthdays(ctx context.Context, days, limit, offset int, ownerID *uuid.UUID) ([]*model.Contact, error)
	Search(ctx context.Context, query string, ownerID *uuid.UUID) ([]*model.Contact, error)
}

type contactService struct {
	repo      repository.ContactRepository
	indexer   ContactIndexer
	sanitizer *bluemonday.Policy
}

func NewContactService(repo repository.ContactRepository, indexer ContactIndexer) ContactService {
	return &contactService{
		repo:      repo,
		indexer:   indexer,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *contactService) List(ctx context.Context, limit, offset int, ownerID *uuid.UUID) ([]*model.Contact, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.FindAll(ctx, limit, offset, ownerID)
}

func (s *contactService) Get(ctx context.Context, id uint, ownerID *uuid.UUID) (*model.Contact, error) {
	contact, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	return contact, nil
}

func (s *contactService) Create(ctx context.Context, input dto.CreateContactRequest, ownerID *uuid.UUID) (*model.Contact, error) {
	birthday, err := input.ParsedBirthday()
	if err != nil {
		return nil, apperror.ErrInvalidInput
	}

	contact := &model.Contact{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Birthday:    birthday,
		Description: s.cleanDescription(input.Description),
		OwnerID:     ownerID,
		Emails:      emailRows(input.Emails),
		Phones:      phoneRows(input.Phones),
	}

	if err := s.repo.Create(ctx, contact); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.ErrDuplicateEmail
		}
		return nil, err
	}

	s.index(contact)

	return contact, nil
}

func (s *contactService) Update(ctx context.Context, id uint, input dto.UpdateContactRequest, ownerID *uuid.UUID) (*model.Contact, error) {
	// Ownership check up front; unowned rows look like they don't exist.
	existing, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	birthday, err := input.ParsedBirthday()
	if err != nil {
		return nil, apperror.ErrInvalidInput
	}

	contact := &model.Contact{
		ID:          existing.ID,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Birthday:    birthday,
		Description: s.cleanDescription(input.Description),
		OwnerID:     existing.OwnerID,
		Emails:      emailRows(input.Emails),
		Phones:      phoneRows(input.Phones),
	}

	replaceEmails := input.Emails != nil
	replacePhones := input.Phones != nil

	if err := s.repo.Update(ctx, contact, replaceEmails, replacePhones); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.ErrDuplicateEmail
		}
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		// Concurrently deleted between the write and the re-read.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}

	s.index(updated)

	return updated, nil
}

func (s *contactService) Delete(ctx context.Context, id uint, ownerID *uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.ErrNotFound
		}
		return err
	}

	if s.indexer != nil {
		go func() {
			if err := s.indexer.DeleteContact(id); err != nil {
				log.Printf("failed to remove contact %d from search index: %v", id, err)
			}
		}()
	}

	return nil
}

func (s *contactService) UpcomingBirthdays(ctx context.Context, days, limit, offset int, ownerID *uuid.UUID) ([]*model.Contact, error) {
	if days <= 0 {
		days = defaultBirthdayDays
	}
	limit, offset = clampPage(limit, offset)

	today := time.Now()
	return s.repo.FindUpcomingBirthdays(ctx, today, days, limit, offset, ownerID)
}

func (s *contactService) Search(ctx context.Context, query string, ownerID *uuid.UUID) ([]*model.Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.Contact{}, nil
	}

	return s.repo.Search(ctx, query, ownerID)
}

// cleanDescription strips any markup from the free-text description before
// it is persisted.
func (s *contactService) cleanDescription(description *string) *string {
	if description == nil {
		return nil
	}

	sanitized := html.UnescapeString(s.sanitizer.Sanitize(*description))
	sanitized = strings.TrimSpace(sanitized)
	if sanitized == "" {
		return nil
	}

	return &sanitized
}

func (s *contactService) index(contact *model.Contact) {
	if s.indexer == nil {
		return
	}

	go func() {
		if err := s.indexer.IndexContact(contact); err != nil {
			log.Printf("failed to index contact %d: %v", contact.ID, err)
		}
	}()
}

func clampPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func emailRows(inputs []dto.EmailInput) []model.ContactEmail {
	if inputs == nil {
		return nil
	}
	rows := make([]model.ContactEmail, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, model.ContactEmail{Email: in.Email})
	}
	return rows
}

func phoneRows(inputs []dto.PhoneInput) []model.ContactPhone {
	if inputs == nil {
		return nil
	}
	rows := make([]model.ContactPhone, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, model.ContactPhone{Phone: in.Phone})
	}
	return rows
}
