package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/contactkeeper/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactRepository operations take an optional owner: a non-nil ownerID
// scopes the query to that user's contacts, nil means unscoped (admin paths).
type ContactRepository interface {
	FindAll(ctx context.Context, limit, offset int, ownerID *uuid.UUID) ([]*model.Contact, error)
	FindByID(ctx context.Context, id uint, ownerID *uuid.UUID) (*model.Contact, error)
	Create(ctx context.Context, contact *model.Contact) error
	// Update replaces the contact's scalar fields. When replaceEmails (resp.
	// replacePhones) is true the whole associated set is deleted and rewritten
	// from contact.Emails, even when the replacement set is empty.
	Update(ctx context.Context, contact *model.Contact, replaceEmails, replacePhones bool) error
	Delete(ctx context.Context, id uint, ownerID *uuid.UUID) error
	FindUpcomingBirthdays(ctx context.Context, today time.Time, days, limit, offset int, ownerID *uuid.UUID) ([]*model.Contact, error)
	Search(ctx context.Context, query string, ownerID *uuid.UUID) ([]*model.Contact, error)
}

type contactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) scoped(db *gorm.DB, ownerID *uuid.UUID) *gorm.DB {
	if ownerID != nil {
		return db.Where("owner_id = ?", *ownerID)
	}
	return db
}

func (r *contactRepository) FindAll(ctx context.Context, limit, offset int, ownerID *uuid.UUID) ([]*model.Contact, error) {
	var contacts []*model.Contact
	query := r.scoped(r.db.WithContext(ctx), ownerID).
		Preload("Emails").
		Preload("Phones").
		Order("id")

	if err := query.Offset(offset).Limit(limit).Find(&contacts).Error; err != nil {
		return nil, err
	}

	return contacts, nil
}

func (r *contactRepository) FindByID(ctx context.Context, id uint, ownerID *uuid.UUID) (*model.Contact, error) {
	var contact model.Contact
	query := r.scoped(r.db.WithContext(ctx), ownerID).
		Preload("Emails").
		Preload("Phones").
		Where("contacts.id = ?", id)

	if err := query.First(&contact).Error; err != nil {
		return nil, err
	}

	return &contact, nil
}

func (r *contactRepository) Create(ctx context.Context, contact *model.Contact) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		emails := contact.Emails
		phones := contact.Phones
		contact.Emails = nil
		contact.Phones = nil

		// Parent row first: the children need the generated contact id.
		if err := tx.Create(contact).Error; err != nil {
			return err
		}

		for i := range emails {
			emails[i].ContactID = contact.ID
			if err := tx.Create(&emails[i]).Error; err != nil {
				return err
			}
		}

		for i := range phones {
			phones[i].ContactID = contact.ID
			if err := tx.Create(&phones[i]).Error; err != nil {
				return err
			}
		}

		contact.Emails = emails
		contact.Phones = phones
		return nil
	})
}

func (r *contactRepository) Update(ctx context.Context, contact *model.Contact, replaceEmails, replacePhones bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"first_name":  contact.FirstName,
			"last_name":   contact.LastName,
			"birthday":    contact.Birthday,
			"description": contact.Description,
		}
		if err := tx.Model(&model.Contact{}).
			Where("id = ?", contact.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if replaceEmails {
			if err := tx.Where("contact_id = ?", contact.ID).
				Delete(&model.ContactEmail{}).Error; err != nil {
				return err
			}
			for i := range contact.Emails {
				contact.Emails[i].ID = 0
				contact.Emails[i].ContactID = contact.ID
				if err := tx.Create(&contact.Emails[i]).Error; err != nil {
					return err
				}
			}
		}

		if replacePhones {
			if err := tx.Where("contact_id = ?", contact.ID).
				Delete(&model.ContactPhone{}).Error; err != nil {
				return err
			}
			for i := range contact.Phones {
				contact.Phones[i].ID = 0
				contact.Phones[i].ContactID = contact.ID
				if err := tx.Create(&contact.Phones[i]).Error; err != nil {
					return err
				}
			}
		}

		return nil
	})
}

func (r *contactRepository) Delete(ctx context.Context, id uint, ownerID *uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var contact model.Contact
		if err := r.scoped(tx, ownerID).Where("contacts.id = ?", id).First(&contact).Error; err != nil {
			return err
		}

		// Children before the parent row, all inside the same transaction.
		if err := tx.Where("contact_id = ?", contact.ID).Delete(&model.ContactEmail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("contact_id = ?", contact.ID).Delete(&model.ContactPhone{}).Error; err != nil {
			return err
		}

		return tx.Delete(&model.Contact{}, contact.ID).Error
	})
}

// FindUpcomingBirthdays matches on calendar month/day, ignoring the birth
// year, so a window that spans a year boundary (Dec 29 -> Jan 3) still
// returns January birthdays. The window is inclusive on both ends.
func (r *contactRepository) FindUpcomingBirthdays(ctx context.Context, today time.Time, days, limit, offset int, ownerID *uuid.UUID) ([]*model.Contact, error) {
	keys := make([]string, 0, days+2)
	for i := 0; i <= days; i++ {
		d := today.AddDate(0, 0, i)
		keys = append(keys, d.Format("01-02"))
		// In a non-leap year "02-29" never occurs in the window, which
		// would make Feb 29 birthdays unmatchable. Fold them onto Feb 28.
		if d.Month() == time.February && d.Day() == 28 && !isLeapYear(d.Year()) {
			keys = append(keys, "02-29")
		}
	}

	var monthDayExpr string
	switch r.db.Dialector.Name() {
	case "postgres":
		monthDayExpr = "to_char(birthday, 'MM-DD')"
	default:
		// sqlite (tests)
		monthDayExpr = "strftime('%m-%d', birthday)"
	}

	var contacts []*model.Contact
	query := r.scoped(r.db.WithContext(ctx), ownerID).
		Preload("Emails").
		Preload("Phones").
		Where(fmt.Sprintf("%s IN ?", monthDayExpr), keys).
		Order("id")

	if err := query.Offset(offset).Limit(limit).Find(&contacts).Error; err != nil {
		return nil, err
	}

	return contacts, nil
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func (r *contactRepository) Search(ctx context.Context, query string, ownerID *uuid.UUID) ([]*model.Contact, error) {
	like := "LIKE"
	if r.db.Dialector.Name() == "postgres" {
		like = "ILIKE"
	}
	pattern := "%" + query + "%"

	condition := fmt.Sprintf(
		"first_name %[1]s ? OR last_name %[1]s ?"+
			" OR EXISTS (SELECT 1 FROM contact_emails WHERE contact_emails.contact_id = contacts.id AND contact_emails.email %[1]s ?)"+
			" OR EXISTS (SELECT 1 FROM contact_phones WHERE contact_phones.contact_id = contacts.id AND contact_phones.phone %[1]s ?)",
		like,
	)

	var contacts []*model.Contact
	q := r.scoped(r.db.WithContext(ctx), ownerID).
		Preload("Emails").
		Preload("Phones").
		Where(condition, pattern, pattern, pattern, pattern).
		Order("id")

	if err := q.Find(&contacts).Error; err != nil {
		return nil, err
	}

	return contacts, nil
}
