package service

import (
	"fmt"
	"log"

	"github.com/contactkeeper/backend/internal/model"
	"github.com/meilisearch/meilisearch-go"
)

// ContactIndexer keeps an external search index in sync with contact
// mutations. Indexing is best effort: the relational store stays the source
// of truth for the search endpoints, the index only serves auxiliary
// full-text lookups.
type ContactIndexer interface {
	IndexContact(contact *model.Contact) error
	DeleteContact(id uint) error
}

type meiliContactIndexer struct {
	client meilisearch.ServiceManager
}

// NewMeiliContactIndexer wires a Meilisearch-backed indexer. Returns nil when
// the client is nil so callers can treat the indexer as optional.
func NewMeiliContactIndexer(client meilisearch.ServiceManager) ContactIndexer {
	if client == nil {
		return nil
	}

	s := &meiliContactIndexer{client: client}
	s.initIndex()
	return s
}

func (s *meiliContactIndexer) initIndex() {
	filterable := []any{"owner_id"}
	if _, err := s.client.Index("contacts").UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("failed to update contacts filterable attributes: %v", err)
	}

	sortable := []string{"lastname", "firstname"}
	if _, err := s.client.Index("contacts").UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("failed to update contacts sortable attributes: %v", err)
	}
}

type meiliContactDoc struct {
	ID        uint     `json:"id"`
	FirstName string   `json:"firstname"`
	LastName  string   `json:"lastname"`
	Birthday  string   `json:"birthday"`
	OwnerID   string   `json:"owner_id"`
	Emails    []string `json:"emails"`
	Phones    []string `json:"phones"`
}

func (s *meiliContactIndexer) IndexContact(contact *model.Contact) error {
	doc := meiliContactDoc{
		ID:        contact.ID,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Birthday:  contact.Birthday.Format("2006-01-02"),
	}

	if contact.OwnerID != nil {
		doc.OwnerID = contact.OwnerID.String()
	}

	for _, e := range contact.Emails {
		doc.Emails = append(doc.Emails, e.Email)
	}
	for _, p := range contact.Phones {
		doc.Phones = append(doc.Phones, p.Phone)
	}

	primaryKey := "id"
	if _, err := s.client.Index("contacts").AddDocuments([]meiliContactDoc{doc}, &primaryKey); err != nil {
		return fmt.Errorf("failed to index contact %d: %w", contact.ID, err)
	}

	return nil
}

func (s *meiliContactIndexer) DeleteContact(id uint) error {
	if _, err := s.client.Index("contacts").DeleteDocument(fmt.Sprintf("%d", id)); err != nil {
		return fmt.Errorf("failed to delete contact %d from index: %w", id, err)
	}

	return nil
}
