package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/profilekeeper/internal/access"
	"github.com/dmitrijs2005/profilekeeper/internal/common"
	"github.com/dmitrijs2005/profilekeeper/internal/dbx"
	"github.com/dmitrijs2005/profilekeeper/internal/logging"
	"github.com/dmitrijs2005/profilekeeper/internal/server/metrics"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
	"github.com/dmitrijs2005/profilekeeper/internal/server/photos"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/profilekeeper/internal/validation"
)

const (
	msgPhotoNotImage = "Profile photo must be a valid image."
	msgPhotoTooLarge = "Profile photo dimensions are too large."
)

// PersonService manages person records. Creation validates the full record,
// updates validate only the supplied fields and require ownership.
type PersonService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	validator   *validation.Validator
	photos      photos.Store
	metrics     *metrics.Metrics
	log         logging.Logger
	newID       func() string
}

func NewPersonService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	v *validation.Validator,
	store photos.Store,
	met *metrics.Metrics,
	log logging.Logger,
) *PersonService {
	return &PersonService{
		db:          db,
		repomanager: m,
		validator:   v,
		photos:      store,
		metrics:     met,
		log:         log.With("module", "persons"),
		newID:       uuid.NewString,
	}
}

// Create validates in, checks the owner exists, stores the resized photo and
// inserts the person with its address in one transaction.
func (s *PersonService) Create(ctx context.Context, ownerID string, in models.PersonInput) (*models.Person, error) {
	if err := s.validator.ValidatePerson(in); err != nil {
		s.metrics.IncValidationFailure(metrics.OpCreate)
		return nil, err
	}

	if _, err := s.repomanager.Users(s.db).GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error looking up owner: %w", err)
	}

	addr := *in.Address
	p := &models.Person{
		ID:           s.newID(),
		OwnerID:      ownerID,
		Name:         in.Name,
		LastName:     in.LastName,
		Gender:       in.Gender,
		Birthday:     dateOnly(in.Birthday),
		NationalCode: in.NationalCode,
		Phone:        in.Phone,
		Email:        in.Email,
		Address:      &addr,
	}

	key, err := s.storePhoto(ctx, p.ID, in.Photo)
	if err != nil {
		return nil, err
	}
	p.PhotoKey, p.HasPhoto = key, key != ""

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Persons(tx).Create(ctx, p)
	})
	if err != nil {
		s.discardPhoto(ctx, key)
		return nil, fmt.Errorf("error creating person: %w", err)
	}

	s.metrics.IncPersonOperation(metrics.OpCreate)
	s.log.Info(ctx, "person created", "person_id", p.ID, "owner_id", ownerID)
	return p, nil
}

func (s *PersonService) Get(ctx context.Context, id string) (*models.Person, error) {
	p, err := s.repomanager.Persons(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, personLookupError(err)
	}
	return p, nil
}

func (s *PersonService) List(ctx context.Context) ([]*models.Person, error) {
	list, err := s.repomanager.Persons(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing persons: %w", err)
	}
	return list, nil
}

// Update applies the non-blank fields of patch. Existence is checked first,
// then ownership, then the supplied values.
func (s *PersonService) Update(ctx context.Context, actorID, id string, patch models.PersonPatch) (*models.Person, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanMutatePerson(actorID, p.OwnerID) {
		return nil, ErrUpdateOthers
	}
	if err := s.validator.ValidatePersonPatch(patch); err != nil {
		s.metrics.IncValidationFailure(metrics.OpUpdate)
		return nil, err
	}

	mergePatch(p, patch)

	oldKey := p.PhotoKey
	newKey, err := s.storePhoto(ctx, p.ID, patch.Photo)
	if err != nil {
		return nil, err
	}
	if newKey != "" {
		p.PhotoKey, p.HasPhoto = newKey, true
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Persons(tx).Update(ctx, p)
	})
	if err != nil {
		s.discardPhoto(ctx, newKey)
		return nil, personLookupError(err)
	}
	if newKey != "" {
		s.discardPhoto(ctx, oldKey)
	}

	s.metrics.IncPersonOperation(metrics.OpUpdate)
	s.log.Info(ctx, "person updated", "person_id", p.ID)
	return p, nil
}

func (s *PersonService) Delete(ctx context.Context, actorID, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !access.CanMutatePerson(actorID, p.OwnerID) {
		return ErrDeleteOthers
	}

	if err := s.repomanager.Persons(s.db).Delete(ctx, id); err != nil {
		return personLookupError(err)
	}
	s.discardPhoto(ctx, p.PhotoKey)

	s.metrics.IncPersonOperation(metrics.OpDelete)
	s.log.Info(ctx, "person deleted", "person_id", id)
	return nil
}

// Photo returns the stored JPEG of a person.
func (s *PersonService) Photo(ctx context.Context, id string) ([]byte, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.HasPhoto {
		return nil, ErrPhotoNotFound
	}

	data, err := s.photos.Get(ctx, p.PhotoKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, fmt.Errorf("error reading photo: %w", err)
	}
	return data, nil
}

// storePhoto resizes and uploads raw, returning its key. Empty input stores nothing.
func (s *PersonService) storePhoto(ctx context.Context, personID string, raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	resized, err := photos.Resize(raw)
	if err != nil {
		switch {
		case errors.Is(err, photos.ErrNotImage):
			return "", validation.Single("photo", msgPhotoNotImage)
		case errors.Is(err, photos.ErrTooLarge):
			return "", validation.Single("photo", msgPhotoTooLarge)
		}
		return "", fmt.Errorf("error resizing photo: %w", err)
	}

	key := photos.NewKey(personID)
	if err := s.photos.Put(ctx, key, resized); err != nil {
		return "", fmt.Errorf("error storing photo: %w", err)
	}
	return key, nil
}

// discardPhoto deletes an object that is no longer referenced. Failures are
// logged, not returned.
func (s *PersonService) discardPhoto(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.photos.Delete(ctx, key); err != nil {
		s.log.Warn(ctx, "orphaned photo", "key", key, "error", err)
	}
}

// mergePatch copies every present field of patch into p. Address fields are
// merged one by one; a missing address is created.
func mergePatch(p *models.Person, patch models.PersonPatch) {
	setIfPresent(&p.Name, patch.Name)
	setIfPresent(&p.LastName, patch.LastName)
	setIfPresent(&p.Gender, patch.Gender)
	if patch.Birthday != nil {
		p.Birthday = dateOnly(*patch.Birthday)
	}
	setIfPresent(&p.NationalCode, patch.NationalCode)
	setIfPresent(&p.Phone, patch.Phone)
	setIfPresent(&p.Email, patch.Email)

	if patch.Address == nil {
		return
	}
	if p.Address == nil {
		p.Address = &models.Address{}
	}
	setIfPresent(&p.Address.City, patch.Address.City)
	setIfPresent(&p.Address.Street, patch.Address.Street)
	setIfPresent(&p.Address.HouseNumber, patch.Address.HouseNumber)
	setIfPresent(&p.Address.ApartmentNumber, patch.Address.ApartmentNumber)
}

func setIfPresent(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func personLookupError(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return ErrPersonNotFound
	}
	return fmt.Errorf("error accessing person: %w", err)
}
