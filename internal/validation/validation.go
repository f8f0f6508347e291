// Package validation checks person records field by field.
//
// Create requests are validated in Strict mode, where every required field
// must be present. Update requests are validated in Partial mode, where only
// the fields supplied are checked. All violations are collected and returned
// together as Errors.
package validation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

// Validator is safe for concurrent use.
type Validator struct {
	now    func() time.Time
	checks *validator.Validate
}

type Option func(*Validator)

// WithClock overrides the clock used to decide whether a birthday is in the past.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func New(opts ...Option) *Validator {
	v := &Validator{
		now:    time.Now,
		checks: validator.New(),
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// ValidatePerson validates a record being created.
func (v *Validator) ValidatePerson(in models.PersonInput) error {
	vals := values{
		fieldName:         text(in.Name),
		fieldLastName:     text(in.LastName),
		fieldGender:       text(in.Gender),
		fieldBirthday:     birthday(&in.Birthday, in.BirthdayMalformed),
		fieldNationalCode: text(in.NationalCode),
		fieldPhone:        text(in.Phone),
		fieldEmail:        text(in.Email),
		fieldPhoto:        {present: len(in.Photo) > 0},
		fieldAddress:      {present: in.Address != nil},
	}

	errs := evaluate(Strict, v.personRules(), vals)
	if in.Address != nil {
		errs = append(errs, evaluate(Strict, addressRules(), addressValues(in.Address))...)
	}
	return errs.orNil()
}

// ValidatePersonPatch validates the supplied fields of an update.
func (v *Validator) ValidatePersonPatch(p models.PersonPatch) error {
	vals := values{
		fieldName:         text(p.Name),
		fieldLastName:     text(p.LastName),
		fieldGender:       text(p.Gender),
		fieldNationalCode: text(p.NationalCode),
		fieldPhone:        text(p.Phone),
		fieldEmail:        text(p.Email),
	}
	if p.Birthday != nil || p.BirthdayMalformed {
		vals[fieldBirthday] = birthday(p.Birthday, p.BirthdayMalformed)
	}

	errs := evaluate(Partial, v.personRules(), vals)
	if p.Address != nil {
		errs = append(errs, evaluate(Partial, addressRules(), addressValues(p.Address))...)
	}
	return errs.orNil()
}

func addressValues(a *models.Address) values {
	return values{
		fieldCity:            text(a.City),
		fieldStreet:          text(a.Street),
		fieldHouseNumber:     text(a.HouseNumber),
		fieldApartmentNumber: text(a.ApartmentNumber),
	}
}

func (v *Validator) inThePast(val value, _ values) bool {
	return val.date.Before(v.now())
}

func (v *Validator) validEmail(val value, _ values) bool {
	return v.checks.Var(val.text, "required,email") == nil
}
