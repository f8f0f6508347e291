package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/profilekeeper/internal/personalcode"
	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

// Mode selects which rules apply and whether absent fields fail.
type Mode uint8

const (
	// Strict is used on creation: every required field must be present.
	Strict Mode = 1 << iota
	// Partial is used on update: absent fields pass unconditionally.
	Partial

	bothModes = Strict | Partial
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Partial:
		return "partial"
	default:
		return "unknown"
	}
}

var (
	namePattern        = regexp.MustCompile(`^\p{L}{2,50}$`)
	phonePattern       = regexp.MustCompile(`^\+370\d{8}$`)
	streetPattern      = regexp.MustCompile(`^\p{L}+( \p{L}+)*$`)
	houseNumberPattern = regexp.MustCompile(`^[0-9]+[A-Za-z]?$`)
	apartmentPattern   = regexp.MustCompile(`^[A-Za-z0-9 ]*$`)
)

// value is a field as seen by the rules. Absent fields are never passed to checks.
type value struct {
	present   bool
	malformed bool
	text      string
	date      time.Time
}

type values map[string]value

type check struct {
	ok      func(v value, all values) bool
	message string
	// only restricts the check to the given modes; zero means every mode.
	only Mode
}

// rule describes one field: the modes it is evaluated in, the modes in which
// its absence is itself a violation, and the ordered checks run when it is
// present. Checks short-circuit per field; fields never short-circuit.
type rule struct {
	field    string
	modes    Mode
	required Mode
	missing  string
	checks   []check
}

func evaluate(mode Mode, rules []rule, vals values) Errors {
	var errs Errors
	for _, r := range rules {
		if r.modes&mode == 0 {
			continue
		}

		v := vals[r.field]
		if !v.present {
			if r.required&mode != 0 {
				errs = append(errs, FieldError{Field: r.field, Message: r.missing})
			}
			continue
		}

		for _, c := range r.checks {
			if c.only != 0 && c.only&mode == 0 {
				continue
			}
			if !c.ok(v, vals) {
				errs = append(errs, FieldError{Field: r.field, Message: c.message})
				break
			}
		}
	}
	return errs
}

func text(s string) value {
	return value{present: strings.TrimSpace(s) != "", text: s}
}

// birthday treats an unparseable date as present so that its format rule
// reports it alongside every other field.
func birthday(t *time.Time, malformed bool) value {
	if malformed {
		return value{present: true, malformed: true}
	}
	if t == nil {
		return value{}
	}
	return value{present: !t.IsZero(), date: *t}
}

func wellFormed(v value, _ values) bool {
	return !v.malformed
}

func matches(re *regexp.Regexp) func(value, values) bool {
	return func(v value, _ values) bool { return re.MatchString(v.text) }
}

func oneOf(allowed ...string) func(value, values) bool {
	return func(v value, _ values) bool {
		for _, a := range allowed {
			if v.text == a {
				return true
			}
		}
		return false
	}
}

func lettersOnly(v value, _ values) bool {
	for _, r := range v.text {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func containsSpace(v value, _ values) bool {
	return strings.Contains(v.text, " ")
}

func exactLength(n int) func(value, values) bool {
	return func(v value, _ values) bool { return len(v.text) == n }
}

func validNationalCode(v value, _ values) bool {
	return personalcode.IsValid(v.text)
}

// genderMatchesCode compares the parity of the first code digit with the
// gender field. An absent or unrecognised gender is reported by its own rule.
func genderMatchesCode(v value, all values) bool {
	g := all[fieldGender]
	if !g.present {
		return true
	}

	var want personalcode.Gender
	switch g.text {
	case models.GenderMale:
		want = personalcode.GenderMale
	case models.GenderFemale:
		want = personalcode.GenderFemale
	default:
		return true
	}
	return personalcode.GenderFromIndicator(v.text) == want
}

const (
	fieldName         = "name"
	fieldLastName     = "lastName"
	fieldGender       = "gender"
	fieldBirthday     = "birthday"
	fieldNationalCode = "nationalCode"
	fieldPhone        = "phone"
	fieldEmail        = "email"
	fieldPhoto        = "photo"
	fieldAddress      = "address"

	fieldCity            = "address.city"
	fieldStreet          = "address.street"
	fieldHouseNumber     = "address.houseNumber"
	fieldApartmentNumber = "address.apartmentNumber"
)

func (v *Validator) personRules() []rule {
	return []rule{
		{
			field: fieldName, modes: bothModes, required: Strict,
			missing: "Name is required.",
			checks: []check{
				{ok: matches(namePattern), message: "Name must be 2-50 characters long and contain only letters."},
			},
		},
		{
			field: fieldLastName, modes: bothModes, required: Strict,
			missing: "Last name is required.",
			checks: []check{
				{ok: matches(namePattern), message: "Last name must be 2-50 characters long and contain only letters."},
			},
		},
		{
			field: fieldGender, modes: Strict, required: Strict,
			missing: "Gender is required.",
			checks: []check{
				{ok: oneOf(models.GenderMale, models.GenderFemale), message: "Invalid gender."},
			},
		},
		{
			field: fieldGender, modes: Partial,
			checks: []check{
				{ok: oneOf(models.GenderMale, models.GenderFemale, models.GenderOther), message: "Invalid gender."},
			},
		},
		{
			field: fieldBirthday, modes: bothModes, required: Strict,
			missing: "Birthday is required.",
			checks: []check{
				{ok: wellFormed, message: "Birthday must be a date in YYYY-MM-DD format."},
				{ok: v.inThePast, message: "Birthday must be a past date."},
			},
		},
		{
			field: fieldNationalCode, modes: bothModes, required: Strict,
			missing: "National code is required.",
			checks: []check{
				{ok: exactLength(personalcode.Length), message: "National code must be exactly 11 digits.", only: Strict},
				{ok: validNationalCode, message: "Invalid Lithuanian personal identification code."},
				// Update requests are not cross-checked against gender.
				{ok: genderMatchesCode, message: "National code does not match the given gender.", only: Strict},
			},
		},
		{
			field: fieldPhone, modes: bothModes, required: Strict,
			missing: "Telephone number is required.",
			checks: []check{
				{ok: matches(phonePattern), message: "Lithuanian telephone number must start with '+370' followed by 8 digits."},
			},
		},
		{
			field: fieldEmail, modes: bothModes, required: Strict,
			missing: "Email is required.",
			checks: []check{
				{ok: v.validEmail, message: "Invalid email format."},
			},
		},
		{
			field: fieldPhoto, modes: Strict, required: Strict,
			missing: "The ProfilePhoto field is required.",
		},
		{
			field: fieldAddress, modes: Strict, required: Strict,
			missing: "Place of residence is required.",
		},
	}
}

func addressRules() []rule {
	return []rule{
		{
			field: fieldCity, modes: bothModes, required: Strict,
			missing: "City is required.",
			checks: []check{
				{ok: lettersOnly, message: "City cannot contain numbers or special characters."},
			},
		},
		{
			field: fieldStreet, modes: bothModes, required: Strict,
			missing: "Street is required.",
			checks: []check{
				{ok: containsSpace, message: "Street must contain at least one space."},
				{ok: matches(streetPattern), message: "Invalid street format."},
			},
		},
		{
			field: fieldHouseNumber, modes: bothModes, required: Strict,
			missing: "House number is required.",
			checks: []check{
				{ok: matches(houseNumberPattern), message: "House number must be digits optionally followed by a single letter."},
			},
		},
		{
			field: fieldApartmentNumber, modes: bothModes,
			checks: []check{
				{ok: matches(apartmentPattern), message: "Apartment number must contain only letters, numbers and spaces."},
			},
		},
	}
}
