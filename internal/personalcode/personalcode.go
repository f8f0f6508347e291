// Package personalcode validates and decodes 11-digit national
// identification codes of the form GYYMMDDNNNC:
//
//	G     century and gender indicator (1..8, odd = male, even = female)
//	YYMMDD date of birth within the century selected by G
//	NNN   serial number
//	C     check digit
//
// All functions are pure and safe for concurrent use.
package personalcode

import "time"

// Length is the exact number of digits in a valid code.
const Length = 11

// Gender is the sex encoded by the first digit of a code.
type Gender int

const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
)

func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return "Unknown"
	}
}

// Result is the outcome of Validate. Birthdate and Gender are only
// meaningful when Valid is true.
type Result struct {
	Valid     bool
	Birthdate time.Time
	Gender    Gender
}

var (
	primaryWeights   = [10]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 1}
	secondaryWeights = [10]int{3, 4, 5, 6, 7, 8, 9, 1, 2, 3}
)

// Validate reports whether code is a well-formed national identification
// code and, if so, decodes the birth date and gender it carries.
// Malformed input never panics; it yields a zero Result.
func Validate(code string) Result {
	digits, ok := parseDigits(code)
	if !ok {
		return Result{}
	}

	century, gender, ok := decodeIndicator(digits[0])
	if !ok {
		return Result{}
	}

	year := century + digits[1]*10 + digits[2]
	month := digits[3]*10 + digits[4]
	day := digits[5]*10 + digits[6]

	birthdate, ok := calendarDate(year, month, day)
	if !ok {
		return Result{}
	}

	if CheckDigit(digits) != digits[10] {
		return Result{}
	}

	return Result{Valid: true, Birthdate: birthdate, Gender: gender}
}

// IsValid is a shorthand for Validate(code).Valid.
func IsValid(code string) bool {
	return Validate(code).Valid
}

// CheckDigit computes the expected check digit from the first ten digits.
// When the primary weighted sum leaves remainder 10 the secondary weights
// are applied; a second remainder of 10 maps to 0.
func CheckDigit(digits [Length]int) int {
	remainder := weightedSum(digits, primaryWeights) % 11
	if remainder != 10 {
		return remainder
	}

	remainder = weightedSum(digits, secondaryWeights) % 11
	if remainder == 10 {
		return 0
	}
	return remainder
}

// GenderFromIndicator returns the gender encoded by the first character of
// code, or GenderUnknown if it is not a digit in 1..8.
func GenderFromIndicator(code string) Gender {
	if len(code) == 0 || code[0] < '0' || code[0] > '9' {
		return GenderUnknown
	}
	_, g, ok := decodeIndicator(int(code[0] - '0'))
	if !ok {
		return GenderUnknown
	}
	return g
}

func weightedSum(digits [Length]int, weights [10]int) int {
	sum := 0
	for i, w := range weights {
		sum += digits[i] * w
	}
	return sum
}

// parseDigits rejects anything that is not exactly Length ASCII digits
// before any further interpretation.
func parseDigits(code string) ([Length]int, bool) {
	var digits [Length]int
	if len(code) != Length {
		return digits, false
	}
	for i := 0; i < Length; i++ {
		c := code[i]
		if c < '0' || c > '9' {
			return digits, false
		}
		digits[i] = int(c - '0')
	}
	return digits, true
}

func decodeIndicator(g int) (century int, gender Gender, ok bool) {
	if g < 1 || g > 8 {
		return 0, GenderUnknown, false
	}

	century = 1800 + ((g-1)/2)*100

	gender = GenderFemale
	if g%2 == 1 {
		gender = GenderMale
	}
	return century, gender, true
}

// calendarDate builds a UTC date and rejects components that time.Date
// would silently normalize (e.g. February 30th).
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
