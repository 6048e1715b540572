package coupon

// Book maps valid academy coupon codes to academy display names. Codes are
// deployment configuration, not business logic; matching is case-sensitive.
type Book struct {
	codes map[string]string
}

// NewBook creates a coupon book from a code -> academy name mapping.
func NewBook(codes map[string]string) *Book {
	copied := make(map[string]string, len(codes))
	for code, name := range codes {
		copied[code] = name
	}
	return &Book{codes: copied}
}

// Eligibility is the result of a coupon check. An unknown code is a valid
// negative result, not an error.
type Eligibility struct {
	Eligible    bool   `json:"eligible"`
	AcademyName string `json:"academyName,omitempty"`
}

// Check looks up a coupon code. Pure, no side effects.
func (b *Book) Check(code string) Eligibility {
	if code == "" {
		return Eligibility{}
	}
	name, ok := b.codes[code]
	if !ok {
		return Eligibility{}
	}
	return Eligibility{Eligible: true, AcademyName: name}
}

// Len returns the number of configured codes.
func (b *Book) Len() int { return len(b.codes) }
