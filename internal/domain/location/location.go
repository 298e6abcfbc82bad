// Package location provides the progressive four-level place selector.
package location

import "strings"

// Step represents the level the selector is currently asking for.
type Step int

const (
	StepCountry Step = iota
	StepProvince
	StepCity
	StepNeighbourhood
)

// String returns the string representation of the step.
func (s Step) String() string {
	switch s {
	case StepCountry:
		return "country"
	case StepProvince:
		return "province"
	case StepCity:
		return "city"
	case StepNeighbourhood:
		return "neighbourhood"
	default:
		return "unknown"
	}
}

// ParseStep parses a step name. Unknown names map to StepCountry.
func ParseStep(s string) Step {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "province":
		return StepProvince
	case "city":
		return StepCity
	case "neighbourhood":
		return StepNeighbourhood
	default:
		return StepCountry
	}
}

// Selection is the four-level place selection. Selecting a level always
// clears every deeper level, so a neighbourhood can never exist without
// its city. All values are normalized before storage; the empty
// selection is valid and means "no location filter".
type Selection struct {
	Country       string `json:"country,omitempty"`
	Province      string `json:"province,omitempty"`
	City          string `json:"city,omitempty"`
	Neighbourhood string `json:"neighbourhood,omitempty"`

	cursor Step
}

// Step returns the level the selector is currently at.
func (s *Selection) Step() Step {
	return s.cursor
}

// SelectCountry sets the country and clears all deeper levels.
func (s *Selection) SelectCountry(v string) {
	s.Country = Normalize(v)
	s.Province = ""
	s.City = ""
	s.Neighbourhood = ""
	s.cursor = StepProvince
}

// SelectProvince sets the province and clears all deeper levels.
func (s *Selection) SelectProvince(v string) {
	s.Province = Normalize(v)
	s.City = ""
	s.Neighbourhood = ""
	s.cursor = StepCity
}

// SelectCity sets the city and clears the neighbourhood.
func (s *Selection) SelectCity(v string) {
	s.City = Normalize(v)
	s.Neighbourhood = ""
	s.cursor = StepNeighbourhood
}

// SelectNeighbourhood sets the neighbourhood. The cursor stays at the
// terminal step.
func (s *Selection) SelectNeighbourhood(v string) {
	s.Neighbourhood = Normalize(v)
	s.cursor = StepNeighbourhood
}

// ResetFrom clears the given level and everything deeper, and moves the
// cursor back to that level. Used when a breadcrumb segment is tapped.
func (s *Selection) ResetFrom(level Step) {
	switch level {
	case StepCountry:
		s.Country = ""
		fallthrough
	case StepProvince:
		s.Province = ""
		fallthrough
	case StepCity:
		s.City = ""
		fallthrough
	case StepNeighbourhood:
		s.Neighbourhood = ""
	}
	s.cursor = level
}

// ClearAll resets the selection to empty.
func (s *Selection) ClearAll() {
	s.ResetFrom(StepCountry)
}

// IsEmpty reports whether no level is selected.
func (s *Selection) IsEmpty() bool {
	return s.Country == "" && s.Province == "" && s.City == "" && s.Neighbourhood == ""
}

// Breadcrumb returns the selected levels in drill-down order.
func (s *Selection) Breadcrumb() []string {
	crumbs := make([]string, 0, 4)
	for _, v := range []string{s.Country, s.Province, s.City, s.Neighbourhood} {
		if v == "" {
			break
		}
		crumbs = append(crumbs, v)
	}
	return crumbs
}

// minorWords stay lower-cased in titles unless they lead.
var minorWords = map[string]bool{
	"a": true, "an": true, "and": true, "at": true, "by": true,
	"de": true, "for": true, "in": true, "la": true, "of": true,
	"on": true, "or": true, "the": true, "to": true,
}

// Normalize collapses whitespace and applies smart title case so that
// "NEW YORK" and "new  york" compare equal downstream.
func Normalize(v string) string {
	words := strings.Fields(v)
	for i, w := range words {
		lower := strings.ToLower(w)
		if i > 0 && minorWords[lower] {
			words[i] = lower
			continue
		}
		words[i] = titleWord(lower)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	for i, r := range w {
		return strings.ToUpper(string(r)) + w[i+len(string(r)):]
	}
	return w
}
