package domain

import (
	"strings"
	"time"
)

type Location string

const (
	LocationVirar   Location = "Virar"
	LocationSaphale Location = "Saphale"
)

// Locations lists the areas a listing may be placed in, in display order.
var Locations = []Location{LocationVirar, LocationSaphale}

type PropertyType string

const (
	PropertyResidential PropertyType = "Residential"
	PropertyCommercial  PropertyType = "Commercial"
	PropertyPlot        PropertyType = "Plot"
)

var PropertyTypes = []PropertyType{PropertyResidential, PropertyCommercial, PropertyPlot}

// ParseLocation matches s case-insensitively against the known locations.
func ParseLocation(s string) (Location, bool) {
	for _, l := range Locations {
		if strings.EqualFold(string(l), strings.TrimSpace(s)) {
			return l, true
		}
	}
	return "", false
}

// ParsePropertyType matches s case-insensitively against the known property types.
func ParsePropertyType(s string) (PropertyType, bool) {
	for _, p := range PropertyTypes {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, true
		}
	}
	return "", false
}

type UnitType string

const (
	Unit1BHK UnitType = "1 BHK"
	Unit2BHK UnitType = "2 BHK"
	Unit3BHK UnitType = "3 BHK"
)

// UnitTypes is the fixed checkbox order. Unit options are always stored in
// this order regardless of the order they were selected in.
var UnitTypes = []UnitType{Unit1BHK, Unit2BHK, Unit3BHK}

type UnitOption struct {
	Type  UnitType `json:"type"`
	Price string   `json:"price"`
}

type Listing struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Location     Location     `json:"location"`
	PropertyType PropertyType `json:"propertyType"`
	Price        string       `json:"price"`
	Area         string       `json:"area"`
	Description  string       `json:"description"`
	BHKSummary   string       `json:"bhk"`
	UnitOptions  []UnitOption `json:"bhkOptions"`
	Images       []string     `json:"images"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Cover returns the first image URL, or "" when the listing has no images.
func (l *Listing) Cover() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0]
}

// BHKSummary joins the unit type labels of opts for display, e.g. "1 BHK, 2 BHK".
func BHKSummary(opts []UnitOption) string {
	labels := make([]string, 0, len(opts))
	for _, o := range opts {
		labels = append(labels, string(o.Type))
	}
	return strings.Join(labels, ", ")
}

// Upload is an image file selected in the editor and not yet stored.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Draft carries the editable fields of a listing from the editor to the
// repository. KeptImages are URLs already in storage; NewImages are appended
// after them once uploaded.
type Draft struct {
	Title        string
	Location     Location
	PropertyType PropertyType
	Price        string
	Area         string
	Description  string
	UnitOptions  []UnitOption
	KeptImages   []string
	NewImages    []Upload
}

type AdminUser struct {
	ID           string
	Email        string
	PasswordHash string
	Disabled     bool
	CreatedAt    time.Time
}

// OrphanedBlob is a stored blob that no listing document references.
type OrphanedBlob struct {
	URL        string
	Reason     string
	RecordedAt time.Time
}

type Enquiry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Interest  string    `json:"interest"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
