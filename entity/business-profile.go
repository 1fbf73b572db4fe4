package entity

import "github.com/biter777/countries"

// BusinessProfile supplies the display data shown alongside a redeemed
// reward. The engine reads it by the project owner's identity and never
// writes it; the profile editor lives outside this service.
type BusinessProfile struct {
	OwnerId     string `json:"owner_id" bson:"owner_id"`
	Name        string `json:"name" bson:"name"`
	LogoUrl     string `json:"logo_url,omitempty" bson:"logo_url,omitempty"`
	Address     string `json:"address,omitempty" bson:"address,omitempty"`
	Phone       string `json:"phone,omitempty" bson:"phone,omitempty"`
	CountryCode string `json:"country_code,omitempty" bson:"country_code,omitempty"`
}

// BusinessDisplay is the customer-facing projection of a profile.
type BusinessDisplay struct {
	Name    string `json:"name"`
	LogoUrl string `json:"logo_url,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Country string `json:"country,omitempty"`
}

// Display resolves the stored ISO country code to a human-readable name.
// An unknown or empty code leaves the country field blank.
func (b *BusinessProfile) Display() *BusinessDisplay {
	d := &BusinessDisplay{
		Name:    b.Name,
		LogoUrl: b.LogoUrl,
		Address: b.Address,
		Phone:   b.Phone,
	}
	if b.CountryCode != "" {
		country := countries.ByName(b.CountryCode)
		if country != countries.Unknown {
			d.Country = country.String()
		}
	}
	return d
}
