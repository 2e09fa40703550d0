package features

import "divrisk/internal/config"

// OtherBucket collects sectors and countries outside the fixed vocabulary.
const OtherBucket = "_other"

// EncodedCountries is the one-hot vocabulary for country encoding, in
// column order. Everything else lands in the _other bucket.
var EncodedCountries = []string{
	"US",
	"CA",
	"GB",
	"DE",
	"FR",
	"CH",
	"NL",
	"JP",
	"AU",
	"IE",
}

// SectorOneHot encodes a sector into the fixed vocabulary, normalizing
// provider aliases first. Returns the encoding map keyed by sector name
// plus the _other bucket.
func SectorOneHot(sector string) map[string]bool {
	if canonical, ok := config.SectorNormalization[sector]; ok {
		sector = canonical
	}

	encoding := make(map[string]bool, len(config.AllSectors)+1)
	matched := false
	for _, s := range config.AllSectors {
		hit := s == sector
		encoding[s] = hit
		matched = matched || hit
	}
	encoding[OtherBucket] = !matched
	return encoding
}

// CountryOneHot encodes a country code into the fixed vocabulary plus
// the _other bucket.
func CountryOneHot(country string) map[string]bool {
	encoding := make(map[string]bool, len(EncodedCountries)+1)
	matched := false
	for _, c := range EncodedCountries {
		hit := c == country
		encoding[c] = hit
		matched = matched || hit
	}
	encoding[OtherBucket] = !matched
	return encoding
}
