package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aronkovacs/real-estate-scrapers/models"
)

var (
	digitRe = regexp.MustCompile(`\d`)
	yearRe  = regexp.MustCompile(`\b(1[789]\d{2}|20\d{2})\b`)
)

// IsNumeric reports whether s is plain decimal float syntax. Strings with
// grouping separators ("1,123") are not numeric; normalize them first.
func IsNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// ContainsNumber reports whether s contains at least one digit.
func ContainsNumber(s string) bool {
	return digitRe.MatchString(s)
}

// ExtractYear returns the first plausible four-digit year (1700-2099) in s.
func ExtractYear(s string) (int, error) {
	match := yearRe.FindString(s)
	if match == "" {
		return 0, fmt.Errorf("no year in %q", s)
	}
	return strconv.Atoi(match)
}

// DecimalComma parses a continental-format number such as "1.000,50".
func DecimalComma(s string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("parse decimal-comma number %q: %w", s, err)
	}
	return value, nil
}

// DecimalGrouped parses a comma-grouped number such as "1,420,000".
func DecimalGrouped(s string) (float64, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("parse grouped number %q: %w", s, err)
	}
	return value, nil
}

// NormalizeSpace trims s and collapses internal whitespace, including the
// non-breaking spaces the listing sites are fond of.
func NormalizeSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// ValidateListing ensures the page object captured the fields the store
// cannot do without.
func ValidateListing(item *models.RealEstate) error {
	if item == nil {
		return fmt.Errorf("listing is nil")
	}
	if strings.TrimSpace(item.Scrape.URL) == "" {
		return fmt.Errorf("listing missing scrape url")
	}
	if strings.TrimSpace(item.Location.Country) == "" {
		return fmt.Errorf("listing missing country for %s", item.Scrape.URL)
	}
	if strings.TrimSpace(item.Location.City) == "" {
		return fmt.Errorf("listing missing city for %s", item.Scrape.URL)
	}
	switch item.ListingType {
	case models.ListingSale, models.ListingRent:
	default:
		return fmt.Errorf("listing has unknown type %q for %s", item.ListingType, item.Scrape.URL)
	}
	return nil
}
