package records

import "strings"

// CategoryOther is returned when no classification rule matches.
const CategoryOther = "other"

// rule maps a category to the keywords that select it.
type rule struct {
	category string
	keywords []string
}

// classifyRules is the ordered rule list the classifier walks. Order matters:
// the first matching rule wins, so earlier rules take precedence on
// descriptions matching several categories (e.g. "Airport Cafe" is food,
// not transport).
var classifyRules = []rule{
	{"food", []string{
		"coffee", "cafe", "restaurant", "grocery", "supermarket",
		"bakery", "deli", "pizza", "burger", "takeaway", "food",
	}},
	{"transport", []string{
		"uber", "taxi", "fuel", "petrol", "gas station", "parking",
		"transit", "railway", "rail", "airline", "airport", "bus",
	}},
	{"bills", []string{
		"electric", "water", "utility", "internet", "phone", "mobile",
		"insurance", "rent", "subscription",
	}},
	{"shopping", []string{
		"amazon", "store", "shop", "retail", "clothing", "pharmacy",
	}},
	{"entertainment", []string{
		"cinema", "theatre", "concert", "streaming", "game", "bar", "pub",
	}},
	{"health", []string{
		"doctor", "dental", "hospital", "clinic", "gym", "fitness",
	}},
	{"income", []string{
		"salary", "payroll", "wages", "dividend", "interest", "refund",
	}},
}

// Classify assigns a best-effort category by keyword matching on the
// free-text description. Pure function; unmatched descriptions fall through
// to CategoryOther.
func Classify(description string) string {
	probe := strings.ToLower(description)

	for _, r := range classifyRules {
		for _, kw := range r.keywords {
			if strings.Contains(probe, kw) {
				return r.category
			}
		}
	}

	return CategoryOther
}
