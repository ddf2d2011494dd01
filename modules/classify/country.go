package classify

import (
	"strings"
)

// countryRule - alias table entry. Aliases are matched case-insensitively on
// word boundaries; city/province names map to their country.
type countryRule struct {
	Code    string
	Name    string
	Aliases []string
}

var countryRules = []countryRule{
	{Code: "CU", Name: "Cuba", Aliases: []string{
		"cuba", "cubano", "cubana", "cubanos", "la habana", "havana", "habana",
		"holguín", "holguin", "santiago de cuba", "matanzas", "camagüey", "camaguey",
		"pinar del río", "pinar del rio", "villa clara", "cienfuegos", "guantánamo",
		"guantanamo", "granma", "las tunas", "sancti spíritus", "sancti spiritus",
		"artemisa", "mayabeque", "ciego de ávila", "ciego de avila", "varadero",
	}},
	{Code: "US", Name: "Estados Unidos", Aliases: []string{
		"estados unidos", "eeuu", "ee.uu.", "united states", "washington",
		"miami", "florida", "nueva york", "new york", "casa blanca", "white house",
		"texas", "california",
	}},
	{Code: "MX", Name: "México", Aliases: []string{
		"méxico", "mexico", "mexicano", "mexicana", "ciudad de méxico", "cdmx",
		"guadalajara", "monterrey", "cancún", "cancun",
	}},
	{Code: "ES", Name: "España", Aliases: []string{
		"españa", "español", "española", "madrid", "barcelona", "sevilla",
		"valencia", "islas canarias",
	}},
	{Code: "VE", Name: "Venezuela", Aliases: []string{
		"venezuela", "venezolano", "venezolana", "caracas", "maracaibo",
	}},
	{Code: "CO", Name: "Colombia", Aliases: []string{
		"colombia", "colombiano", "colombiana", "bogotá", "bogota", "medellín",
		"medellin", "cali",
	}},
	{Code: "AR", Name: "Argentina", Aliases: []string{
		"argentina", "argentino", "buenos aires", "córdoba", "cordoba",
	}},
	{Code: "BR", Name: "Brasil", Aliases: []string{
		"brasil", "brazil", "brasileño", "brasilia", "são paulo", "sao paulo",
		"río de janeiro", "rio de janeiro",
	}},
	{Code: "HT", Name: "Haití", Aliases: []string{
		"haití", "haiti", "haitiano", "puerto príncipe", "puerto principe",
	}},
	{Code: "DO", Name: "República Dominicana", Aliases: []string{
		"república dominicana", "republica dominicana", "dominicano",
		"santo domingo", "punta cana",
	}},
	{Code: "NI", Name: "Nicaragua", Aliases: []string{"nicaragua", "managua"}},
	{Code: "RU", Name: "Rusia", Aliases: []string{
		"rusia", "ruso", "rusa", "moscú", "moscu", "kremlin",
	}},
	{Code: "CN", Name: "China", Aliases: []string{"china", "chino", "pekín", "pekin", "beijing", "shanghái", "shanghai"}},
	{Code: "UA", Name: "Ucrania", Aliases: []string{"ucrania", "ucraniano", "kiev", "kyiv"}},
	{Code: "IL", Name: "Israel", Aliases: []string{"israel", "israelí", "tel aviv", "jerusalén", "jerusalen"}},
	{Code: "FR", Name: "Francia", Aliases: []string{"francia", "francés", "parís", "paris"}},
	{Code: "DE", Name: "Alemania", Aliases: []string{"alemania", "alemán", "berlín", "berlin"}},
	{Code: "CA", Name: "Canadá", Aliases: []string{"canadá", "canada", "canadiense", "toronto", "ottawa"}},
}

// GlobalCountry - the neutral result returned when nothing matches. Never a
// guessed default country.
func GlobalCountry() CountryDetection {
	return CountryDetection{Name: "global", Tier: TierNone, EconomicLevel: "neutral"}
}

// DetectCountry - scan title, summary and body (in that priority order) for
// the first alias occurrence by text position. The first match wins; multiple
// countries are never aggregated. Confidence tier reflects where the match
// occurred: title > summary > body.
func DetectCountry(in Input) CountryDetection {
	fields := []struct {
		text string
		tier string
	}{
		{in.Title, TierHigh},
		{in.Summary, TierMedium},
		{in.Body, TierLow},
	}

	for _, field := range fields {
		if strings.TrimSpace(field.text) == "" {
			continue
		}
		if rule, ok := earliestCountryMatch(field.text); ok {
			return CountryDetection{
				Code:          rule.Code,
				Name:          rule.Name,
				Tier:          field.tier,
				EconomicLevel: "neutral",
			}
		}
	}

	return GlobalCountry()
}

// earliestCountryMatch - earliest alias occurrence by position in the text,
// independent of rule order.
func earliestCountryMatch(text string) (countryRule, bool) {
	lower := strings.ToLower(text)

	best := -1
	var bestRule countryRule

	for _, rule := range countryRules {
		for _, alias := range rule.Aliases {
			idx := indexWord(lower, alias)
			if idx < 0 {
				continue
			}
			if best < 0 || idx < best {
				best = idx
				bestRule = rule
			}
		}
	}

	return bestRule, best >= 0
}

// indexWord - index of alias in text requiring non-letter boundaries, so
// "cuba" does not match inside "incubadora".
func indexWord(text, alias string) int {
	from := 0
	for {
		idx := strings.Index(text[from:], alias)
		if idx < 0 {
			return -1
		}
		abs := from + idx
		if hasWordBoundary(text, abs, len(alias)) {
			return abs
		}
		from = abs + 1
	}
}

func hasWordBoundary(text string, idx, length int) bool {
	if idx > 0 {
		prev := rune(text[idx-1])
		if isWordByte(prev) {
			return false
		}
	}
	end := idx + length
	if end < len(text) {
		next := rune(text[end])
		if isWordByte(next) {
			return false
		}
	}
	return true
}

func isWordByte(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r >= 0x80
}
