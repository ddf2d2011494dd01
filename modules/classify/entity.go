package classify

import (
	"regexp"
	"strings"
)

// Event phenomena patterns. Checked before person detection; when one matches
// the detector returns immediately and person extraction is skipped.
var eventPatterns = []struct {
	EventType string
	Pattern   *regexp.Regexp
}{
	{"storm", regexp.MustCompile(`(?i)\b(huracán|huracan|hurricane|tormenta tropical|ciclón|ciclon|tifón|tifon)\b`)},
	{"earthquake", regexp.MustCompile(`(?i)\b(terremoto|sismo|temblor de tierra|earthquake)\b`)},
	{"fire", regexp.MustCompile(`(?i)\b(incendio|incendios|wildfire|fuego descontrolado)\b`)},
	{"blackout", regexp.MustCompile(`(?i)\b(apagón|apagon|apagones|corte eléctrico|corte electrico|blackout)\b`)},
	{"flood", regexp.MustCompile(`(?i)\b(inundación|inundacion|inundaciones|desbordamiento|flood|flooding)\b`)},
	{"protest", regexp.MustCompile(`(?i)\b(protesta|protestas|manifestación|manifestacion|manifestantes)\b`)},
}

// namedEventPattern - picks up the proper name following a phenomenon word,
// e.g. "Huracán Ana" -> "Huracán Ana".
var namedEventPattern = regexp.MustCompile(`\b(Huracán|Huracan|Tormenta|Ciclón|Ciclon|Tifón|Tifon)\s+([A-ZÁÉÍÓÚÑ][a-záéíóúñü]+)`)

// candidatePattern - capitalized multi-word sequences as person-name
// candidates.
var candidatePattern = regexp.MustCompile(`\b[A-ZÁÉÍÓÚÑ][a-záéíóúñü'\-]+(?:\s+[A-ZÁÉÍÓÚÑ][a-záéíóúñü'\-]+)+\b`)

// genericTitlePattern - "official title + preposition" sequences that look
// like names but are generic role mentions ("Ministro de Transporte"). These
// are excluded from scoring entirely, not merely penalized.
var genericTitlePattern = regexp.MustCompile(`^(Ministro|Ministra|Presidente|Presidenta|Director|Directora|Jefe|Jefa|Secretario|Secretaria|Gobernador|Gobernadora|Alcalde|Alcaldesa|Vicepresidente|Canciller)\s+(de|del|de la|para)\b`)

var nameStopWords = map[string]bool{
	"El": true, "La": true, "Los": true, "Las": true, "Un": true, "Una": true,
	"De": true, "Del": true, "En": true, "Con": true, "Por": true, "Para": true,
	"Se": true, "Su": true, "Sus": true, "Este": true, "Esta": true, "Estos": true,
	"Según": true, "Segun": true, "Tras": true, "Ante": true, "Desde": true,
	"Hasta": true, "Sin": true, "Sobre": true, "The": true, "New": true,
}

// DetectEntity - decide whether the article centers on a natural/civil
// phenomenon or on a public figure. Events take priority and the two results
// are mutually exclusive. Person candidates need at least 2 mentions or a
// verbatim tag entry; otherwise "no entity" is returned rather than a
// low-confidence guess.
func DetectEntity(in Input) EntityDetection {
	combined := strings.Join([]string{in.Title, in.Summary, in.Body}, "\n")

	// Event check first
	for _, ep := range eventPatterns {
		if ep.Pattern.MatchString(combined) {
			det := EntityDetection{EventType: ep.EventType, Confidence: 0.9}
			if m := namedEventPattern.FindStringSubmatch(combined); m != nil {
				det.EventName = m[1] + " " + m[2]
			}
			return det
		}
	}

	candidates := candidatePattern.FindAllString(combined, -1)
	if len(candidates) == 0 {
		return EntityDetection{}
	}

	type score struct {
		mentions int
		inTags   bool
		inTitle  bool
	}
	scores := map[string]*score{}

	for _, cand := range candidates {
		cand = strings.TrimSpace(cand)
		if isStopWordSequence(cand) || genericTitlePattern.MatchString(cand) {
			continue
		}
		if _, seen := scores[cand]; seen {
			continue
		}
		scores[cand] = &score{
			mentions: strings.Count(combined, cand),
			inTags:   tagMatch(in.Tags, cand),
			inTitle:  strings.Contains(in.Title, cand),
		}
	}

	bestName := ""
	bestScore := 0
	var best *score
	for name, s := range scores {
		total := s.mentions * 50
		if s.inTags {
			total += 30
		}
		if s.inTitle {
			total += 20
		}
		if total > bestScore {
			bestScore = total
			bestName = name
			best = s
		}
	}

	if best == nil {
		return EntityDetection{}
	}

	// Acceptance threshold: repeated mentions or explicit tag membership.
	if best.mentions < 2 && !best.inTags {
		return EntityDetection{}
	}

	confidence := float64(bestScore) / 150.0
	if confidence > 1.0 {
		confidence = 1.0
	}

	return EntityDetection{
		IsPerson:      true,
		PrimaryPerson: bestName,
		Mentions:      best.mentions,
		InTags:        best.inTags,
		Confidence:    confidence,
	}
}

func isStopWordSequence(candidate string) bool {
	for _, word := range strings.Fields(candidate) {
		if !nameStopWords[word] {
			return false
		}
	}
	return true
}

func tagMatch(tags []string, candidate string) bool {
	for _, tag := range tags {
		if strings.EqualFold(strings.TrimSpace(tag), candidate) {
			return true
		}
	}
	return false
}
