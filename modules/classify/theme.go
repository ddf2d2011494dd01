package classify

import (
	"fmt"
	"strings"
)

// Disaster vocabulary. The disaster theme is guarded by a multi-signal gate
// (see ClassifyTheme) so a single scattered keyword can never trigger it.
var disasterKeywords = []string{
	"huracán", "huracan", "hurricane", "tormenta", "ciclón", "ciclon", "tornado",
	"terremoto", "sismo", "temblor", "inundación", "inundacion", "inundaciones",
	"incendio", "incendios", "derrumbe", "colapso", "apagón", "apagon",
	"evacuación", "evacuacion", "damnificados", "desastre", "catástrofe",
	"catastrofe", "emergencia", "deslave", "marejada",
}

var disasterCategories = []string{
	"desastres", "desastre", "disaster", "emergencias", "catástrofes", "catastrofes",
}

// topicRule - keyword cascade for one theme. MinMatches is the gate; justice
// allows a single match because its vocabulary is highly specific.
type topicRule struct {
	Theme      Theme
	MinMatches int
	Keywords   []string
}

var topicRules = []topicRule{
	{ThemeJustice, 1, []string{
		"tribunal", "juicio", "sentencia", "fiscalía", "fiscalia", "fiscal",
		"juez", "jueza", "condena", "condenado", "demanda judicial", "absuelto",
		"veredicto", "apelación", "apelacion", "imputado", "extradición", "extradicion",
	}},
	{ThemePolitics, 2, []string{
		"presidente", "presidenta", "gobierno", "ministro", "ministra", "congreso",
		"senado", "elecciones", "electoral", "parlamento", "diputado", "diputados",
		"decreto", "embajada", "embajador", "canciller", "cancillería", "cancilleria",
		"oposición", "oposicion", "régimen", "regimen", "delegación", "delegacion",
		"conferencia de prensa", "rueda de prensa", "cumbre", "sanciones",
	}},
	{ThemeEconomy, 2, []string{
		"economía", "economia", "inflación", "inflacion", "precios", "dólar",
		"dolar", "divisas", "mercado", "banco central", "impuestos", "salario",
		"salarios", "comercio", "exportaciones", "importaciones", "pib",
		"inversión", "inversion", "aranceles", "remesas", "escasez",
	}},
	{ThemeTechnology, 2, []string{
		"tecnología", "tecnologia", "internet", "software", "aplicación",
		"aplicacion", "inteligencia artificial", "satélite", "satelite",
		"ciberseguridad", "digital", "plataforma", "datos", "algoritmo",
		"startup", "red social", "redes sociales",
	}},
	{ThemeSports, 2, []string{
		"fútbol", "futbol", "béisbol", "beisbol", "boxeo", "olímpico", "olimpico",
		"campeonato", "torneo", "liga", "atleta", "atletas", "medalla", "medallas",
		"partido", "gol", "selección nacional", "seleccion nacional", "mundial",
		"entrenador",
	}},
	{ThemeCulture, 2, []string{
		"música", "musica", "concierto", "festival", "cine", "película",
		"pelicula", "teatro", "arte", "exposición", "exposicion", "libro",
		"novela", "escritor", "cantante", "álbum", "album", "patrimonio",
	}},
	{ThemeSociety, 2, []string{
		"comunidad", "vecinos", "escuela", "escuelas", "hospital", "salud",
		"educación", "educacion", "familia", "familias", "migración", "migracion",
		"migrantes", "vivienda", "transporte", "jubilados", "iglesia",
		"alimentos", "medicinas",
	}},
}

// Politics scene subtypes, checked in order against the already-chosen theme.
var politicsSubtypes = []struct {
	Subtype  string
	Keywords []string
}{
	{SubtypePressConference, []string{"conferencia de prensa", "rueda de prensa", "comparecencia", "declaró ante", "declaro ante", "press conference"}},
	{SubtypePoliticalProtest, []string{"protesta", "protestas", "manifestación", "manifestacion", "marcha", "huelga"}},
	{SubtypeCitizenGovernment, []string{"trámite", "tramite", "trámites", "oficina estatal", "servicios públicos", "servicios publicos", "ventanilla"}},
}

// Military-tension gate: needs at least 2 distinct matches from this narrow
// set so a single war-adjacent word does not flip the scene.
var militaryKeywords = []string{
	"militar", "militares", "tropas", "misiles", "armamento",
	"maniobras militares", "buque de guerra", "despliegue militar",
	"ejército", "ejercito", "portaviones", "base naval",
}

var disasterSubtypes = []struct {
	Subtype  string
	Keywords []string
}{
	{SubtypeHurricane, []string{"huracán", "huracan", "ciclón", "ciclon", "tormenta"}},
	{SubtypeFlood, []string{"inundación", "inundacion", "inundaciones", "desbordamiento"}},
	{SubtypeFire, []string{"incendio", "incendios"}},
	{SubtypeEarthquake, []string{"terremoto", "sismo", "temblor"}},
	{SubtypeBlackout, []string{"apagón", "apagon"}},
}

// ClassifyTheme - ordered cascade, returns on first match:
//  1. disaster gate (multi-signal only)
//  2. topical keyword cascades
//  3. category-string fallback
//  4. generic default
func ClassifyTheme(in Input) Result {
	title := strings.ToLower(in.Title)
	summary := strings.ToLower(in.Summary)
	body := strings.ToLower(in.Body)
	tags := strings.ToLower(strings.Join(in.Tags, " "))
	category := strings.ToLower(strings.TrimSpace(in.Category))
	combined := title + "\n" + summary + "\n" + body + "\n" + tags

	// 1. Disaster gate
	if res, ok := disasterGate(title, body, tags, category, combined); ok {
		return res
	}

	// 2. Topical cascades
	for _, rule := range topicRules {
		count, matched := countKeywords(combined, rule.Keywords)
		if count < rule.MinMatches {
			continue
		}

		confidence := 0.55 + 0.15*float64(count)
		if confidence > 0.95 {
			confidence = 0.95
		}

		res := Result{
			Theme:           rule.Theme,
			Confidence:      confidence,
			Reasons:         []string{fmt.Sprintf("%d %s keyword(s) matched", count, rule.Theme)},
			MatchedKeywords: matched,
		}
		if rule.Theme == ThemePolitics {
			res.SceneSubtype = politicsSubtype(combined)
		}
		return res
	}

	// 3. Category-string fallback
	if category != "" {
		if theme, ok := themeFromCategory(category); ok {
			return Result{
				Theme:      theme,
				Confidence: 0.5,
				Reasons:    []string{fmt.Sprintf("category %q matched theme %s", in.Category, theme)},
			}
		}
	}

	// 4. Generic default
	return Result{
		Theme:      ThemeGeneric,
		Confidence: 0.3,
		Reasons:    []string{"no strong signal, defaulting to generic"},
	}
}

// disasterGate - the disaster theme requires one of:
//   - an explicit disaster category string
//   - >=2 disaster keywords in the title AND >=1 in the body
//   - a disaster keyword in the tags AND >=1 in the title
func disasterGate(title, body, tags, category, combined string) (Result, bool) {
	categoryHit := false
	for _, dc := range disasterCategories {
		if strings.Contains(category, dc) {
			categoryHit = true
			break
		}
	}

	titleCount, titleMatched := countKeywords(title, disasterKeywords)
	bodyCount, _ := countKeywords(body, disasterKeywords)
	tagCount, tagMatched := countKeywords(tags, disasterKeywords)

	var reasons []string
	var confidence float64

	switch {
	case categoryHit:
		confidence = 0.95
		reasons = append(reasons, "explicit disaster category")
	case titleCount >= 2 && bodyCount >= 1:
		confidence = 0.92
		reasons = append(reasons, fmt.Sprintf("%d disaster keyword(s) in title, %d in body", titleCount, bodyCount))
	case tagCount >= 1 && titleCount >= 1:
		confidence = 0.9
		reasons = append(reasons, "disaster keyword in tags confirmed by title")
	default:
		return Result{}, false
	}

	matched := append(append([]string{}, titleMatched...), tagMatched...)

	return Result{
		Theme:           ThemeDisaster,
		Confidence:      confidence,
		Reasons:         reasons,
		Disaster:        true,
		MatchedKeywords: matched,
		SceneSubtype:    disasterSubtype(combined),
	}, true
}

func politicsSubtype(combined string) string {
	for _, st := range politicsSubtypes {
		if count, _ := countKeywords(combined, st.Keywords); count >= 1 {
			return st.Subtype
		}
	}
	if count, _ := countKeywords(combined, militaryKeywords); count >= 2 {
		return SubtypeMilitaryTension
	}
	return ""
}

func disasterSubtype(combined string) string {
	for _, st := range disasterSubtypes {
		if count, _ := countKeywords(combined, st.Keywords); count >= 1 {
			return st.Subtype
		}
	}
	return ""
}

func themeFromCategory(category string) (Theme, bool) {
	categoryThemes := []struct {
		Theme      Theme
		Substrings []string
	}{
		{ThemeJustice, []string{"justicia", "justice", "legal"}},
		{ThemePolitics, []string{"política", "politica", "politics"}},
		{ThemeEconomy, []string{"economía", "economia", "economy", "negocios"}},
		{ThemeTechnology, []string{"tecnología", "tecnologia", "technology", "ciencia"}},
		{ThemeSports, []string{"deportes", "deporte", "sports"}},
		{ThemeCulture, []string{"cultura", "culture", "entretenimiento"}},
		{ThemeSociety, []string{"sociedad", "society", "comunidad"}},
	}

	for _, ct := range categoryThemes {
		for _, sub := range ct.Substrings {
			if strings.Contains(category, sub) {
				return ct.Theme, true
			}
		}
	}
	return ThemeGeneric, false
}

// countKeywords - number of distinct keywords present in the text.
func countKeywords(text string, keywords []string) (int, []string) {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return len(matched), matched
}
