package classify

// Theme - closed set of visual themes a cover image can be classified into.
type Theme string

const (
	ThemeDisaster    Theme = "disaster"
	ThemeJustice     Theme = "justice"
	ThemePolitics    Theme = "politics"
	ThemeEconomy     Theme = "economy"
	ThemeTechnology  Theme = "technology"
	ThemeSports      Theme = "sports"
	ThemeCulture     Theme = "culture"
	ThemeSociety     Theme = "society"
	ThemePersonPress Theme = "person-press"
	ThemeGeneric     Theme = "generic"
)

// Scene subtypes emitted alongside the theme.
const (
	SubtypePressConference   = "press_conference"
	SubtypePoliticalProtest  = "political_protest"
	SubtypeCitizenGovernment = "citizen_government_interaction"
	SubtypeMilitaryTension   = "military_tension"
	SubtypeHurricane         = "hurricane_aftermath"
	SubtypeFlood             = "flood_scene"
	SubtypeFire              = "fire_scene"
	SubtypeEarthquake        = "earthquake_damage"
	SubtypeBlackout          = "blackout_scene"
)

// Input - the article fields every detector works from.
type Input struct {
	Title    string
	Summary  string
	Body     string
	Tags     []string
	Category string
}

// Result - the theme classification for one article. Produced once, never
// mutated.
type Result struct {
	Theme           Theme    `json:"theme"`
	Confidence      float64  `json:"confidence"`
	Reasons         []string `json:"reasons"`
	Disaster        bool     `json:"disaster"`
	MatchedKeywords []string `json:"matched_keywords"`
	SceneSubtype    string   `json:"scene_subtype,omitempty"`
}

// EntityDetection - person-vs-event detection result. IsPerson and EventType
// are never both set; event detection wins.
type EntityDetection struct {
	IsPerson      bool    `json:"is_person"`
	PrimaryPerson string  `json:"primary_person,omitempty"`
	Mentions      int     `json:"mentions"`
	InTags        bool    `json:"in_tags"`
	Confidence    float64 `json:"confidence"`
	EventType     string  `json:"event_type,omitempty"`
	EventName     string  `json:"event_name,omitempty"`
}

// Country confidence tiers, derived from where the match occurred.
const (
	TierNone   = "none"
	TierLow    = "low"
	TierMedium = "medium"
	TierHigh   = "high"
)

// CountryDetection - first country/locale match found in the article.
type CountryDetection struct {
	Code          string `json:"code,omitempty"`
	Name          string `json:"name"` // "global" sentinel when nothing matched
	Tier          string `json:"tier"`
	EconomicLevel string `json:"economic_level"` // always "neutral" for now
}

// IsGlobal - true when no country matched.
func (c CountryDetection) IsGlobal() bool {
	return c.Code == ""
}
