package classify

// ContextRule - static prompt-building material for one theme. Negative
// prompts are deliberately minimal (text/logos/watermarks only): broad
// negative prompting suppressed legitimate imagery in practice.
type ContextRule struct {
	Scene    string
	Negative string
	Style    string

	// EconomicVariants is keyed by economic tier ("low", "medium", "high").
	// The selector is pinned to "neutral" and these rows are never consulted;
	// they stay in the table pending product guidance on economic-tier
	// imagery.
	EconomicVariants map[string]string
}

const minimalNegative = "text, words, letters, logos, watermarks"

var contextRules = map[Theme]ContextRule{
	ThemeDisaster: {
		Scene:    "wide documentary view of emergency responders and residents working together after severe weather, overcast sky, debris being cleared",
		Negative: minimalNegative,
		Style:    "photojournalism, natural light, respectful tone",
		EconomicVariants: map[string]string{
			"low":  "modest housing, improvised repairs",
			"high": "modern infrastructure, organized relief operation",
		},
	},
	ThemeJustice: {
		Scene:    "formal courthouse exterior with stone columns, scales-of-justice motif, people in business attire on the steps",
		Negative: minimalNegative,
		Style:    "editorial photography, neutral framing",
	},
	ThemePolitics: {
		Scene:    "government building with flags, officials at a podium, press microphones in the foreground",
		Negative: minimalNegative,
		Style:    "editorial news photography, balanced composition",
		EconomicVariants: map[string]string{
			"low":  "aging institutional building",
			"high": "polished assembly hall",
		},
	},
	ThemeEconomy: {
		Scene:    "street market and storefronts with people shopping, currency exchange board in soft focus, everyday commerce",
		Negative: minimalNegative,
		Style:    "documentary photography, warm daylight",
		EconomicVariants: map[string]string{
			"low":  "informal street vendors",
			"high": "financial district skyline",
		},
	},
	ThemeTechnology: {
		Scene:    "modern workspace with screens showing abstract data visualizations, hands on a keyboard, soft blue lighting",
		Negative: minimalNegative,
		Style:    "clean tech editorial look, shallow depth of field",
	},
	ThemeSports: {
		Scene:    "stadium atmosphere with athletes in motion, dramatic action moment, crowd blurred in the background",
		Negative: minimalNegative,
		Style:    "sports photography, high shutter speed look",
	},
	ThemeCulture: {
		Scene:    "vibrant cultural performance on stage, warm spotlights, audience silhouettes",
		Negative: minimalNegative,
		Style:    "event photography, rich colors",
	},
	ThemeSociety: {
		Scene:    "neighborhood street scene with people of different ages interacting, everyday life, human warmth",
		Negative: minimalNegative,
		Style:    "documentary photography, candid framing",
	},
	ThemePersonPress: {
		Scene:    "professional press appearance, podium with microphones, neutral institutional backdrop",
		Negative: minimalNegative,
		Style:    "press photography, centered subject",
	},
	ThemeGeneric: {
		Scene:    "clean abstract editorial composition with soft geometric shapes and a calm color palette",
		Negative: minimalNegative,
		Style:    "minimalist graphic design",
	},
}

// NeutralScene is the middle escalation rung: ordinary editorial imagery with
// nothing topical left to object to. It deliberately carries no theme,
// location or person detail.
const NeutralScene = "calm city street in soft morning light, ordinary daily activity, people only as distant silhouettes"

// Scene-subtype refinements appended to the base scene.
var subtypeScenes = map[string]string{
	SubtypePressConference:   "press conference setting, row of microphones, journalists with notepads",
	SubtypePoliticalProtest:  "peaceful street demonstration, banners without readable text, daylight",
	SubtypeCitizenGovernment: "citizens waiting at a public service office, queue at a counter",
	SubtypeMilitaryTension:   "naval vessels on the horizon viewed from the coast, tense but calm atmosphere",
	SubtypeHurricane:         "palm trees bending in strong wind, rain-soaked streets",
	SubtypeFlood:             "flooded street with water reflecting buildings, residents wading carefully",
	SubtypeFire:              "smoke column over rooftops at a safe distance, firefighters at work",
	SubtypeEarthquake:        "cracked masonry and rescue workers, dust in the air",
	SubtypeBlackout:          "darkened city block at dusk, candlelight in windows",
}

// ContextFor - rule-table lookup. Unknown themes fall back to the generic
// entry; this never fails.
func ContextFor(theme Theme) ContextRule {
	if rule, ok := contextRules[theme]; ok {
		return rule
	}
	return contextRules[ThemeGeneric]
}

// SceneForSubtype - refinement text for a scene subtype, empty when none.
func SceneForSubtype(subtype string) string {
	return subtypeScenes[subtype]
}

// EconomicTier - tier selector for prompt variants. Always "neutral": the
// per-tier rows above are intentionally not wired up (bias avoidance until
// product guidance says otherwise).
func EconomicTier(CountryDetection) string {
	return "neutral"
}
