package registry

// Paths of settings the core reacts to.
const (
	PathPrimaryColor = "appearance.theme.primaryColor"
	PathColorMode    = "appearance.theme.colorMode"
	PathHeadNavStyle = "appearance.theme.headNavStyle"
	PathLanguage     = "general.general.language"
)

// RegisterDefaults registers all built-in launcher settings.
func (r *Registry) RegisterDefaults() {
	// Appearance
	r.MustRegister(Setting{
		Path:        PathPrimaryColor,
		Type:        TypeString,
		Default:     "blue",
		Description: "Accent colour, a palette name or #rrggbb",
		Check:       CheckColor,
		Tags:        []string{"appearance", "theme"},
	})

	r.MustRegister(Setting{
		Path:        PathColorMode,
		Type:        TypeEnum,
		Default:     "light",
		Description: "Light or dark display, or follow the operating system",
		Enum:        []any{"light", "dark", "system"},
		Tags:        []string{"appearance", "theme"},
	})

	r.MustRegister(Setting{
		Path:        PathHeadNavStyle,
		Type:        TypeEnum,
		Default:     "standard",
		Description: "Style of the top navigation bar",
		Enum:        []any{"standard", "simplified", "simplified-left"},
		Tags:        []string{"appearance", "theme"},
	})

	r.MustRegister(Setting{
		Path:        "appearance.background.choice",
		Type:        TypeString,
		Default:     "%built-in:Jokull",
		Description: "Selected background, built-in key or custom file name",
		Tags:        []string{"appearance", "background"},
	})

	r.MustRegister(Setting{
		Path:        "appearance.background.presetChoice",
		Type:        TypeString,
		Default:     "Jokull",
		Description: "Last selected built-in background",
		Tags:        []string{"appearance", "background"},
	})

	r.MustRegister(Setting{
		Path:        "appearance.accessibility.invertColors",
		Type:        TypeBool,
		Default:     false,
		Description: "Invert display colours",
		Tags:        []string{"appearance", "accessibility"},
	})

	r.MustRegister(Setting{
		Path:        "appearance.accessibility.enhanceContrast",
		Type:        TypeBool,
		Default:     false,
		Description: "Increase display contrast",
		Tags:        []string{"appearance", "accessibility"},
	})

	// General
	r.MustRegister(Setting{
		Path:        PathLanguage,
		Type:        TypeString,
		Default:     "en",
		Description: "Display language tag",
		Pattern:     `^[a-z]{2,3}(-[A-Za-z0-9]+)*$`,
		Tags:        []string{"general", "i18n"},
	})

	r.MustRegister(Setting{
		Path:        "general.optionalFunctions.discover",
		Type:        TypeBool,
		Default:     false,
		Description: "Show the discover page",
		Tags:        []string{"general"},
	})

	// Download
	r.MustRegister(Setting{
		Path:        "download.transmission.concurrentCount",
		Type:        TypeInt,
		Default:     64,
		Description: "Maximum parallel downloads",
		Minimum:     MinValue(1),
		Maximum:     MaxValue(128),
		Tags:        []string{"download"},
	})
}
