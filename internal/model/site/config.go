package site

// Config carries per-site display settings for the widget. It is
// immutable once resolved for the page lifetime.
type Config struct {
	SiteID         int    `json:"site_id"`
	PrimaryColor   string `json:"primary_color"`
	BotName        string `json:"bot_name"`
	ThemeMode      string `json:"theme_mode"`
	InitialMessage string `json:"initial_message"`
}

// Client-side defaults applied for every field the settings endpoint
// leaves out. These mirror the backend's own column defaults.
const (
	DefaultPrimaryColor   = "#667eea"
	DefaultBotName        = "ChatBot"
	DefaultThemeMode      = "light"
	DefaultInitialMessage = "Hi! How can I help you today?"
)

// Defaults returns the all-defaults configuration for a site. The widget
// must be able to render from this alone when the settings endpoint is
// unreachable.
func Defaults(siteID int) Config {
	return Config{
		SiteID:         siteID,
		PrimaryColor:   DefaultPrimaryColor,
		BotName:        DefaultBotName,
		ThemeMode:      DefaultThemeMode,
		InitialMessage: DefaultInitialMessage,
	}
}

// Merge fills every empty field of partial with the client default and
// returns the completed configuration.
func Merge(siteID int, partial Config) Config {
	cfg := Defaults(siteID)
	if partial.PrimaryColor != "" {
		cfg.PrimaryColor = partial.PrimaryColor
	}
	if partial.BotName != "" {
		cfg.BotName = partial.BotName
	}
	if partial.ThemeMode != "" {
		cfg.ThemeMode = partial.ThemeMode
	}
	if partial.InitialMessage != "" {
		cfg.InitialMessage = partial.InitialMessage
	}
	return cfg
}
