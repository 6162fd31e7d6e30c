package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Embed is the configuration the host page declares on the widget
// script tag. The backend origin is derived from the script's own
// source URL so a single script serves every deployment.
type Embed struct {
	Origin   string
	SiteID   int
	Position string
}

// ResolveEmbed interprets the embed contract: the script src locates the
// backend, data-site-id identifies the tenant (default 1) and
// data-position is an optional placement hint.
func ResolveEmbed(scriptSrc string, attrs map[string]string) (Embed, error) {
	src, err := url.Parse(strings.TrimSpace(scriptSrc))
	if err != nil {
		return Embed{}, fmt.Errorf("invalid script src %q: %w", scriptSrc, err)
	}
	if src.Scheme == "" || src.Host == "" {
		return Embed{}, fmt.Errorf("script src %q has no origin", scriptSrc)
	}

	embed := Embed{
		Origin:   src.Scheme + "://" + src.Host,
		SiteID:   1,
		Position: "bottom-right",
	}

	if raw, ok := attrs["data-site-id"]; ok && strings.TrimSpace(raw) != "" {
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return Embed{}, fmt.Errorf("invalid data-site-id value %q: %w", raw, err)
		}
		embed.SiteID = id
	}

	if raw, ok := attrs["data-position"]; ok && strings.TrimSpace(raw) != "" {
		embed.Position = strings.TrimSpace(raw)
	}

	return embed, nil
}
