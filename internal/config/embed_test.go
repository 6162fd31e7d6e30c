package config

import "testing"

func TestResolveEmbedDefaults(t *testing.T) {
	embed, err := ResolveEmbed("https://bot.example.com/static/widget.js", nil)
	if err != nil {
		t.Fatalf("ResolveEmbed err: %v", err)
	}

	if embed.Origin != "https://bot.example.com" {
		t.Fatalf("unexpected origin: %q", embed.Origin)
	}
	if embed.SiteID != 1 {
		t.Fatalf("expected default site id 1, got %d", embed.SiteID)
	}
	if embed.Position != "bottom-right" {
		t.Fatalf("expected default position, got %q", embed.Position)
	}
}

func TestResolveEmbedAttributes(t *testing.T) {
	attrs := map[string]string{
		"data-site-id":  "42",
		"data-position": "bottom-left",
	}
	embed, err := ResolveEmbed("http://localhost:5000/static/widget.js", attrs)
	if err != nil {
		t.Fatalf("ResolveEmbed err: %v", err)
	}

	if embed.Origin != "http://localhost:5000" {
		t.Fatalf("unexpected origin: %q", embed.Origin)
	}
	if embed.SiteID != 42 {
		t.Fatalf("unexpected site id: %d", embed.SiteID)
	}
	if embed.Position != "bottom-left" {
		t.Fatalf("unexpected position: %q", embed.Position)
	}
}

func TestResolveEmbedRejectsBadInput(t *testing.T) {
	if _, err := ResolveEmbed("/static/widget.js", nil); err == nil {
		t.Fatal("expected error for src without origin")
	}
	if _, err := ResolveEmbed("https://x.test/w.js", map[string]string{"data-site-id": "abc"}); err == nil {
		t.Fatal("expected error for non-numeric site id")
	}
}
