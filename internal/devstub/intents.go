package devstub

import "strings"

// Intent is one canned answer the stub backend can serve.
type Intent struct {
	ID               int
	Name             string
	Category         string
	TrainingPhrases  []string
	ShortResponse    string
	DetailedResponse string
	RequiresHandoff  bool
}

// SeedIntents returns the default intent table the stub answers from.
func SeedIntents() []Intent {
	return []Intent{
		{
			ID:               1,
			Name:             "Business Hours",
			Category:         "General",
			TrainingPhrases:  []string{"business hours", "opening hours", "when are you open", "what time do you open"},
			ShortResponse:    "We're open Monday-Friday, 9 AM to 6 PM.",
			DetailedResponse: "Our business hours are Monday to Friday, 9:00 AM - 6:00 PM. We're closed on weekends and holidays.",
		},
		{
			ID:               2,
			Name:             "Contact Support",
			Category:         "Support",
			TrainingPhrases:  []string{"contact support", "talk to someone", "speak to a human", "talk to an agent", "human"},
			ShortResponse:    "You can reach us via email at support@example.com or call 1-800-EXAMPLE.",
			DetailedResponse: "Let me connect you with a team member who can help.",
			RequiresHandoff:  true,
		},
		{
			ID:               3,
			Name:             "Payment Methods",
			Category:         "Pricing",
			TrainingPhrases:  []string{"payment methods", "how can i pay", "do you accept paypal", "credit card"},
			ShortResponse:    "We accept all major credit cards, PayPal, and bank transfers.",
			DetailedResponse: "We accept Visa, Mastercard, American Express, PayPal, bank transfers, Apple Pay and Google Pay. All payments are processed securely.",
		},
		{
			ID:               4,
			Name:             "Shipping & Delivery",
			Category:         "Support",
			TrainingPhrases:  []string{"shipping", "delivery", "how long does shipping take", "track my order"},
			ShortResponse:    "Standard delivery takes 5-7 business days. Express delivery available in 2-3 days.",
			DetailedResponse: "Standard delivery takes 5-7 business days, express 2-3 days, overnight 1 day. Free shipping on orders over $50.",
		},
	}
}

// MatchResult is the scored outcome of intent detection.
type MatchResult struct {
	Intent     *Intent
	Confidence float64
	Reply      string
}

// Matcher performs keyword-overlap intent detection, a stand-in for the
// real NLP backend.
type Matcher struct {
	intents []Intent
}

// NewMatcher builds a matcher over the supplied intents.
func NewMatcher(intents []Intent) *Matcher {
	return &Matcher{intents: append([]Intent(nil), intents...)}
}

const fallbackReply = "I'm not sure I understand. Could you rephrase that, or ask about our hours, payments, or shipping?"

// Match scores the message against every intent and shapes the reply:
// a strong match answers in detail, a weak one answers briefly, and no
// match yields a low-confidence fallback.
func (m *Matcher) Match(message string) MatchResult {
	words := tokenize(message)
	if len(words) == 0 {
		return MatchResult{Confidence: 0, Reply: fallbackReply}
	}

	best := MatchResult{}
	lowered := strings.ToLower(message)

	for i := range m.intents {
		intent := &m.intents[i]
		score := 0.0
		for _, phrase := range intent.TrainingPhrases {
			if strings.Contains(lowered, phrase) {
				score = 0.95
				break
			}
			score = maxFloat(score, overlap(words, tokenize(phrase)))
		}
		if score > best.Confidence {
			best = MatchResult{Intent: intent, Confidence: score}
		}
	}

	switch {
	case best.Intent != nil && best.Confidence >= 0.8:
		best.Reply = best.Intent.DetailedResponse
	case best.Intent != nil && best.Confidence >= 0.5:
		best.Reply = best.Intent.ShortResponse
	default:
		best.Intent = nil
		best.Reply = fallbackReply
	}
	return best
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

// overlap is the share of phrase words present in the message.
func overlap(messageWords, phraseWords []string) float64 {
	if len(phraseWords) == 0 {
		return 0
	}
	present := make(map[string]bool, len(messageWords))
	for _, w := range messageWords {
		present[w] = true
	}
	matched := 0
	for _, w := range phraseWords {
		if present[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(phraseWords))
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
