package rep

import (
	"regexp"
	"strings"
	"unicode"
)

// EmbedContent is the structured content of a caller-bot embed, flattened to
// the pieces the address extractor searches.
type EmbedContent struct {
	Title       string
	Description string
	Fields      []EmbedField
	Footer      string
}

// EmbedField is one name/value pair of an embed.
type EmbedField struct {
	Name  string
	Value string
}

var (
	// Solana-style base58 addresses, 32-44 chars. The alphabet excludes 0, O,
	// I and l.
	base58AddressPattern = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)

	// Ethereum-style hex addresses.
	hexAddressPattern = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)

	boldDollarSymbolPattern = regexp.MustCompile(`\*\*\$([A-Za-z0-9 ]{2,20})\*\*`)
	dollarSymbolPattern     = regexp.MustCompile(`\$([A-Za-z0-9]{2,20})`)
	markdownSymbolPattern   = regexp.MustCompile(`\[([A-Za-z0-9 ]{2,20})\]\(`)
	parenSymbolPattern      = regexp.MustCompile(`\(([A-Za-z0-9 ]{2,20})\)`)
	wordSplitPattern        = regexp.MustCompile("[\\s\\-–—]+")
)

const symbolTrimCutset = ".,:;!?*$"

// ExtractAddress derives a token address from embed content. Base58 addresses
// take precedence over hex addresses; the first match across the concatenated
// title, description, fields and footer wins. Returns TokenUnknown when
// nothing matches.
func ExtractAddress(content EmbedContent) string {
	var b strings.Builder
	b.WriteString(content.Title)
	b.WriteString(content.Description)
	for _, field := range content.Fields {
		b.WriteString(field.Name)
		b.WriteString(field.Value)
	}
	b.WriteString(content.Footer)
	text := b.String()

	if match := base58AddressPattern.FindString(text); match != "" {
		return match
	}
	if match := hexAddressPattern.FindString(text); match != "" {
		return match
	}
	return TokenUnknown
}

// ExtractSymbol derives a token symbol from free text. Precedence: a bolded
// **$SYMBOL** form, a bare $SYMBOL form, a markdown link label, a
// parenthesized label, then a fallback that takes the first word of the text.
// Returns the empty string when nothing matches.
func ExtractSymbol(text string) string {
	if text == "" {
		return ""
	}

	if m := boldDollarSymbolPattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(strings.TrimSpace(m[1]))
	}
	if m := dollarSymbolPattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := markdownSymbolPattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(strings.TrimSpace(m[1]))
	}
	if m := parenSymbolPattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(strings.TrimSpace(m[1]))
	}

	// Fallback: drop leading whitespace and pictographic glyphs, then take the
	// first whitespace- or dash-delimited word.
	clean := strings.TrimLeftFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r > 0xFFFF
	})

	parts := wordSplitPattern.Split(clean, -1)
	if len(parts) == 0 {
		return ""
	}

	symbol := strings.Trim(parts[0], symbolTrimCutset)
	if symbol == "" {
		return ""
	}

	if len(symbol) > 20 {
		symbol = symbol[:20]
	}
	return strings.ToUpper(symbol)
}

// DeriveSymbolDefault returns the display symbol used when none was extracted
// or stored: the first six characters of the address with an ellipsis, or the
// unknown sentinel itself.
func DeriveSymbolDefault(address string) string {
	if address == TokenUnknown || address == "" {
		return TokenUnknown
	}
	if len(address) > 6 {
		return address[:6] + "..."
	}
	return address + "..."
}
