package bot

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"

	"github.com/repwatch/repwatch/internal/bot/constants"
	"github.com/repwatch/repwatch/internal/rep"
)

// buildProfileEmbed renders a user's full reputation profile including their
// most-voted tokens.
func buildProfileEmbed(user discord.User, profile rep.UserAggregate) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitlef("%s's Reputation", user.Username).
		SetThumbnail(user.EffectiveAvatarURL()).
		SetColor(scoreColor(profile.Score())).
		SetDescriptionf("%s Good: **%d**\n%s Bad: **%d**\n🪙 Score: **%d**",
			rep.GlyphGood, profile.Good, rep.GlyphBad, profile.Bad, profile.Score())

	tokens := profile.TopTokens(constants.ProfileTokenLimit)
	if len(tokens) > 0 {
		lines := make([]string, 0, len(tokens))
		for i, token := range tokens {
			lines = append(lines, fmt.Sprintf("%s %s %s %d | %s %d",
				medal(i), tokenLabel(token.Address, token.Symbol),
				rep.GlyphGood, token.Good, rep.GlyphBad, token.Bad))
		}
		builder.AddField("Top Tokens", strings.Join(lines, "\n"), false)
	}

	return builder.Build()
}

// buildShortProfileEmbed is the compact profile posted under each tracked
// voting message.
func buildShortProfileEmbed(user discord.User, profile rep.UserAggregate) discord.Embed {
	total := profile.Good + profile.Bad
	percent := 0.0
	if total > 0 {
		percent = float64(profile.Good) / float64(total) * 100
	}

	return discord.NewEmbedBuilder().
		SetTitlef("%s's Reputation", user.Username).
		SetColor(constants.DefaultEmbedColor).
		SetDescriptionf("%s Good: **%d** | %s Bad: **%d** | 🪙 Score: **%d** | Reputation: **%.1f%%**",
			rep.GlyphGood, profile.Good, rep.GlyphBad, profile.Bad, profile.Score(), percent).
		Build()
}

// buildLeaderboardEmbed renders the top users ranked by score. thumbnailURL is
// the avatar of the leader, or empty when it could not be resolved.
func buildLeaderboardEmbed(entries []rep.LeaderboardEntry, thumbnailURL string) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle("🏆 Reputation Leaderboard").
		SetColor(constants.GoodEmbedColor)
	if thumbnailURL != "" {
		builder.SetThumbnail(thumbnailURL)
	}

	if len(entries) == 0 {
		return builder.
			SetDescription("No one has reputation points yet!").
			Build()
	}

	shown := entries
	if len(shown) > constants.LeaderboardSize {
		shown = shown[:constants.LeaderboardSize]
	}

	lines := make([]string, 0, len(shown))
	for i, entry := range shown {
		lines = append(lines, fmt.Sprintf("%s %s — 🪙 **%d** (%s %d | %s %d)",
			medal(i), discord.UserMention(snowflake.ID(entry.UserID)),
			entry.Score, rep.GlyphGood, entry.Good, rep.GlyphBad, entry.Bad))
	}

	return builder.
		SetDescription(strings.Join(lines, "\n")).
		SetFooterTextf("Total participants: %d", len(entries)).
		Build()
}

// buildVoteManagerEmbed lists recent active votes for admin review. resolve
// maps an author/token pair back to a display symbol.
func buildVoteManagerEmbed(votes []*rep.VoteRecord, resolve func(authorID uint64, tokenAddress string) string) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitle("📋 Recent Votes").
		SetDescription("Use `/repremove` with a vote ID to reverse a vote.").
		SetColor(constants.DefaultEmbedColor)

	for _, vote := range votes {
		glyph := rep.GlyphGood
		if vote.Type == rep.VoteBad {
			glyph = rep.GlyphBad
		}

		token := "Admin Added"
		if !vote.IsAdmin() {
			token = tokenLabel(vote.TokenAddress, resolve(vote.AuthorID, vote.TokenAddress))
		}

		builder.AddField(
			fmt.Sprintf("%s %s", glyph, vote.Timestamp.Format("2006-01-02 15:04 UTC")),
			fmt.Sprintf("Voter: %s\nAuthor: %s\nToken: %s\nID: `%s`",
				discord.UserMention(snowflake.ID(vote.VoterID)),
				discord.UserMention(snowflake.ID(vote.AuthorID)),
				token, vote.VoteID),
			true)
	}

	return builder.Build()
}

// formatRemovalResult partitions a removal outcome into the three sections the
// admin sees.
func formatRemovalResult(result rep.RemovalResult) string {
	var sections []string
	if len(result.Removed) > 0 {
		sections = append(sections, fmt.Sprintf("✅ Removed (%d):\n%s",
			len(result.Removed), formatIDList(result.Removed)))
	}
	if len(result.AlreadyReversed) > 0 {
		sections = append(sections, fmt.Sprintf("⚠️ Already Reversed (%d):\n%s",
			len(result.AlreadyReversed), formatIDList(result.AlreadyReversed)))
	}
	if len(result.NotFound) > 0 {
		sections = append(sections, fmt.Sprintf("❌ Invalid IDs (%d):\n%s",
			len(result.NotFound), formatIDList(result.NotFound)))
	}
	if len(sections) == 0 {
		return "❌ No vote IDs provided"
	}
	return strings.Join(sections, "\n\n")
}

func formatIDList(ids []string) string {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "`" + id + "`"
	}
	return strings.Join(quoted, ", ")
}

// tokenLabel renders a token as a clickable link when the address is real, and
// as the plain escaped symbol otherwise.
func tokenLabel(address, symbol string) string {
	if symbol == "" {
		symbol = rep.DeriveSymbolDefault(address)
	}
	if address == rep.TokenUnknown || address == rep.TokenAdminAdded {
		return fmt.Sprintf("**%s**", escapeMarkdown(symbol))
	}
	return fmt.Sprintf("**[%s](%s%s)**", escapeMarkdown(symbol), constants.TokenLinkBase, address)
}

func medal(i int) string {
	if i < len(constants.Medals) {
		return constants.Medals[i]
	}
	return fmt.Sprintf("%d.", i+1)
}

var markdownEscaper = strings.NewReplacer(
	"*", "\\*",
	"_", "\\_",
	"~", "\\~",
	"`", "\\`",
	"|", "\\|",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func scoreColor(score int) int {
	switch {
	case score > 0:
		return constants.GoodEmbedColor
	case score < 0:
		return constants.BadEmbedColor
	default:
		return constants.DefaultEmbedColor
	}
}
