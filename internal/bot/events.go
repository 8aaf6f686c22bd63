package bot

import (
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/repwatch/repwatch/internal/rep"
)

// handleGuildMessageCreate watches for token-call embeds from the configured
// caller bot. For the first embed that resolves to a member, it posts the
// voting message, seeds the two vote reactions and tracks the message so later
// reactions reconcile against the right author/token context.
func (b *Bot) handleGuildMessageCreate(event *events.GuildMessageCreate) {
	message := event.Message
	if uint64(message.Author.ID) != b.config.CallerID || len(message.Embeds) == 0 {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in caller message handler", zap.Any("panic", r))
			}
		}()

		for _, embed := range message.Embeds {
			if embed.Footer == nil || embed.Footer.Text == "" {
				continue
			}
			if b.postVotingMessage(event, embed) {
				return
			}
		}
	}()
}

// postVotingMessage resolves the embed's author, extracts the token context
// and posts the tracked voting message. Returns false when the embed could not
// be resolved so the caller can try the next one.
func (b *Bot) postVotingMessage(event *events.GuildMessageCreate, embed discord.Embed) bool {
	// The caller bot puts the author's username as the first word of the footer.
	username := strings.Fields(embed.Footer.Text)[0]

	member, ok := b.findMemberByUsername(event.GuildID, username)
	if !ok {
		b.logger.Debug("No member matching embed footer",
			zap.String("username", username),
			zap.Uint64("guild_id", uint64(event.GuildID)))
		return false
	}

	address := rep.ExtractAddress(embedContent(embed))
	symbol := rep.ExtractSymbol(event.Message.Content)
	if address == rep.TokenUnknown || symbol == "" {
		symbol = rep.DeriveSymbolDefault(address)
	}

	profile, _ := b.service.Profile(uint64(member.User.ID))

	posted, err := b.client.Rest().CreateMessage(event.ChannelID, discord.NewMessageCreateBuilder().
		SetEmbeds(buildShortProfileEmbed(member.User, profile)).
		Build())
	if err != nil {
		b.logger.Error("Failed to post voting message", zap.Error(err))
		return false
	}

	b.service.TrackMessage(uint64(posted.ID), uint64(member.User.ID), address, symbol)

	for _, glyph := range []string{rep.GlyphGood, rep.GlyphBad} {
		if err := b.client.Rest().AddReaction(posted.ChannelID, posted.ID, glyph); err != nil {
			b.logger.Error("Failed to seed vote reaction",
				zap.String("glyph", glyph),
				zap.Error(err))
		}
	}

	b.logger.Info("Tracking voting message",
		zap.Uint64("message_id", uint64(posted.ID)),
		zap.Uint64("author_id", uint64(member.User.ID)),
		zap.String("token_address", address),
		zap.String("token_symbol", symbol))
	return true
}

// findMemberByUsername resolves a guild member whose username matches exactly.
func (b *Bot) findMemberByUsername(guildID snowflake.ID, username string) (discord.Member, bool) {
	members, err := b.client.Rest().SearchMembers(guildID, username, 10)
	if err != nil {
		b.logger.Error("Failed to search members",
			zap.String("username", username),
			zap.Error(err))
		return discord.Member{}, false
	}

	for _, member := range members {
		if member.User.Username == username {
			return member, true
		}
	}
	return discord.Member{}, false
}

// handleReactionAdd feeds an add-reaction event into the reconciler and
// performs the self-vote compensation when needed. Errors never propagate back
// to the gateway.
func (b *Bot) handleReactionAdd(event *events.GuildMessageReactionAdd) {
	if event.Member.User.Bot {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in reaction add handler", zap.Any("panic", r))
			}
		}()

		glyph := emojiName(event.Emoji)
		result := b.service.HandleReactionAdded(rep.ReactionEvent{
			GuildID:   uint64(event.GuildID),
			ChannelID: uint64(event.ChannelID),
			MessageID: uint64(event.MessageID),
			ActorID:   uint64(event.UserID),
			Emoji:     glyph,
		})

		switch result.Kind {
		case rep.ResultSelfVote:
			b.compensateSelfVote(event, glyph)
		case rep.ResultVoted:
			b.notifier.VoteApplied(uint64(event.GuildID), event.Member.User, result, jumpURL(event.GuildID, event.ChannelID, event.MessageID))
		case rep.ResultIgnored, rep.ResultRemoved:
		}
	}()
}

// handleReactionRemove feeds a remove-reaction event into the reconciler.
// Bots never hold recorded votes, so the missing member payload on removals is
// harmless: unknown actors fall out as no-ops.
func (b *Bot) handleReactionRemove(event *events.GuildMessageReactionRemove) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in reaction remove handler", zap.Any("panic", r))
			}
		}()

		result := b.service.HandleReactionRemoved(rep.ReactionEvent{
			GuildID:   uint64(event.GuildID),
			ChannelID: uint64(event.ChannelID),
			MessageID: uint64(event.MessageID),
			ActorID:   uint64(event.UserID),
			Emoji:     emojiName(event.Emoji),
		})

		if result.Kind == rep.ResultRemoved {
			b.notifier.VoteRemoved(uint64(event.GuildID), event.UserID, result)
		}
	}()
}

// compensateSelfVote removes the author's own reaction and tells them why,
// preferring a DM and falling back to the channel. All steps are best-effort.
func (b *Bot) compensateSelfVote(event *events.GuildMessageReactionAdd, glyph string) {
	err := b.client.Rest().RemoveUserReaction(event.ChannelID, event.MessageID, glyph, event.UserID)
	if err != nil {
		b.logger.Error("Failed to remove self-vote reaction",
			zap.Uint64("user_id", uint64(event.UserID)),
			zap.Error(err))
	}

	channel, err := b.client.Rest().CreateDMChannel(event.UserID)
	if err == nil {
		_, err = b.client.Rest().CreateMessage(channel.ID(), discord.NewMessageCreateBuilder().
			SetContent("❌ You cannot vote on your own reputation! Your reaction has been removed.").
			Build())
	}
	if err == nil {
		return
	}

	// DMs closed or failed; fall back to a channel notice.
	_, err = b.client.Rest().CreateMessage(event.ChannelID, discord.NewMessageCreateBuilder().
		SetContentf("%s You cannot vote on your own reputation!", discord.UserMention(event.UserID)).
		Build())
	if err != nil {
		b.logger.Error("Failed to send self-vote notice",
			zap.Uint64("user_id", uint64(event.UserID)),
			zap.Error(err))
	}
}

// emojiName returns the unicode glyph or custom-emoji name of a reaction.
func emojiName(emoji discord.PartialEmoji) string {
	if emoji.Name == nil {
		return ""
	}
	return *emoji.Name
}

// embedContent flattens a Discord embed into the pieces the address extractor
// searches.
func embedContent(embed discord.Embed) rep.EmbedContent {
	content := rep.EmbedContent{
		Title:       embed.Title,
		Description: embed.Description,
	}
	for _, field := range embed.Fields {
		content.Fields = append(content.Fields, rep.EmbedField{Name: field.Name, Value: field.Value})
	}
	if embed.Footer != nil {
		content.Footer = embed.Footer.Text
	}
	return content
}

// jumpURL builds the message link used in audit notifications.
func jumpURL(guildID, channelID, messageID snowflake.ID) string {
	return "https://discord.com/channels/" + guildID.String() + "/" + channelID.String() + "/" + messageID.String()
}
