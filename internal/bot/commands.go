package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/repwatch/repwatch/internal/bot/constants"
	"github.com/repwatch/repwatch/internal/rep"
)

// handleApplicationCommandInteraction dispatches slash commands. Processing
// happens in a goroutine so slow handlers never block the gateway reader; a
// panic in one command is caught and reported instead of crashing the bot.
func (b *Bot) handleApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	go func() {
		data := event.SlashCommandInteractionData()

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in command handler",
					zap.String("command", data.CommandName()),
					zap.Any("panic", r))
				b.replyEphemeral(event, "❌ Internal error. Please report this to an administrator.")
			}
			b.logger.Debug("Command handled",
				zap.String("command", data.CommandName()),
				zap.Duration("duration", time.Since(start)))
		}()

		switch data.CommandName() {
		case constants.RepCommandName:
			b.handleRep(event, data)
		case constants.RepBoardCommandName:
			b.handleRepBoard(event)
		case constants.RepAddCommandName:
			b.handleRepAdd(event, data)
		case constants.RepLogsCommandName:
			b.handleRepLogs(event, data)
		case constants.RepDisableCommandName:
			b.handleRepDisable(event, data)
		case constants.RepRemoveCommandName:
			b.handleRepRemove(event, data)
		case constants.RepManagerCommandName:
			b.handleRepManager(event)
		default:
			b.replyEphemeral(event, "❌ This command is not available.")
		}
	}()
}

// handleRep renders the reputation profile of the target user, defaulting to
// the caller.
func (b *Bot) handleRep(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	target, ok := data.OptUser("user")
	if !ok {
		target = event.User()
	}

	profile, _ := b.service.Profile(uint64(target.ID))
	b.reply(event, buildProfileEmbed(target, profile))
}

// handleRepBoard renders the top users ranked by score, with the leader's
// avatar as the thumbnail.
func (b *Bot) handleRepBoard(event *events.ApplicationCommandInteractionCreate) {
	entries := b.service.Leaderboard()

	var thumbnailURL string
	if len(entries) > 0 {
		if leader, err := b.client.Rest().GetUser(snowflake.ID(entries[0].UserID)); err == nil {
			thumbnailURL = leader.EffectiveAvatarURL()
		}
	}

	b.reply(event, buildLeaderboardEmbed(entries, thumbnailURL))
}

// handleRepAdd creates admin vote records for the target user.
func (b *Bot) handleRepAdd(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !b.requireAdmin(event) {
		return
	}

	target := data.User("user")
	amount := data.Int("amount")

	voteType, err := rep.ParseVoteType(data.String("vote_type"))
	if err != nil {
		b.replyEphemeral(event, "❌ Unknown vote type")
		return
	}

	records, err := b.service.AddAdminVotes(uint64(event.User().ID), uint64(target.ID), voteType, amount)
	if err != nil {
		if errors.Is(err, rep.ErrInvalidAmount) {
			b.replyEphemeral(event, "❌ Amount must be positive")
			return
		}
		b.logger.Error("Failed to add admin votes", zap.Error(err))
		b.replyEphemeral(event, "❌ Failed to add votes")
		return
	}

	if event.GuildID() != nil {
		b.notifier.AdminVotesAdded(uint64(*event.GuildID()), event.User(), target, voteType, records)
	}

	b.replyEphemeral(event, fmt.Sprintf("✅ Added `%d` %s votes to %s.",
		amount, voteType, discord.UserMention(target.ID)))
}

// handleRepLogs sets the audit sink channel for the guild.
func (b *Bot) handleRepLogs(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !b.requireAdmin(event) {
		return
	}
	if event.GuildID() == nil {
		b.replyEphemeral(event, "❌ This command can only be used in a server.")
		return
	}

	channel := data.Channel("channel")
	b.service.SetAuditChannel(uint64(*event.GuildID()), uint64(channel.ID))
	b.replyEphemeral(event, fmt.Sprintf("✅ Reputation logs will be sent to %s", discord.ChannelMention(channel.ID)))
}

// handleRepDisable toggles the target's membership in the disabled-voter set.
func (b *Bot) handleRepDisable(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !b.requireAdmin(event) {
		return
	}

	target := data.User("user")

	action := "enabled"
	if b.service.ToggleDisabledVoter(uint64(target.ID)) {
		action = "disabled"
	}
	b.replyEphemeral(event, fmt.Sprintf("✅ %s has been %s from voting.", discord.UserMention(target.ID), action))
}

// handleRepRemove reverses the comma-separated vote IDs and reports the
// partitioned outcome.
func (b *Bot) handleRepRemove(event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData) {
	if !b.requireAdmin(event) {
		return
	}

	result := b.service.RemoveVotesByID(strings.Split(data.String("vote_ids"), ","))
	b.replyEphemeral(event, formatRemovalResult(result))
}

// handleRepManager lists the most recent active votes.
func (b *Bot) handleRepManager(event *events.ApplicationCommandInteractionCreate) {
	if !b.requireAdmin(event) {
		return
	}

	votes := b.service.RecentActiveVotes(constants.VoteManagerSize)
	if len(votes) == 0 {
		b.replyEphemeral(event, "❌ No votes found")
		return
	}

	b.reply(event, buildVoteManagerEmbed(votes, b.service.ResolveSymbol))
}

// requireAdmin rejects the interaction unless the member has Administrator
// permissions. Command-level default permissions are the first gate; this is
// the second, since guilds can reconfigure command access.
func (b *Bot) requireAdmin(event *events.ApplicationCommandInteractionCreate) bool {
	if event.Member() == nil || !event.Member().Permissions.Has(discord.PermissionAdministrator) {
		b.replyEphemeral(event, "❌ Administrator permissions required")
		return false
	}
	return true
}

func (b *Bot) reply(event *events.ApplicationCommandInteractionCreate, embed discord.Embed) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build())
	if err != nil {
		b.logger.Error("Failed to respond to command", zap.Error(err))
	}
}

func (b *Bot) replyEphemeral(event *events.ApplicationCommandInteractionCreate, content string) {
	err := event.CreateMessage(discord.NewMessageCreateBuilder().
		SetContent(content).
		SetEphemeral(true).
		Build())
	if err != nil {
		b.logger.Error("Failed to respond to command", zap.Error(err))
	}
}
