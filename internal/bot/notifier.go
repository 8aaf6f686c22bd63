package bot

import (
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"go.uber.org/zap"

	"github.com/repwatch/repwatch/internal/bot/constants"
	"github.com/repwatch/repwatch/internal/rep"
)

// Notifier posts audit embeds for vote activity to each guild's configured
// audit channel. Guilds without a configured channel produce no output, and
// delivery failures are logged rather than surfaced to the triggering user.
type Notifier struct {
	client  bot.Client
	service *rep.Service
	logger  *zap.Logger
}

func NewNotifier(client bot.Client, service *rep.Service, logger *zap.Logger) *Notifier {
	return &Notifier{
		client:  client,
		service: service,
		logger:  logger.Named("notifier"),
	}
}

// VoteApplied announces a vote landing through a reaction, covering both fresh
// votes and stance switches.
func (n *Notifier) VoteApplied(guildID uint64, voter discord.User, result rep.ReactionResult, jump string) {
	title := "Vote Added"
	if result.Outcome == rep.OutcomeSwitched {
		title = "Vote Switched"
	}

	color := constants.GoodEmbedColor
	if result.Type == rep.VoteBad {
		color = constants.BadEmbedColor
	}

	record := result.Record
	embed := discord.NewEmbedBuilder().
		SetTitle(title).
		SetColor(color).
		SetTimestamp(record.Timestamp).
		AddField("Voter", discord.UserMention(voter.ID), true).
		AddField("Author", discord.UserMention(snowflake.ID(record.AuthorID)), true).
		AddField("Type", voteTypeLabel(result.Type), true).
		AddField("Token", tokenLabel(record.TokenAddress, result.Context.TokenSymbol), true).
		AddField("Vote ID", fmt.Sprintf("`%s`", record.VoteID), true).
		AddField("Message", fmt.Sprintf("[Jump](%s)", jump), true).
		Build()

	n.send(guildID, embed)
}

// VoteRemoved announces a vote being undone by the voter pulling their
// reaction.
func (n *Notifier) VoteRemoved(guildID uint64, voterID snowflake.ID, result rep.ReactionResult) {
	record := result.Record
	embed := discord.NewEmbedBuilder().
		SetTitle("Vote Removed").
		SetColor(constants.RemovedEmbedColor).
		AddField("Voter", discord.UserMention(voterID), true).
		AddField("Author", discord.UserMention(snowflake.ID(record.AuthorID)), true).
		AddField("Type", voteTypeLabel(record.Type), true).
		AddField("Token", tokenLabel(record.TokenAddress, result.Context.TokenSymbol), true).
		AddField("Vote ID", fmt.Sprintf("`%s`", record.VoteID), true).
		Build()

	n.send(guildID, embed)
}

// AdminVotesAdded announces a batch admin adjustment. Only the first few vote
// IDs are listed so large batches stay within embed limits.
func (n *Notifier) AdminVotesAdded(guildID uint64, admin, target discord.User, voteType rep.VoteType, records []*rep.VoteRecord) {
	color := constants.GoodEmbedColor
	if voteType == rep.VoteBad {
		color = constants.BadEmbedColor
	}

	ids := make([]string, 0, constants.AuditVoteIDPreview)
	for _, record := range records {
		if len(ids) == constants.AuditVoteIDPreview {
			ids = append(ids, "...")
			break
		}
		ids = append(ids, fmt.Sprintf("`%s`", record.VoteID))
	}

	embed := discord.NewEmbedBuilder().
		SetTitle("Admin Votes Added").
		SetColor(color).
		AddField("Admin", discord.UserMention(admin.ID), true).
		AddField("Target", discord.UserMention(target.ID), true).
		AddField("Type", voteTypeLabel(voteType), true).
		AddField("Amount", fmt.Sprintf("%d", len(records)), true).
		AddField("Vote IDs", strings.Join(ids, ", "), false).
		Build()

	n.send(guildID, embed)
}

func (n *Notifier) send(guildID uint64, embed discord.Embed) {
	channelID, ok := n.service.AuditChannel(guildID)
	if !ok {
		return
	}

	_, err := n.client.Rest().CreateMessage(snowflake.ID(channelID), discord.NewMessageCreateBuilder().
		SetEmbeds(embed).
		Build())
	if err != nil {
		n.logger.Error("Failed to deliver audit notification",
			zap.Uint64("guild_id", guildID),
			zap.Uint64("channel_id", channelID),
			zap.Error(err))
	}
}

func voteTypeLabel(voteType rep.VoteType) string {
	if voteType == rep.VoteBad {
		return rep.GlyphBad + " Bad"
	}
	return rep.GlyphGood + " Good"
}
