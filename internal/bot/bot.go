// Package bot connects the reputation ledger to Discord: it registers the
// slash command surface, watches the caller bot's token embeds, and feeds
// reaction events into the reconciler.
package bot

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/json"
	"go.uber.org/zap"

	"github.com/repwatch/repwatch/internal/bot/constants"
	"github.com/repwatch/repwatch/internal/rep"
	"github.com/repwatch/repwatch/internal/setup/config"
)

// Bot owns the Discord client and routes gateway events into the reputation
// service.
type Bot struct {
	client   bot.Client
	service  *rep.Service
	notifier *Notifier
	config   *config.Discord
	logger   *zap.Logger
}

// New initializes a Bot instance and configures the Discord client with the
// gateway intents and event listeners the reputation system needs.
func New(cfg *config.Discord, service *rep.Service, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		service: service,
		config:  cfg,
		logger:  logger.Named("bot"),
	}

	client, err := disgo.New(cfg.Token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentGuildMessages,
				gateway.IntentGuildMessageReactions,
				gateway.IntentMessageContent,
				gateway.IntentDirectMessages,
			),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
			OnGuildMessageCreate:            b.handleGuildMessageCreate,
			OnGuildMessageReactionAdd:       b.handleReactionAdd,
			OnGuildMessageReactionRemove:    b.handleReactionRemove,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord client: %w", err)
	}

	b.client = client
	b.notifier = NewNotifier(client, service, logger)
	return b, nil
}

// Start registers the slash commands globally and opens the gateway
// connection.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Registering commands")

	_, err := b.client.Rest().SetGlobalCommands(b.client.ApplicationID(), commandCreates())
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info("Starting bot")
	return b.client.OpenGateway(ctx)
}

// Close gracefully shuts down the Discord gateway connection.
func (b *Bot) Close(ctx context.Context) {
	b.logger.Info("Closing bot")
	b.client.Close(ctx)
}

// commandCreates declares the full slash command surface. Admin commands carry
// a default member permission of Administrator; handlers re-check on top of
// that since guilds can override command permissions.
func commandCreates() []discord.ApplicationCommandCreate {
	adminOnly := json.NewNullablePtr(discord.PermissionAdministrator)

	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        constants.RepCommandName,
			Description: "Check a user's reputation",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "The user to look up (defaults to you)",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        constants.RepBoardCommandName,
			Description: "Show the reputation leaderboard",
		},
		discord.SlashCommandCreate{
			Name:                     constants.RepAddCommandName,
			Description:              "Add reputation votes to a user (Admin only)",
			DefaultMemberPermissions: adminOnly,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "The user to add votes to",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "amount",
					Description: "The number of votes to add",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "vote_type",
					Description: "Type of votes to add",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "Good", Value: "good"},
						{Name: "Bad", Value: "bad"},
					},
				},
			},
		},
		discord.SlashCommandCreate{
			Name:                     constants.RepLogsCommandName,
			Description:              "Set the channel for reputation audit logs (Admin only)",
			DefaultMemberPermissions: adminOnly,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionChannel{
					Name:        "channel",
					Description: "The channel to send reputation logs to",
					Required:    true,
					ChannelTypes: []discord.ChannelType{
						discord.ChannelTypeGuildText,
					},
				},
			},
		},
		discord.SlashCommandCreate{
			Name:                     constants.RepDisableCommandName,
			Description:              "Toggle a user's ability to vote on reputation (Admin only)",
			DefaultMemberPermissions: adminOnly,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "The user to disable or re-enable",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:                     constants.RepRemoveCommandName,
			Description:              "Remove reputation votes by IDs (Admin only)",
			DefaultMemberPermissions: adminOnly,
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "vote_ids",
					Description: "Comma-separated list of vote IDs to remove",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:                     constants.RepManagerCommandName,
			Description:              "Review the most recent active votes (Admin only)",
			DefaultMemberPermissions: adminOnly,
		},
	}
}
