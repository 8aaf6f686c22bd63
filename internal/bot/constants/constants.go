package constants

// Slash command names.
const (
	RepCommandName        = "rep"
	RepBoardCommandName   = "repboard"
	RepAddCommandName     = "repadd"
	RepLogsCommandName    = "replogs"
	RepDisableCommandName = "repdisable"
	RepRemoveCommandName  = "repremove"
	RepManagerCommandName = "repmanager"
)

// Embed colors.
const (
	DefaultEmbedColor = 0x000000
	GoodEmbedColor    = 0x57F287
	BadEmbedColor     = 0xED4245
	RemovedEmbedColor = 0xE67E22
)

// Listing limits.
const (
	LeaderboardSize    = 10
	VoteManagerSize    = 10
	ProfileTokenLimit  = 5
	AuditVoteIDPreview = 5
)

// TokenLinkBase is the prefix of the clickable token link shown on profiles.
const TokenLinkBase = "https://axiom.trade/t/"

// Medals for ranked listings; positions past the slice fall back to "N.".
var Medals = []string{"🥇", "🥈", "🥉", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}
