package config

import "time"

// UI and Display Constants
const (
	// Pagination
	LeaderboardPageSize  = 10
	TransactionsPageSize = 10
	ShopPageSize         = 5
	InventoryPageSize    = 10
	LeaderboardMaxPages  = 10
	TransactionsFetch    = 50
	AutocompleteChoices  = 25

	// Colors
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00
	GoldColor    = 0xFFD700

	EmbedDefaultColor = 0x2B2D31

	CoinSymbol = "🪙"
)

// Timeouts
const (
	CommandExecutionTimeout = 10 * time.Second
	SlowCommandThreshold    = 2 * time.Second
	ActivityTimeout         = 5 * time.Second
	RoleAssignTimeout       = 5 * time.Second
	PresenceTimeout         = 5 * time.Second
	ShutdownTimeout         = 10 * time.Second
	BackupTimeout           = 2 * time.Minute
)

// Limits on admin input.
const (
	MaxMultiplier      = 10
	MaxMultiplierHours = 24 * 30
	MinRoleRewardLevel = 2
)
