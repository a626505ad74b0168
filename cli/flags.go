package cli

const (
	FlagHome      = "home"
	FlagLogLevel  = "log-level"
	FlagTransport = "transport"
	FlagAddress   = "address"
	FlagCommand   = "command"
	FlagJournal   = "journal"
)
