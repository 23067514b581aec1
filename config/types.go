package config

// Telemetry configures the OTLP trace exporter.
type Telemetry struct {
	ServiceName string `toml:"ServiceName"`
	Traces      bool   `toml:"Traces"`
	Endpoint    string `toml:"Endpoint"`
	Insecure    bool   `toml:"Insecure"`
	// Headers is a comma separated key=value list sent with every export.
	Headers string `toml:"Headers"`
}

// CampaignConfig is the [campaign] section. Amounts are decimal strings so
// values above 2^64 survive TOML.
type CampaignConfig struct {
	ModuleID        string `toml:"ModuleID"`
	IDStrategy      string `toml:"IDStrategy"`
	Topology        string `toml:"Topology"`
	RequireApproval bool   `toml:"RequireApproval"`
	MinimumBond     string `toml:"MinimumBond"`
	// DepositRatio is parts per million of the campaign value.
	DepositRatio   uint32 `toml:"DepositRatio"`
	ClaimDuration  uint64 `toml:"ClaimDuration"`
	RefundOnSettle bool   `toml:"RefundOnSettle"`

	// Accounts granted the matching authority role when the data dir is
	// initialised. Bech32 or 0x-hex.
	Rejecters []string `toml:"Rejecters"`
	Approvers []string `toml:"Approvers"`
	Rewarders []string `toml:"Rewarders"`
}

// Authorities holds the parsed role assignments of the campaign section.
type Authorities struct {
	Rejecters [][20]byte
	Approvers [][20]byte
	Rewarders [][20]byte
}
