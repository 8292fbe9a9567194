package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/blackjackd/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address            string `hcl:"address,optional"`
	Port               int    `hcl:"port,optional"`
	LogLevel           string `hcl:"log_level,optional"`
	LogFile            string `hcl:"log_file,optional"`
	IncidentDB         string `hcl:"incident_db,optional"`
	TurnTimeoutSeconds int    `hcl:"turn_timeout_seconds,optional"`
	TableGraceSeconds  int    `hcl:"table_grace_seconds,optional"`
	ResultPauseSeconds int    `hcl:"result_pause_seconds,optional"`
	AuthURL            string `hcl:"auth_url,optional"`
	AuthSecret         string `hcl:"auth_secret,optional"`
}

// TableConfig defines a table created at startup. Rule fields default
// to the house rules when omitted.
type TableConfig struct {
	Name                 string `hcl:"name,label"`
	MaxPlayers           int    `hcl:"max_players,optional"`
	MinBet               int    `hcl:"min_bet,optional"`
	MaxBet               int    `hcl:"max_bet,optional"`
	StartingChips        int    `hcl:"starting_chips,optional"`
	DealerStandsOnSoft17 *bool  `hcl:"dealer_stands_on_soft_17,optional"`
	DoubleAfterSplit     *bool  `hcl:"double_after_split,optional"`
	DoubleAfterSplitAces bool   `hcl:"double_after_split_aces,optional"`
	DoubleOnAnyTwoCards  *bool  `hcl:"double_on_any_two_cards,optional"`
	SurrenderAllowed     bool   `hcl:"surrender_allowed,optional"`
	InsuranceAllowed     *bool  `hcl:"insurance_allowed,optional"`
	BlackjackPayout      string `hcl:"blackjack_payout,optional"`
	MaxSplits            int    `hcl:"max_splits,optional"`
}

// Rules converts the table block into the engine's rule set, filling
// unset fields from the house defaults.
func (t TableConfig) Rules() game.Rules {
	rules := game.DefaultRules()
	if t.MinBet > 0 {
		rules.MinBet = t.MinBet
	}
	if t.MaxBet > 0 {
		rules.MaxBet = t.MaxBet
	}
	if t.StartingChips > 0 {
		rules.StartingChips = t.StartingChips
	}
	if t.DealerStandsOnSoft17 != nil {
		rules.DealerStandsOnSoft17 = *t.DealerStandsOnSoft17
	}
	if t.DoubleAfterSplit != nil {
		rules.DoubleAfterSplit = *t.DoubleAfterSplit
	}
	rules.DoubleAfterSplitAces = t.DoubleAfterSplitAces
	if t.DoubleOnAnyTwoCards != nil {
		rules.DoubleOnAnyTwoCards = *t.DoubleOnAnyTwoCards
	}
	rules.SurrenderAllowed = t.SurrenderAllowed
	if t.InsuranceAllowed != nil {
		rules.InsuranceAllowed = *t.InsuranceAllowed
	}
	switch t.BlackjackPayout {
	case "6:5":
		rules.BlackjackPayout = 1.2
	case "1:1":
		rules.BlackjackPayout = 1.0
	case "3:2", "":
		rules.BlackjackPayout = 1.5
	}
	if t.MaxSplits > 0 {
		rules.MaxSplits = t.MaxSplits
	}
	return rules
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:            "localhost",
			Port:               8080,
			LogLevel:           "info",
			IncidentDB:         "incidents.db",
			TurnTimeoutSeconds: 30,
			TableGraceSeconds:  300,
			ResultPauseSeconds: 5,
		},
		Tables: []TableConfig{
			{
				Name:       "main",
				MaxPlayers: 5,
				MinBet:     1,
				MaxBet:     500,
			},
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A
// missing file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.IncidentDB == "" {
		config.Server.IncidentDB = "incidents.db"
	}
	if config.Server.TurnTimeoutSeconds == 0 {
		config.Server.TurnTimeoutSeconds = 30
	}
	if config.Server.TableGraceSeconds == 0 {
		config.Server.TableGraceSeconds = 300
	}
	if config.Server.ResultPauseSeconds == 0 {
		config.Server.ResultPauseSeconds = 5
	}

	for i := range config.Tables {
		if config.Tables[i].MaxPlayers == 0 {
			config.Tables[i].MaxPlayers = 5
		}
		if config.Tables[i].MinBet == 0 {
			config.Tables[i].MinBet = 1
		}
		if config.Tables[i].MaxBet == 0 {
			config.Tables[i].MaxBet = 500
		}
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	for _, table := range c.Tables {
		if table.MinBet <= 0 {
			return fmt.Errorf("table %s: min bet must be positive", table.Name)
		}
		if table.MaxBet < table.MinBet {
			return fmt.Errorf("table %s: max bet must be at least min bet", table.Name)
		}
		if table.MaxPlayers < 1 || table.MaxPlayers > 10 {
			return fmt.Errorf("table %s: max players must be between 1 and 10", table.Name)
		}
		if table.BlackjackPayout != "" {
			switch table.BlackjackPayout {
			case "3:2", "6:5", "1:1":
			default:
				return fmt.Errorf("table %s: unsupported blackjack payout %q", table.Name, table.BlackjackPayout)
			}
		}
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TurnTimeout returns the per-turn deadline as a duration.
func (c *ServerConfig) TurnTimeout() time.Duration {
	return time.Duration(c.Server.TurnTimeoutSeconds) * time.Second
}

// TableGrace returns the empty-table grace period as a duration.
func (c *ServerConfig) TableGrace() time.Duration {
	return time.Duration(c.Server.TableGraceSeconds) * time.Second
}

// ResultPause returns the pause between settlement and the next round.
func (c *ServerConfig) ResultPause() time.Duration {
	return time.Duration(c.Server.ResultPauseSeconds) * time.Second
}
