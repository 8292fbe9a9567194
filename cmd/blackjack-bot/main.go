// Command blackjack-bot connects a basic-strategy bot to a blackjackd
// server and plays until interrupted.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjackd/sdk"
)

type CLI struct {
	Server string `kong:"default='ws://localhost:8080/ws',help='Server WebSocket URL'"`
	Name   string `kong:"default='basic-bot',help='Player name'"`
	Table  string `kong:"help='Table ID to join; defaults to the first listed table'"`
	Bet    int    `kong:"default='10',help='Flat bet per round'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack-bot"),
		kong.Description("Basic-strategy bot client for blackjackd"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(cli.Run())
}

func (c *CLI) Run() error {
	level := log.InfoLevel
	if c.Debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})

	bot := sdk.NewBotClient(c.Server, &sdk.BasicStrategyAgent{BetAmount: c.Bet}, logger)
	if err := bot.Connect(c.Name); err != nil {
		return err
	}
	defer bot.Disconnect()

	tableID := c.Table
	if tableID == "" {
		found, err := firstTable(c.Server, logger)
		if err != nil {
			return err
		}
		tableID = found
	}

	if err := bot.JoinTable(tableID); err != nil {
		return err
	}
	logger.Info("Bot seated", "table", tableID, "name", c.Name, "bet", c.Bet)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down")
	return nil
}

// firstTable asks the server for its lobby and returns the first
// table's ID.
func firstTable(serverURL string, logger *log.Logger) (string, error) {
	client := sdk.NewWSClient(serverURL, logger)
	if err := client.Connect(); err != nil {
		return "", err
	}
	defer client.Disconnect()

	found := make(chan string, 1)
	client.AddEventHandler(sdk.MessageTypeTableList, func(msg *sdk.Message) {
		var data sdk.TableListData
		if err := json.Unmarshal(msg.Data, &data); err != nil || len(data.Tables) == 0 {
			found <- ""
			return
		}
		found <- data.Tables[0].ID
	})

	if err := client.Auth("lobby-probe"); err != nil {
		return "", err
	}
	if err := client.ListTables(); err != nil {
		return "", err
	}

	select {
	case id := <-found:
		if id == "" {
			return "", fmt.Errorf("server has no tables")
		}
		return id, nil
	case <-time.After(5 * time.Second):
		return "", fmt.Errorf("timed out waiting for table list")
	}
}
