package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleanbear/dispatch/config"
	"github.com/cleanbear/dispatch/infra/logger"
	"github.com/cleanbear/dispatch/infra/sheets"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Roster related commands",
}

var rosterLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List technicians from the configured roster source",
	RunE:  runRosterLs,
}

func init() {
	rosterCmd.AddCommand(rosterLsCmd)
	rootCmd.AddCommand(rosterCmd)
}

func runRosterLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Roster.Source != "sheets" {
		return fmt.Errorf("roster source is %q, nothing to list", cfg.Roster.Source)
	}
	src, err := sheets.New(sheets.Options{
		SpreadsheetID:   cfg.Roster.Sheets.SpreadsheetID,
		Range:           cfg.Roster.Sheets.Range,
		CredentialsJSON: cfg.Roster.Sheets.CredentialsJSON,
		APIKey:          cfg.Roster.Sheets.APIKey,
		BaseURL:         cfg.Roster.Sheets.BaseURL,
		Timeout:         time.Duration(cfg.Roster.Sheets.TimeoutSeconds) * time.Second,
	}, logger.New("sheets"))
	if err != nil {
		return fmt.Errorf("sheets source: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	techs, err := src.FetchTechnicians(ctx)
	if err != nil {
		return err
	}
	for _, t := range techs {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", t.ID, t.Name, strings.Join(t.ServiceTypes, ","))
	}
	return nil
}
