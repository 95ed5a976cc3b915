package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopsCmd = &cobra.Command{
	Use:   "stops <query>",
	Short: "Search the stop index by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runStops,
}

func runStops(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	manager, err := buildManager(cfg)
	if err != nil {
		return err
	}

	idx, err := manager.Index(cmd.Context())
	if err != nil {
		return err
	}

	stops, err := idx.FindStops(args[0])
	if err != nil {
		return err
	}

	for _, stop := range stops {
		fmt.Printf("%s %s\n", stop.ID, stop.Name)
	}

	return nil
}
