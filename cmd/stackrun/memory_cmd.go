package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/martinemde/stackrun/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or clear the persisted context memory",
}

var memoryShowChars int

var memoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every stored context item",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, store, err := openMemoryForCommand(cmd)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}
		renderMemory(cmd.OutOrStdout(), mem.Snapshot(), memoryShowChars)
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored context item",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mem, store, err := openMemoryForCommand(cmd)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}
		n := mem.Len()
		if err := mem.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %d context item(s)\n", n)
		return nil
	},
}

func init() {
	memoryShowCmd.Flags().IntVar(&memoryShowChars, "max-chars", 2000, "Truncate each item to this many characters (0 for no limit)")
	memoryCmd.AddCommand(memoryShowCmd)
	memoryCmd.AddCommand(memoryClearCmd)
}

// openMemoryForCommand opens the persisted memory without building a model
// client, so no API key is needed.
func openMemoryForCommand(cmd *cobra.Command) (*memory.ContextMemory, *memory.SQLiteStore, error) {
	if cfg.Memory.Path == "" {
		return nil, nil, fmt.Errorf("memory persistence is disabled (memory.path is empty)")
	}
	root := cfg.Workspace.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve working directory: %w", err)
		}
		root = wd
	}
	return openMemory(cmd.Context(), cfg, root, logger)
}
