package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/persist"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage the session store",
	Long:  `Commands for the session directory configured under storage.dir`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		names, err := store.List()
		if err != nil {
			return err
		}
		for _, name := range names {
			sess, err := store.Load(name)
			if err != nil {
				fmt.Printf("%-24s (unreadable: %v)\n", name, err)
				continue
			}
			fmt.Printf("%-24s %3d components %3d nets\n", name, len(sess.Components), len(sess.Nets))
		}
		return nil
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <name>...",
	Short: "Delete saved sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		for _, name := range args {
			if err := store.Delete(name); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsRmCmd)
}

func openStore() (*persist.FileStore, error) {
	codec, err := persist.CodecFor(cfg.Storage.Format)
	if err != nil {
		return nil, err
	}
	return persist.NewFileStore(cfg.Storage.Dir, codec)
}
