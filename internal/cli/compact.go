package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Delete transitions whose counts are all zero",
		Long:  "Delete transitions whose base and user counts are both zero, e.g. after undoing training. Blocks other readers and writers while it runs.",
		Run:   runCompact,
	}

	RootCmd.AddCommand(cmd)
}

func runCompact(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	removed, err := s.Compact(cmd.Context())
	if err != nil {
		exitErr("compact", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"removed":%d}`+"\n", removed)
}
