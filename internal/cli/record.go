package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "record [word ids...]",
		Short: "Train on a phrase the user picked",
		Long:  "Train on a phrase the user picked. Word ids may be separate args or comma-separated.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecord,
	}

	RootCmd.AddCommand(cmd)
}

func runRecord(cmd *cobra.Command, args []string) {
	phrase, err := parseIDs(strings.Join(args, " "))
	if err != nil {
		exitErr("parse phrase", err)
	}

	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	ev, err := newService(s, cfg).RecordUsed(cmd.Context(), phrase)
	if err != nil {
		exitErr("record", err)
	}

	b, _ := json.Marshal(ev)
	fmt.Println(string(b))
}
