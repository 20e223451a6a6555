package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/pinyin-predict/internal/model"
	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Reverse earlier training",
		Long:  "Reverse earlier training: the last recorded phrase (default), a journaled event by --id, or an explicit --phrase.",
		Run:   runUndo,
	}

	cmd.Flags().String("id", "", "Event id from history")
	cmd.Flags().String("phrase", "", "Comma-separated word ids to untrain")

	RootCmd.AddCommand(cmd)
}

func runUndo(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	phraseStr, _ := cmd.Flags().GetString("phrase")
	if id != "" && phraseStr != "" {
		exitErr("undo", fmt.Errorf("--id and --phrase are mutually exclusive"))
	}

	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	svc := newService(s, cfg)

	if strings.TrimSpace(phraseStr) != "" {
		phrase, err := parseIDs(phraseStr)
		if err != nil {
			exitErr("parse phrase", err)
		}
		if err := svc.UndoUsed(cmd.Context(), phrase); err != nil {
			exitErr("undo", err)
		}
		b, _ := json.Marshal(phrase)
		fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"phrase":%s}`+"\n", b)
		return
	}

	var ev *model.TrainEvent
	if id != "" {
		ev, err = svc.UndoEvent(cmd.Context(), id)
	} else {
		ev, err = svc.UndoLast(cmd.Context())
	}
	if err != nil {
		exitErr("undo", err)
	}

	b, _ := json.Marshal(ev)
	fmt.Println(string(b))
}
