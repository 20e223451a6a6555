package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "lookup <pinyin>",
		Short: "List the words for a reading, most used first",
		Args:  cobra.ExactArgs(1),
		Run:   runLookup,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max results (0 = all)")

	RootCmd.AddCommand(cmd)
}

func runLookup(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	words, err := s.WordsForReading(cmd.Context(), args[0])
	if err != nil {
		exitErr("lookup", err)
	}
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}

	b, _ := json.MarshalIndent(words, "", "  ")
	fmt.Println(string(b))
}
