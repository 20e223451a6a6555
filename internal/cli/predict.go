package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "predict [pinyin...]",
		Short: "Predict phrases for a pinyin sequence",
		Long:  "Predict phrases for a pinyin sequence. Syllables may be separate args or one quoted string; use --readings to pass reading ids instead.",
		Run:   runPredict,
	}

	cmd.Flags().IntP("top", "k", 0, "Number of phrases (default: top_k from config)")
	cmd.Flags().String("readings", "", "Comma-separated reading ids instead of pinyin")

	RootCmd.AddCommand(cmd)
}

func runPredict(cmd *cobra.Command, args []string) {
	k, _ := cmd.Flags().GetInt("top")
	readingsStr, _ := cmd.Flags().GetString("readings")

	var syllables []string
	for _, a := range args {
		syllables = append(syllables, strings.Fields(a)...)
	}
	if len(syllables) == 0 && readingsStr == "" {
		exitErr("predict", fmt.Errorf("pinyin args or --readings required"))
	}

	cfg := loadConfig()
	if k == 0 {
		k = cfg.TopK
	}

	s, err := openStore(cfg)
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()
	svc := newService(s, cfg)

	var readings []int64
	if readingsStr != "" {
		readings, err = parseIDs(readingsStr)
		if err != nil {
			exitErr("parse readings", err)
		}
		preds, err := svc.Predict(cmd.Context(), readings, k)
		if err != nil {
			exitErr("predict", err)
		}
		b, _ := json.MarshalIndent(preds, "", "  ")
		fmt.Println(string(b))
		return
	}

	preds, err := svc.PredictPinyin(cmd.Context(), syllables, k)
	if err != nil {
		exitErr("predict", err)
	}
	b, _ := json.MarshalIndent(preds, "", "  ")
	fmt.Println(string(b))
}

// parseIDs reads a comma- or space-separated list of integers.
func parseIDs(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", f)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
