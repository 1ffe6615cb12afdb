package commands

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"
)

var decodeClass int

var decodeCmd = &cobra.Command{
	Use:   "decode SEQUENCE",
	Short: "Print the most likely hidden states of a sequence",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecode,
}

func init() {
	decodeCmd.Flags().IntVarP(&decodeClass, "class", "k", 0, "class whose model decodes the sequence")
}

func runDecode(cmd *cobra.Command, args []string) error {
	c, err := loadClassifier(cmd)
	if err != nil {
		return err
	}
	model, err := classModel(c, decodeClass)
	if err != nil {
		return err
	}
	seqs, err := parseSequences(model, args)
	if err != nil {
		return err
	}
	path, logProb := model.LogDecode(seqs[0])
	if math.IsInf(logProb, -1) {
		return fmt.Errorf("class %d cannot produce the sequence", decodeClass)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%v\t%.6f\n", path, logProb)
	return nil
}
