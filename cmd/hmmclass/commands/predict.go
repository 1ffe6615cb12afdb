package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	predictClass   int
	predictHorizon int
)

var predictCmd = &cobra.Command{
	Use:   "predict SEQUENCE",
	Short: "Forecast the observations that follow a sequence",
	Args:  cobra.ExactArgs(1),
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().IntVarP(&predictClass, "class", "k", 0, "class whose model makes the forecast")
	predictCmd.Flags().IntVar(&predictHorizon, "horizon", 1, "number of observations to forecast")
}

func runPredict(cmd *cobra.Command, args []string) error {
	c, err := loadClassifier(cmd)
	if err != nil {
		return err
	}
	model, err := classModel(c, predictClass)
	if err != nil {
		return err
	}
	seqs, err := parseSequences(model, args)
	if err != nil {
		return err
	}
	pred, err := model.Predict(seqs[0], predictHorizon)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for i, obs := range pred.Observations {
		fmt.Fprintf(out, "%d\t%v\n", i+1, []float64(obs))
	}
	fmt.Fprintf(out, "log-likelihood\t%.6f\n", pred.LogLikelihood)
	return nil
}
