package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unixpickle/hmm/v2"
	"github.com/unixpickle/hmm/v2/internal/config"
)

var (
	classifyPosteriors  bool
	classifyParallelism int
)

var classifyCmd = &cobra.Command{
	Use:   "classify SEQUENCE...",
	Short: "Classify observation sequences",
	Long: `Classify each sequence with a stored classifier.

Each line of output holds the class (or "unknown" when the threshold
model rejects the sequence) followed by its log-likelihood.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVarP(&classifyPosteriors, "posteriors", "p", false, "also print per-class posteriors")
	classifyCmd.Flags().IntVar(&classifyParallelism, "parallelism", 0, "sequences to classify at once (0 = all CPUs)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	c, err := loadClassifier(cmd)
	if err != nil {
		return err
	}
	seqs, err := parseSequences(c.Models[0], args)
	if err != nil {
		return err
	}
	classes, lls := c.ComputeAll(seqs, classifyParallelism)

	out := cmd.OutOrStdout()
	for i, class := range classes {
		label := "unknown"
		if class != hmm.Unknown {
			label = fmt.Sprint(class)
		}
		fmt.Fprintf(out, "%s\t%.6f", label, lls[i])
		if classifyPosteriors {
			var probs []string
			for _, p := range c.Posteriors(seqs[i]) {
				probs = append(probs, fmt.Sprintf("%.4f", p))
			}
			fmt.Fprintf(out, "\t%s", strings.Join(probs, " "))
		}
		fmt.Fprintln(out)
	}
	return nil
}

// parseSequences parses command-line sequences and checks
// them against the model's observation dimension.
func parseSequences(model *hmm.HMM, args []string) ([][]hmm.Obs, error) {
	seqs := make([][]hmm.Obs, len(args))
	for i, arg := range args {
		seq, err := config.ParseSequence(arg)
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		if err := model.CheckSequence(seq); err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		seqs[i] = seq
	}
	return seqs, nil
}
