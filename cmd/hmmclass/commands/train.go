package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/unixpickle/hmm/v2/internal/config"
)

var (
	trainConfigFile string
	trainDataFile   string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a classifier and save it to the store",
	Long: `Train one HMM per class with Baum-Welch and save the classifier.

The config file is YAML. The dataset is YAML, or MessagePack when the
file ends in .msgpack or .mp. Labels must cover 0 through classes-1.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVarP(&trainConfigFile, "config", "c", "", "training config file (required)")
	trainCmd.Flags().StringVarP(&trainDataFile, "data", "d", "", "labeled dataset file (required)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	if trainConfigFile == "" || trainDataFile == "" {
		return errors.New("both --config and --data are required")
	}
	cfg, err := config.LoadTrainConfig(trainConfigFile)
	if err != nil {
		return err
	}
	data, err := config.LoadDataset(trainDataFile)
	if err != nil {
		return err
	}
	seqs, labels := data.Sequences()

	classifier, err := cfg.BuildClassifier()
	if err != nil {
		return err
	}
	logger := slog.Default().With("model", modelName)
	logger.Info("training", "classes", cfg.Classes, "samples", len(seqs))
	ll, err := cfg.BuildLearning(classifier, logger).Run(seqs, labels)
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Save(cmd.Context(), modelName, classifier); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %q: %d classes, %d samples, log-likelihood %.6f\n",
		modelName, classifier.NumClasses(), len(seqs), ll)
	return nil
}
