package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/unixpickle/hmm/v2"
	"github.com/unixpickle/hmm/v2/modelstore"
)

var (
	// Global flags
	verbose   bool
	storeDir  string
	modelName string
)

var rootCmd = &cobra.Command{
	Use:   "hmmclass",
	Short: "Train and run hidden Markov model classifiers",
	Long: `hmmclass - Train and run sequence classifiers built from hidden Markov models.

Each class is modeled by its own HMM. Trained classifiers are kept in a
model store directory under a name.

Examples:
  # Train a classifier and store it as "gestures"
  hmmclass train -c train.yaml -d samples.yaml --name gestures

  # Classify sequences (scalars, or vectors separated by ';')
  hmmclass classify --name gestures "0 1 1 2" "2 2 0"

  # Show the hidden states of a sequence under class 1
  hmmclass decode --name gestures --class 1 "0 1 1 2"`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log training progress")
	rootCmd.PersistentFlags().StringVar(&storeDir, "store", "hmmclass.db", "model store directory")
	rootCmd.PersistentFlags().StringVarP(&modelName, "name", "n", "default", "classifier name in the store")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(modelsCmd)
}

func initLogging() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))
}

func openStore() (*modelstore.Store, error) {
	return modelstore.Open(modelstore.Options{Dir: storeDir})
}

// loadClassifier reads the classifier named by --name.
func loadClassifier(cmd *cobra.Command) (*hmm.Classifier, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	c, err := store.Load(cmd.Context(), modelName)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", modelName, err)
	}
	return c, nil
}

// classModel returns the model of one class.
func classModel(c *hmm.Classifier, class int) (*hmm.HMM, error) {
	if class < 0 || class >= c.NumClasses() {
		return nil, fmt.Errorf("class %d out of range [0, %d)", class, c.NumClasses())
	}
	return c.Models[class], nil
}
