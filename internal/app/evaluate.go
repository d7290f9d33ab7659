package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/smilecoach/internal/config"
	"github.com/blackwell-systems/smilecoach/internal/output"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

var (
	evalFlagContext string
	evalFlagFile    string
	evalSample      smile.Sample
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score one expression sample",
	Long: `Score a single facial-expression sample in a smile context and show
the three context metrics with coaching feedback.

Examples:
  smilecoach evaluate --context social --happy 0.8 --neutral 0.1
  smilecoach evaluate --context joy --file sample.json
  smilecoach evaluate --happy 0.9 --json`,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&evalFlagContext, "context", string(smile.ContextPractice), "Smile context: practice, social or joy")
	evaluateCmd.Flags().StringVar(&evalFlagFile, "file", "", "Read the sample as JSON from a file (- for stdin)")
	evaluateCmd.Flags().Float64Var(&evalSample.Happy, "happy", 0, "Happy probability (0-1)")
	evaluateCmd.Flags().Float64Var(&evalSample.Sad, "sad", 0, "Sad probability (0-1)")
	evaluateCmd.Flags().Float64Var(&evalSample.Angry, "angry", 0, "Angry probability (0-1)")
	evaluateCmd.Flags().Float64Var(&evalSample.Fearful, "fearful", 0, "Fearful probability (0-1)")
	evaluateCmd.Flags().Float64Var(&evalSample.Surprised, "surprised", 0, "Surprised probability (0-1)")
	evaluateCmd.Flags().Float64Var(&evalSample.Neutral, "neutral", 0, "Neutral probability (0-1)")
	rootCmd.AddCommand(evaluateCmd)
}

type evaluation struct {
	Quality  smile.Quality   `json:"quality"`
	Snippets []smile.Snippet `json:"snippets"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	output.ConfigureColor(cfg.Output.Color)
	if flagNoColor {
		output.SetNoColor(true)
	}

	ctx, err := smile.ParseContext(evalFlagContext)
	if err != nil {
		return err
	}

	sample := evalSample
	if evalFlagFile != "" {
		if sample, err = readSample(evalFlagFile); err != nil {
			return err
		}
	}

	res := evaluate(smile.NewEvaluator(cfg.Scoring), sample, ctx)
	if flagJSON {
		return printJSON(res)
	}
	fmt.Print(output.RenderQuality(res.Quality, res.Snippets))
	return nil
}

func evaluate(e *smile.Evaluator, sample smile.Sample, ctx smile.Context) evaluation {
	q := e.Evaluate(sample, ctx)
	snippets := smile.Snippets(sample.Normalized(), q)
	if snippets == nil {
		snippets = []smile.Snippet{}
	}
	return evaluation{Quality: q, Snippets: snippets}
}

func readSample(path string) (smile.Sample, error) {
	var s smile.Sample
	f := os.Stdin
	if path != "-" {
		var err error
		if f, err = os.Open(path); err != nil {
			return s, err
		}
		defer f.Close()
	}
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return s, fmt.Errorf("parsing sample %s: %w", path, err)
	}
	return s, nil
}
