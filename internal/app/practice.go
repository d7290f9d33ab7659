package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/smilecoach/internal/history"
	"github.com/blackwell-systems/smilecoach/internal/inference"
	"github.com/blackwell-systems/smilecoach/internal/output"
	"github.com/blackwell-systems/smilecoach/internal/practice"
	"github.com/blackwell-systems/smilecoach/internal/smile"
)

var (
	practiceFlagPurpose     string
	practiceFlagMood        string
	practiceFlagContext     string
	practiceFlagReplay      string
	practiceFlagDetector    string
	practiceFlagPostMood    string
	practiceFlagDuration    time.Duration
	practiceFlagAcceptGuest bool
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run a practice session",
	Long: `Run one smile-practice session. Frames come from a recorded session
(JSON lines, one face per line). Expressions are read from the recording
itself or scored by the gRPC expression model.

The best attempt is kept and saved to your history when detection stops,
either at the end of the recording, after --duration, or on ctrl-c.

Examples:
  smilecoach practice --purpose relationship --mood neutral --replay session.jsonl
  smilecoach practice --purpose confidence --mood stressed --replay frames.jsonl --detector grpc
  smilecoach practice --purpose happiness --mood good --replay s.jsonl --post-mood better
  smilecoach practice ... --accept-guest     # practice without an account`,
	RunE: runPractice,
}

func init() {
	practiceCmd.Flags().StringVar(&practiceFlagPurpose, "purpose", "", "Why you are practicing: confidence, relationship or happiness")
	practiceCmd.Flags().StringVar(&practiceFlagMood, "mood", "", "Mood before practicing: good, neutral or stressed")
	practiceCmd.Flags().StringVar(&practiceFlagContext, "context", "", "Override the context derived from the purpose")
	practiceCmd.Flags().StringVar(&practiceFlagReplay, "replay", "", "Recorded session to play back (JSON lines)")
	practiceCmd.Flags().StringVar(&practiceFlagDetector, "detector", "replay", "Expression source: replay or grpc")
	practiceCmd.Flags().StringVar(&practiceFlagPostMood, "post-mood", "", "Mood after practicing: better, same or tired")
	practiceCmd.Flags().DurationVar(&practiceFlagDuration, "duration", 0, "Stop detection after this long (0 = until the recording ends)")
	practiceCmd.Flags().BoolVar(&practiceFlagAcceptGuest, "accept-guest", false, "Accept guest mode for this device")
	_ = practiceCmd.MarkFlagRequired("purpose")
	_ = practiceCmd.MarkFlagRequired("mood")
	_ = practiceCmd.MarkFlagRequired("replay")
	rootCmd.AddCommand(practiceCmd)
}

func runPractice(cmd *cobra.Command, args []string) error {
	purpose, err := smile.ParsePurpose(practiceFlagPurpose)
	if err != nil {
		return err
	}
	mood, err := history.ParseMoodBefore(practiceFlagMood)
	if err != nil {
		return err
	}
	var postMood history.Mood
	if practiceFlagPostMood != "" {
		if postMood, err = history.ParseMoodAfter(practiceFlagPostMood); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
	defer stop()

	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	id, err := rt.identity()
	if err != nil {
		return err
	}
	if err := rt.ensureGuestAccepted(ctx, id); err != nil {
		return err
	}

	src, err := inference.OpenReplayFile(practiceFlagReplay)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	verbosef("loaded %d frames from %s", src.Len(), practiceFlagReplay)

	deps := practice.Deps{
		Evaluator: rt.evaluator,
		Camera:    src,
		Detector:  src,
		Recorder:  rt.history,
		Identity:  id,
	}
	switch practiceFlagDetector {
	case "replay":
	case "grpc":
		det, err := inference.Dial(rt.cfg.Inference.Address, inference.Options{
			Timeout:   rt.cfg.Inference.Timeout,
			Landmarks: rt.cfg.Inference.Landmarks,
		})
		if err != nil {
			return err
		}
		defer det.Close()
		deps.Detector = det
	default:
		return fmt.Errorf("unknown detector %q (want replay or grpc)", practiceFlagDetector)
	}
	if id.Guest() {
		deps.Quota = rt.local.Quota(id.DeviceID, rt.cfg.Guest.SessionLimit)
	}

	sess := practice.NewSession(practice.Config{
		NaturalnessGate: rt.cfg.Policy.NaturalnessGate,
		CaptureMinScore: rt.cfg.Policy.CaptureMinScore,
		TickInterval:    rt.cfg.Policy.TickInterval,
	}, deps)
	defer sess.Release()

	if err := sess.SelectPurpose(purpose); err != nil {
		return err
	}
	if err := sess.SelectMood(mood); err != nil {
		return err
	}
	if practiceFlagContext != "" {
		c, err := smile.ParseContext(practiceFlagContext)
		if err != nil {
			return err
		}
		if err := sess.ConfirmContext(c); err != nil {
			return err
		}
	}

	if err := sess.Start(ctx); err != nil {
		if errors.Is(err, practice.ErrGuestQuotaExhausted) {
			return fmt.Errorf("%w: sign up with 'smilecoach user signup' to keep practicing", err)
		}
		return err
	}
	if !flagJSON {
		v := sess.View()
		fmt.Printf("Practicing %s smiles (%s). Detection running...\n", v.Context, v.Purpose)
	}

	if err := detect(ctx, sess); err != nil {
		return err
	}

	// The session is saved even when detection was interrupted.
	rec, saveErr := sess.Stop(context.WithoutCancel(ctx))
	if saveErr != nil {
		if !errors.Is(saveErr, history.ErrRemoteSaveFailed) {
			return saveErr
		}
		fmt.Fprintln(os.Stderr, output.StyleWarning.Render("warning: session saved locally and will sync later: "+saveErr.Error()))
	}
	if postMood != "" {
		if err := sess.RecordPostMood(context.WithoutCancel(ctx), postMood); err != nil {
			return err
		}
	}

	view := sess.View()
	if flagJSON {
		return printJSON(view)
	}
	printPracticeResult(view, rec)
	return nil
}

// detect polls the session until the recording ends, the duration elapses
// or ctx is cancelled, printing each new best as it happens.
func detect(ctx context.Context, sess *practice.Session) error {
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if practiceFlagDuration > 0 {
		pollCtx, cancel = context.WithTimeout(pollCtx, practiceFlagDuration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(pollCtx)
	g.Go(func() error {
		defer cancel()
		err := sess.Poll(gctx)
		if errors.Is(err, practice.ErrSourceExhausted) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	if !flagJSON {
		g.Go(func() error {
			progress(gctx, sess)
			return nil
		})
	}
	return g.Wait()
}

func progress(ctx context.Context, sess *practice.Session) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	best, reposition := 0, false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v := sess.View()
			if v.Reposition && !reposition {
				fmt.Println(output.StyleWarning.Render("  No face found. Center your face in the frame."))
			}
			reposition = v.Reposition
			if v.MaxScore > best {
				best = v.MaxScore
				fmt.Printf("  [%3ds] new best %s\n", v.ElapsedSeconds, output.ScoreBar(best, 20))
			}
		}
	}
}

func printPracticeResult(v practice.View, rec *history.Record) {
	fmt.Println()
	if rec == nil {
		fmt.Println(output.StyleMuted.Render("No smile cleared the naturalness gate. Nothing was saved."))
		return
	}
	fmt.Println(output.Section("Session complete"))
	fmt.Printf(" %s %s\n", output.StyleLabel.Render("Best score"), output.ScoreBar(rec.MaxScore, 20))
	for _, name := range smile.LabelsFor(rec.Context).Names() {
		if score, ok := rec.MetricsAtMax[name]; ok {
			fmt.Printf(" %s %s\n", output.StyleLabel.Render(output.MetricName(name)), output.ScoreBar(score, 20))
		}
	}
	fmt.Printf(" %s %s\n", output.StyleLabel.Render("Duration"), output.StyleValue.Render(fmt.Sprintf("%ds", rec.DurationSeconds)))
	if rec.Evidence != nil {
		for _, s := range rec.Evidence.Snippets {
			fmt.Printf(" %s\n", output.StyleAccent.Render(output.Text(s.Key, s.Params)))
		}
	}
	if rec.MoodAfter != "" {
		fmt.Printf(" %s %s\n", output.StyleLabel.Render("Mood"), output.StyleValue.Render(string(rec.MoodBefore)+" -> "+string(rec.MoodAfter)))
	}
	fmt.Println(output.StyleMuted.Render(" Saved as " + rec.ID))
	if v.State == practice.Reviewing {
		fmt.Println(output.StyleMuted.Render(" Add how you feel now with: smilecoach history mood " + rec.ID + " better|same|tired"))
	}
}
