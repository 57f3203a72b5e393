package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openta/adaptive/internal/engine"
	"github.com/openta/adaptive/internal/intervention"
	"github.com/openta/adaptive/internal/ui/theme"
)

var signalCmd = &cobra.Command{
	Use:   "signal",
	Short: "Feed behavioral signals to the intervention detector",
}

var signalPushCmd = &cobra.Command{
	Use:   "push <student> <session> <type>",
	Short: "Push one signal (types: multiple_hints, long_dwell, repeated_error, ...)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic, _ := cmd.Flags().GetString("topic")
		at, err := parseTimeFlag(cmd, "at")
		if err != nil {
			return err
		}
		sig := intervention.Signal{
			StudentID:  args[0],
			SessionID:  args[1],
			Type:       intervention.SignalType(args[2]),
			DetectedAt: at,
		}
		if topic != "" {
			sig.Metadata = map[string]string{"topic": topic}
		}

		return withEngine(cmd, func(eng *engine.Engine) error {
			ev, err := eng.PushSignal(cmd.Context(), sig)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ev == nil {
				state, err := eng.SessionState(cmd.Context(), sig.StudentID, sig.SessionID)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Session %s: %s\n", sig.SessionID, theme.Status(string(state)))
				return nil
			}
			printEvent(cmd, ev)
			return nil
		})
	},
}

var signalReplayCmd = &cobra.Command{
	Use:   "replay <file.jsonl>",
	Short: "Replay a JSON-lines signal log through the detector",
	Long: `Replay reads one signal per line, e.g.

  {"student_id":"s1","session_id":"a","signal_type":"multiple_hints","detected_at":"2026-10-05T14:00:00Z"}

Signals are fanned out to ordered per-student workers, so each student's
signals are processed in file order while students run in parallel.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workers, _ := cmd.Flags().GetInt("workers")

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open signal log: %w", err)
		}
		defer f.Close()

		return withEngine(cmd, func(eng *engine.Engine) error {
			n, raised, err := replaySignals(cmd.Context(), eng, f, workers)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d signal%s, %d intervention%s raised.\n",
				n, plural(n), raised, plural(raised))
			return nil
		})
	},
}

func init() {
	signalPushCmd.Flags().String("topic", "", "Topic the student is working on")
	signalPushCmd.Flags().String("at", "", "Signal time (RFC 3339, default now)")
	signalReplayCmd.Flags().Int("workers", 4, "Number of ordered worker shards")

	signalCmd.AddCommand(signalPushCmd)
	signalCmd.AddCommand(signalReplayCmd)
}

// replaySignals parses r and feeds every signal through a Dispatcher. It
// returns the number of signals read and interventions raised.
func replaySignals(ctx context.Context, eng *engine.Engine, r io.Reader, workers int) (int, int, error) {
	signals, err := readSignals(r)
	if err != nil {
		return 0, 0, err
	}

	var raised atomic.Int64
	handle := func(ctx context.Context, sig intervention.Signal) error {
		ev, err := eng.PushSignal(ctx, sig)
		if ev != nil {
			raised.Add(1)
		}
		return err
	}
	d := intervention.NewDispatcher(workers, 64, handle, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Run(gctx) })
	g.Go(func() error {
		defer d.Close()
		for _, sig := range signals {
			if err := d.Push(gctx, sig); err != nil {
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return len(signals), int(raised.Load()), nil
}

// readSignals decodes a JSON-lines signal log. Blank lines are skipped.
func readSignals(r io.Reader) ([]intervention.Signal, error) {
	var out []intervention.Signal
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Bytes()
		if len(bytes.TrimSpace(text)) == 0 {
			continue
		}
		var sig intervention.Signal
		if err := json.Unmarshal(text, &sig); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := sig.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, sig)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read signal log: %w", err)
	}
	return out, nil
}
