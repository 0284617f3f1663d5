package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/marmistrz/ipu6-camera-hal/internal/aiq"
	"github.com/marmistrz/ipu6-camera-hal/internal/fsutil"
	"github.com/marmistrz/ipu6-camera-hal/internal/pipeline"
)

// cameraSummary accumulates replay statistics for one camera.
type cameraSummary struct {
	frames    int
	locked    int
	overrides int
	failed    int
	gains     []float64
	aeTicks   []float64
}

func (s *cameraSummary) add(res pipeline.Result) {
	s.frames++
	if res.Error != nil {
		s.failed++
	}
	if res.Snapshot.ForceLock {
		s.locked++
	}
	if res.Snapshot.AwbOverride != aiq.AwbOverrideNone {
		s.overrides++
	}
	s.aeTicks = append(s.aeTicks, float64(res.Snapshot.AePerTicks))
	if res.Results != nil && res.Results.Ae != nil && len(res.Results.Ae.AnalogGain) > 0 {
		s.gains = append(s.gains, res.Results.Ae.AnalogGain[0])
	}
}

func newReplayCmd(root *Root) *cobra.Command {
	var (
		capabilities string
		camera       int
	)

	cmd := &cobra.Command{
		Use:   "replay <capture_log_or_directory>",
		Short: "Run recorded capture logs through the translator",
		Long: `Replay reads JSON-lines capture logs (.jsonl/.ndjson), one frame per line,
translates every frame in order and prints a per-camera summary. The run is
recorded as a session when a database is configured.

Examples:
  hal3a replay captures/session1.jsonl
  hal3a replay captures/ --camera 0 --capabilities ipu6.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			files, err := fsutil.ListCaptureLogs(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no capture logs under %s", args[0])
			}

			capPath := capabilities
			if capPath == "" {
				capPath = fsutil.FirstExisting(root.cfg.Paths.CapabilityFile)
			}
			reg, err := root.openPlatform(capPath)
			if err != nil {
				return err
			}
			pipe, err := root.newPipeline(ctx, args[0], reg)
			if err != nil {
				return err
			}
			defer pipe.Stop()

			summaries := make(map[int]*cameraSummary)
			for _, file := range files {
				frames, err := fsutil.ReadFrames(file)
				if err != nil {
					return err
				}
				root.log.Info("replaying capture log", "file", file, "frames", len(frames))
				for _, fr := range frames {
					if camera >= 0 && fr.CameraID != camera {
						continue
					}
					res, err := pipe.Do(ctx, fr)
					if err != nil && !errors.Is(err, aiq.ErrInvalidArgument) {
						return err
					}
					s, ok := summaries[fr.CameraID]
					if !ok {
						s = &cameraSummary{}
						summaries[fr.CameraID] = s
					}
					s.add(res)
				}
			}
			return writeSummary(cmd.OutOrStdout(), pipe.SessionID(), summaries)
		},
	}

	cmd.Flags().StringVar(&capabilities, "capabilities", "", "capability file (YAML or JSON), defaults to paths.capability_file")
	cmd.Flags().IntVar(&camera, "camera", -1, "only replay frames of this camera")
	return cmd
}

func writeSummary(w io.Writer, sessionID string, summaries map[int]*cameraSummary) error {
	if sessionID != "" {
		fmt.Fprintf(w, "session %s\n", sessionID)
	}
	ids := make([]int, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CAMERA\tFRAMES\tLOCKED\tOVERRIDES\tFAILED\tAE_TICKS\tGAIN_MEAN\tGAIN_STDDEV")
	for _, id := range ids {
		s := summaries[id]
		ticks := stat.Mean(s.aeTicks, nil)
		mean, stddev := "-", "-"
		if len(s.gains) > 0 {
			m, sd := stat.MeanStdDev(s.gains, nil)
			mean = fmt.Sprintf("%.3f", m)
			if len(s.gains) > 1 {
				stddev = fmt.Sprintf("%.3f", sd)
			}
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%.1f\t%s\t%s\n",
			id, s.frames, s.locked, s.overrides, s.failed, ticks, mean, stddev)
	}
	return tw.Flush()
}
