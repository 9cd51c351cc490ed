package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alnah/go-subprep/internal/config"
	"github.com/alnah/go-subprep/internal/logging"
	"github.com/alnah/go-subprep/internal/timeline"
)

// maxWordRunes bounds table rows; longer "words" are recognizer noise.
const maxWordRunes = 20

// TimelineCmd creates the timeline command.
// The env parameter provides injectable dependencies for testing.
func TimelineCmd(env *Env) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "timeline <transcript.json>",
		Short: "Rebuild word timestamps and save them as a table",
		Long: `Rebuild a fully timed word sequence from a word-level transcript.

Words the recognizer could not align get timestamps borrowed from their
neighbours. The result is saved as rows of (text, start, end); empty words
and words longer than 20 characters are dropped.

The input is JSON: {"segments": [{"words": [{"word": "...", "start": 0.0, "end": 0.4}]}]}
The table format follows the output extension: .xlsx (default) or .csv.`,
		Example: `  subprep timeline talk.json
  subprep timeline talk.json -o words.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimeline(env, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output table path, .xlsx or .csv (default: <input>.xlsx)")

	return cmd
}

// runTimeline loads, reconstructs and writes one transcript.
func runTimeline(env *Env, inputPath, output string) error {
	logger := env.Logger.With().Str(logging.FieldCommand, "timeline").Logger()

	// === VALIDATION (fail-fast) ===

	if err := checkInputFile(inputPath); err != nil {
		return err
	}

	cfg, err := env.ConfigStore.Load()
	if err != nil {
		return err
	}
	output = config.ResolveOutputPath(output, cfg.OutputDir, deriveOutputPath(inputPath, "", ".xlsx"))

	tableFormat, err := timeline.FormatFromPath(output)
	if err != nil {
		return err
	}

	// === READ INPUT ===

	fmt.Fprintf(env.Stderr, "Reading %s...\n", inputPath)

	// #nosec G304 -- inputPath is user-provided, validated above
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	transcript, err := timeline.LoadTranscript(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	// === RECONSTRUCT ===

	rc := timeline.NewReconstructor(
		timeline.WithMaxWordRunes(maxWordRunes),
		timeline.WithLogger(logger),
	)
	words, err := rc.Reconstruct(transcript.Segments)
	if err != nil {
		return err
	}
	fmt.Fprintf(env.Stderr, "Reconstructed %d of %d words\n", len(words), transcript.WordCount())

	// === WRITE OUTPUT ===

	var stats timeline.TableStats
	if err := createOutput(output, func(w io.Writer) error {
		var werr error
		stats, werr = timeline.WriteTable(w, tableFormat, words, maxWordRunes)
		return werr
	}); err != nil {
		return err
	}

	if dropped := stats.DroppedEmpty + stats.DroppedLong; dropped > 0 {
		logger.Info().
			Int("empty", stats.DroppedEmpty).
			Int("too_long", stats.DroppedLong).
			Msg("rows dropped from table")
	}
	fmt.Fprintf(env.Stderr, "Done: %s (%d rows)\n", output, stats.Written)
	return nil
}
