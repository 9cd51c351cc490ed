package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alnah/go-subprep/internal/lang"
	"github.com/alnah/go-subprep/internal/logging"
	"github.com/alnah/go-subprep/internal/split"
)

// AlignCmd creates the align command.
// The env parameter provides injectable dependencies for testing.
func AlignCmd(env *Env) *cobra.Command {
	var (
		language  string
		marker    string
		fragments bool
	)

	cmd := &cobra.Command{
		Use:   "align <original.txt> <modified.txt>",
		Short: "Map split markers back onto original sentences",
		Long: `Find where the cuts of a re-tokenized or edited copy fall in the original text.

Both files have one sentence per line and are paired line by line. Each line
of the modified file marks its cuts with --marker. For every pair, the rune
offsets of the cuts in the original line are printed as:

  <line>\t<offset>,<offset>,...

With --fragments, the original line cut at those offsets is printed instead,
one fragment per line, with pairs separated by a blank line.`,
		Example: `  subprep align source.txt edited.txt
  subprep align source.txt edited.txt --language zh --fragments`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := lang.Validate(language); err != nil {
				return err
			}
			return runAlign(env, args[0], args[1], lang.Normalize(language), marker, fragments)
		},
	}

	cmd.Flags().StringVarP(&language, "language", "l", "", "Text language, selects how words are joined (default: config language)")
	cmd.Flags().StringVar(&marker, "marker", split.DefaultMarker, "Cut marker used in the modified file")
	cmd.Flags().BoolVar(&fragments, "fragments", false, "Print original fragments instead of offsets")

	return cmd
}

// runAlign aligns every line pair and prints the result to env.Stdout.
func runAlign(env *Env, originalPath, modifiedPath, language, marker string, fragments bool) error {
	logger := env.Logger.With().Str(logging.FieldCommand, "align").Logger()

	for _, p := range []string{originalPath, modifiedPath} {
		if err := checkInputFile(p); err != nil {
			return err
		}
	}
	if marker == "" {
		return fmt.Errorf("--marker: %w", ErrEmptyMarker)
	}

	if language == "" {
		cfg, err := env.ConfigStore.Load()
		if err != nil {
			return err
		}
		language = cfg.Language
	}

	originals, err := readSentenceFile(originalPath)
	if err != nil {
		return err
	}
	modified, err := readSentenceFile(modifiedPath)
	if err != nil {
		return err
	}
	if len(originals) != len(modified) {
		return fmt.Errorf("%w: %s has %d lines, %s has %d",
			ErrLineMismatch, originalPath, len(originals), modifiedPath, len(modified))
	}

	aligner := split.NewAligner(
		split.WithMarker(marker),
		split.WithAlignerLanguage(language),
		split.WithAlignerLogger(logger),
	)

	for i := range originals {
		positions := aligner.FindSplitPositions(originals[i], modified[i])
		var err error
		if fragments {
			err = writeFragments(env.Stdout, i, split.SplitAt(originals[i], positions))
		} else {
			err = writeOffsets(env.Stdout, i, positions)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// writeOffsets writes "<line>\t<p1>,<p2>,..." with an empty list for no cuts.
func writeOffsets(w io.Writer, line int, positions []int) error {
	strs := make([]string, len(positions))
	for i, p := range positions {
		strs[i] = strconv.Itoa(p)
	}
	_, err := fmt.Fprintf(w, "%d\t%s\n", line, strings.Join(strs, ","))
	return err
}

// writeFragments writes one fragment per line, pairs separated by a blank line.
func writeFragments(w io.Writer, line int, parts []string) error {
	if line > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return split.WriteSentences(w, parts)
}
