package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alnah/go-subprep/internal/completion"
	"github.com/alnah/go-subprep/internal/config"
	"github.com/alnah/go-subprep/internal/lang"
	"github.com/alnah/go-subprep/internal/logging"
	"github.com/alnah/go-subprep/internal/split"
)

// MaxRecommendedParallel caps concurrent completion requests.
const MaxRecommendedParallel = 32

// splitOptions holds parsed options for the split command.
// Zero values mean "from config".
type splitOptions struct {
	inputPath  string
	output     string
	maxLength  int
	parallel   int
	passes     int
	provider   Provider
	model      string
	language   string
	noHistory  bool
	structured bool
}

// SplitCmd creates the split command.
// The env parameter provides injectable dependencies for testing.
func SplitCmd(env *Env) *cobra.Command {
	var (
		output     string
		maxLength  int
		parallel   int
		passes     int
		provider   string
		model      string
		language   string
		noHistory  bool
		structured bool
	)

	cmd := &cobra.Command{
		Use:   "split <sentences.txt>",
		Short: "Split long sentences at meaning boundaries",
		Long: `Split every sentence longer than --max-length characters in two at a
natural meaning boundary, using a completion service.

The input has one sentence per line. Each split must keep every character
of the sentence; answers that do not are retried, and a sentence that still
cannot be split is cut at its midpoint. Several passes are run so parts
that are still too long are split again.

Answers are cached in a history file keyed by model and prompt, so a rerun
does not pay for the same request twice (disable with --no-history).`,
		Example: `  subprep split sentences.txt
  subprep split sentences.txt --max-length 40 --language fr -o short.txt
  subprep split sentences.txt --provider deepseek --parallel 8
  subprep split sentences.txt --json  # Ask for a JSON answer`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := parseSplitOptions(args[0], output, maxLength, parallel, passes, provider, model, language)
			if err != nil {
				return err
			}
			opts.noHistory = noHistory
			opts.structured = structured
			return runSplit(cmd, env, opts)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path (default: <input>_split.txt)")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "Split sentences longer than this many characters (default: config max-split-length)")
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 0, "Max concurrent requests, 1-32 (default: config max-workers)")
	cmd.Flags().IntVar(&passes, "passes", 0, "Number of split passes (default: config split-passes)")
	cmd.Flags().StringVar(&provider, "provider", "", "Completion provider: openai, deepseek (default: config provider)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default: config model, else the provider's default)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Sentence language, ISO 639-1 (default: config language)")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not read or write the request history")
	cmd.Flags().BoolVar(&structured, "json", false, "Request a JSON answer instead of a separator")

	return cmd
}

// parseSplitOptions validates and parses CLI inputs into splitOptions.
func parseSplitOptions(inputPath, output string, maxLength, parallel, passes int, provider, model, language string) (splitOptions, error) {
	if maxLength < 0 {
		return splitOptions{}, fmt.Errorf("--max-length must be positive, got %d", maxLength)
	}
	if passes < 0 {
		return splitOptions{}, fmt.Errorf("--passes must be positive, got %d", passes)
	}
	if parallel < 0 {
		return splitOptions{}, fmt.Errorf("--parallel must be positive, got %d", parallel)
	}

	var parsedProvider Provider
	if provider != "" {
		var err error
		if parsedProvider, err = ParseProvider(provider); err != nil {
			return splitOptions{}, err
		}
	}

	if err := lang.Validate(language); err != nil {
		return splitOptions{}, err
	}

	return splitOptions{
		inputPath: inputPath,
		output:    output,
		maxLength: maxLength,
		parallel:  parallel,
		passes:    passes,
		provider:  parsedProvider,
		model:     model,
		language:  lang.Normalize(language),
	}, nil
}

// clampParallel constrains parallel request count to valid range [1, MaxRecommendedParallel].
func clampParallel(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxRecommendedParallel {
		return MaxRecommendedParallel
	}
	return n
}

// resolveSplitOptions fills unset options from cfg.
func resolveSplitOptions(opts splitOptions, cfg config.Config) (splitOptions, error) {
	if opts.maxLength == 0 {
		opts.maxLength = cfg.MaxSplitLength
	}
	if opts.passes == 0 {
		opts.passes = cfg.SplitPasses
	}
	if opts.parallel == 0 {
		opts.parallel = cfg.MaxWorkers
	}
	opts.parallel = clampParallel(opts.parallel)
	if opts.language == "" {
		opts.language = cfg.Language
	}

	if opts.provider.IsZero() && cfg.Provider != "" {
		p, err := ParseProvider(cfg.Provider)
		if err != nil {
			return splitOptions{}, err
		}
		opts.provider = p
	}
	opts.provider = opts.provider.OrDefault()

	// A configured model belongs to the configured provider.
	if opts.model == "" && cfg.Model != "" && opts.provider.String() == cfg.Provider {
		opts.model = cfg.Model
	}
	return opts, nil
}

// runSplit executes the meaning split pipeline.
// Validation order: file exists -> config -> API key -> input content
func runSplit(cmd *cobra.Command, env *Env, opts splitOptions) error {
	ctx := cmd.Context()
	logger := env.Logger.With().Str(logging.FieldCommand, "split").Logger()

	// === VALIDATION (fail-fast) ===

	if err := checkInputFile(opts.inputPath); err != nil {
		return err
	}

	cfg, err := env.ConfigStore.Load()
	if err != nil {
		return err
	}
	opts, err = resolveSplitOptions(opts, cfg)
	if err != nil {
		return err
	}
	output := config.ResolveOutputPath(opts.output, cfg.OutputDir, deriveOutputPath(opts.inputPath, "_split", ".txt"))
	if err := checkOutputFree(output); err != nil {
		return err
	}

	apiKey := env.Getenv(opts.provider.APIKeyEnv())
	if apiKey == "" {
		return fmt.Errorf("%w: %s (set it with: export %s=sk-...)",
			ErrAPIKeyMissing, opts.provider.APIKeyEnv(), opts.provider.APIKeyEnv())
	}

	// === READ INPUT ===

	sentences, err := readSentenceFile(opts.inputPath)
	if err != nil {
		return err
	}
	if len(sentences) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyInput, opts.inputPath)
	}

	// === SETUP ===

	clientOpts := []completion.Option{
		completion.WithLogger(logger),
	}
	if opts.model != "" {
		clientOpts = append(clientOpts, completion.WithModel(opts.model))
	}
	if cfg.BaseURL != "" && opts.provider.String() == cfg.Provider {
		clientOpts = append(clientOpts, completion.WithBaseURL(cfg.BaseURL))
	}

	if !opts.noHistory {
		histories, err := openHistories(cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			for _, h := range histories {
				if err := h.Close(); err != nil {
					logger.Warn().Err(err).Str("path", h.Path()).Msg("failed to save history")
				}
			}
		}()
		clientOpts = append(clientOpts,
			completion.WithHistory(histories[0]),
			completion.WithErrorHistory(histories[1]),
		)
	}

	completer, err := env.CompleterFactory.NewCompleter(opts.provider, apiKey, clientOpts...)
	if err != nil {
		return err
	}

	splitter, err := split.NewSplitter(completer,
		split.WithMaxLength(opts.maxLength),
		split.WithWorkers(opts.parallel),
		split.WithPasses(opts.passes),
		split.WithLanguage(opts.language),
		split.WithStructuredOutput(opts.structured),
		split.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	// === SPLIT ===

	fmt.Fprintf(env.Stderr, "Splitting %d sentences longer than %d characters (provider: %s, %d passes)...\n",
		len(sentences), opts.maxLength, opts.provider, opts.passes)

	result := splitter.SplitByMeaning(ctx, sentences)
	if err := ctx.Err(); err != nil {
		return err
	}

	// === WRITE OUTPUT ===

	if err := createOutput(output, func(w io.Writer) error {
		return split.WriteSentences(w, result)
	}); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Done: %s (%d -> %d sentences)\n", output, len(sentences), len(result))
	return nil
}

// openHistories opens the answer log and the rejected-answer log.
func openHistories(cfg config.Config, logger zerolog.Logger) ([2]*completion.History, error) {
	var out [2]*completion.History

	dir := cfg.HistoryDir
	if dir == "" {
		d, err := config.DefaultHistoryDir()
		if err != nil {
			return out, err
		}
		dir = d
	}

	answers, err := completion.OpenHistory(dir, "", completion.WithHistoryLogger(logger))
	if err != nil {
		return out, err
	}
	rejects, err := completion.OpenHistory(dir, completion.ErrorHistoryTitle, completion.WithHistoryLogger(logger))
	if err != nil {
		return out, errors.Join(err, answers.Close())
	}

	out[0], out[1] = answers, rejects
	return out, nil
}

// readSentenceFile reads one sentence per line.
func readSentenceFile(path string) ([]string, error) {
	// #nosec G304 -- path is user-provided, validated by the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return split.ReadSentences(f)
}
