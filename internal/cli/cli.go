// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/digest/internal/config"
	"github.com/temirov/digest/internal/ingest"
	"github.com/temirov/digest/internal/matcher"
	"github.com/temirov/digest/internal/output"
	"github.com/temirov/digest/internal/query"
	"github.com/temirov/digest/internal/repository"
	"github.com/temirov/digest/internal/tokenizer"
	"github.com/temirov/digest/internal/utils"
)

const (
	defaultSource        = "."
	rootUse              = "digest [source]"
	rootShortDescription = "turn a directory or repository into a prompt-ready text digest"
	rootLongDescription  = `digest walks a local directory or a cloned Git repository and writes one
document with a summary, the directory tree and the content of every text file.
Sources may be local paths, repository URLs (GitHub, GitLab, Bitbucket and
similar hosts, including /tree/<branch>/<path> links) or owner/repo slugs.`
	rootUsageExample = `  # Digest the current directory into digest.txt
  digest

  # Only Go files, printed to stdout
  digest -i '*.go' -o - ./service

  # A subdirectory of a remote branch as JSON, copied to the clipboard
  digest https://github.com/octo/widgets/tree/main/docs --format json --copy`

	initUse              = "init"
	initShortDescription = "write the default configuration file"

	includeFlagName           = "include"
	includeShorthand          = "i"
	excludeFlagName           = "exclude"
	excludeShorthand          = "e"
	maxFileSizeFlagName       = "max-file-size"
	maxTotalSizeFlagName      = "max-total-size"
	maxDepthFlagName          = "max-depth"
	maxFilesFlagName          = "max-files"
	noDefaultExcludesFlagName = "no-default-excludes"
	noGitignoreFlagName       = "no-gitignore"
	noIgnoreFlagName          = "no-ignore"
	branchFlagName            = "branch"
	branchShorthand           = "b"
	commitFlagName            = "commit"
	tagFlagName               = "tag"
	tokenFlagName             = "token"
	subpathFlagName           = "subpath"
	outputFlagName            = "output"
	outputShorthand           = "o"
	formatFlagName            = "format"
	copyFlagName              = "copy"
	tokensFlagName            = "tokens"
	modelFlagName             = "model"
	workersFlagName           = "workers"
	timeoutFlagName           = "timeout"
	configFlagName            = "config"
	versionFlagName           = "version"
	verboseFlagName           = "verbose"
	globalFlagName            = "global"
	forceFlagName             = "force"

	includeFlagDescription           = "include pattern (repeatable)"
	excludeFlagDescription           = "exclude pattern (repeatable, added to the defaults)"
	maxFileSizeFlagDescription       = "largest file in bytes whose content is included"
	maxTotalSizeFlagDescription      = "total bytes of file content to include"
	maxDepthFlagDescription          = "deepest directory level to expand"
	maxFilesFlagDescription          = "most files whose content is read, 0 for no limit"
	noDefaultExcludesFlagDescription = "do not apply the built-in exclude list"
	noGitignoreFlagDescription       = "do not use .gitignore"
	noIgnoreFlagDescription          = "do not use " + utils.IgnoreFileName
	branchFlagDescription            = "branch to clone"
	commitFlagDescription            = "full commit hash to check out"
	tagFlagDescription               = "tag to clone"
	tokenFlagDescription             = "access token for private repositories (default $" + accessTokenEnvironmentVariable + ")"
	subpathFlagDescription           = "ingest only this path inside the source"
	outputFlagDescription            = "output file, '-' for stdout (default " + config.DefaultOutputFile + ")"
	formatFlagDescription            = "output format: text, json or xml"
	copyFlagDescription              = "also copy the digest to the clipboard"
	tokensFlagDescription            = "estimate the token count"
	modelFlagDescription             = "tokenizer model or encoding name"
	workersFlagDescription           = "top-level directories scanned concurrently"
	timeoutFlagDescription           = "stop the traversal after this duration and write a partial digest"
	configFlagDescription            = "configuration file (default ./" + utils.ConfigFileName + ")"
	versionFlagDescription           = "display application version"
	verboseFlagDescription           = "log progress to stderr"
	globalFlagDescription            = "write ~/" + utils.GlobalConfigDirectoryName + "/" + utils.GlobalConfigFileName + " instead of ./" + utils.ConfigFileName
	forceFlagDescription             = "overwrite an existing configuration file"

	accessTokenEnvironmentVariable = "GITHUB_TOKEN"

	versionTemplate             = "digest version: %s\n"
	initCompletedTemplate       = "Configuration written to %s\n"
	outputWrittenTemplate       = "Output written to: %s\n"
	repositorySummaryLabel      = "Repository"
	invalidFormatMessage        = "invalid format value '%s'"
	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	loggerErrorFormat           = "initialize logger: %w"
)

// RepositoryCloner fetches remote sources.
type RepositoryCloner interface {
	Clone(ctx context.Context, request repository.Request) (repository.Checkout, error)
}

// Dependencies are the collaborators of the commands. Zero values are
// replaced with the production implementations.
type Dependencies struct {
	Stdout           io.Writer
	WorkingDirectory string
	NewLogger        func(verbose bool) (*zap.Logger, error)
	NewCloner        func(logger *zap.Logger) RepositoryCloner
	NewTokenCounter  func(model string) (tokenizer.Counter, string, error)
	Copier           output.Copier
}

func (dependencies Dependencies) withDefaults() (Dependencies, error) {
	if dependencies.Stdout == nil {
		dependencies.Stdout = os.Stdout
	}
	if dependencies.WorkingDirectory == "" {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return Dependencies{}, fmt.Errorf(workingDirectoryErrorFormat, err)
		}
		dependencies.WorkingDirectory = workingDirectory
	}
	if dependencies.NewLogger == nil {
		dependencies.NewLogger = utils.NewApplicationLogger
	}
	if dependencies.NewCloner == nil {
		dependencies.NewCloner = func(logger *zap.Logger) RepositoryCloner {
			return repository.NewCloner(logger)
		}
	}
	if dependencies.NewTokenCounter == nil {
		dependencies.NewTokenCounter = func(model string) (tokenizer.Counter, string, error) {
			return tokenizer.NewCounter(tokenizer.Config{Model: model})
		}
	}
	if dependencies.Copier == nil {
		dependencies.Copier = output.SystemClipboard{}
	}
	return dependencies, nil
}

// Execute runs the digest application. An interrupt cancels the traversal
// and still writes the partial digest.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rootCommand := NewRootCommand(Dependencies{})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// digestOptions stores the values of the root command flags.
type digestOptions struct {
	include           []string
	exclude           []string
	maxFileSize       int64
	maxTotalSize      int64
	maxDepth          int
	maxFiles          int
	noDefaultExcludes bool
	noGitignore       bool
	noIgnoreFile      bool
	branch            string
	commit            string
	tag               string
	token             string
	subpath           string
	outputFile        string
	format            string
	copy              bool
	tokens            bool
	model             string
	workers           int
	timeout           time.Duration
	configPath        string
	showVersion       bool
	verbose           bool
}

// NewRootCommand builds the digest command tree.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	var options digestOptions

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			resolved, err := dependencies.withDefaults()
			if err != nil {
				return err
			}
			if options.showVersion {
				_, writeErr := fmt.Fprintf(resolved.Stdout, versionTemplate, utils.GetApplicationVersion())
				return writeErr
			}
			source := defaultSource
			if len(arguments) > 0 {
				source = arguments[0]
			}
			return runDigest(command.Context(), command, resolved, options, source)
		},
	}

	flagSet := rootCommand.Flags()
	flagSet.StringArrayVarP(&options.include, includeFlagName, includeShorthand, nil, includeFlagDescription)
	flagSet.StringArrayVarP(&options.exclude, excludeFlagName, excludeShorthand, nil, excludeFlagDescription)
	flagSet.Int64Var(&options.maxFileSize, maxFileSizeFlagName, config.DefaultMaxFileSize, maxFileSizeFlagDescription)
	flagSet.Int64Var(&options.maxTotalSize, maxTotalSizeFlagName, config.DefaultMaxTotalSize, maxTotalSizeFlagDescription)
	flagSet.IntVar(&options.maxDepth, maxDepthFlagName, config.DefaultMaxDepth, maxDepthFlagDescription)
	flagSet.IntVar(&options.maxFiles, maxFilesFlagName, config.DefaultMaxFiles, maxFilesFlagDescription)
	registerBooleanFlag(flagSet, &options.noDefaultExcludes, noDefaultExcludesFlagName, false, noDefaultExcludesFlagDescription)
	registerBooleanFlag(flagSet, &options.noGitignore, noGitignoreFlagName, false, noGitignoreFlagDescription)
	registerBooleanFlag(flagSet, &options.noIgnoreFile, noIgnoreFlagName, false, noIgnoreFlagDescription)
	flagSet.StringVarP(&options.branch, branchFlagName, branchShorthand, "", branchFlagDescription)
	flagSet.StringVar(&options.commit, commitFlagName, "", commitFlagDescription)
	flagSet.StringVar(&options.tag, tagFlagName, "", tagFlagDescription)
	flagSet.StringVar(&options.token, tokenFlagName, "", tokenFlagDescription)
	flagSet.StringVar(&options.subpath, subpathFlagName, "", subpathFlagDescription)
	flagSet.StringVarP(&options.outputFile, outputFlagName, outputShorthand, "", outputFlagDescription)
	flagSet.StringVar(&options.format, formatFlagName, config.DefaultFormat, formatFlagDescription)
	registerBooleanFlag(flagSet, &options.copy, copyFlagName, false, copyFlagDescription)
	registerBooleanFlag(flagSet, &options.tokens, tokensFlagName, true, tokensFlagDescription)
	flagSet.StringVar(&options.model, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	flagSet.IntVar(&options.workers, workersFlagName, 1, workersFlagDescription)
	flagSet.DurationVar(&options.timeout, timeoutFlagName, 0, timeoutFlagDescription)
	flagSet.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	flagSet.BoolVar(&options.showVersion, versionFlagName, false, versionFlagDescription)
	registerBooleanFlag(rootCommand.PersistentFlags(), &options.verbose, verboseFlagName, false, verboseFlagDescription)

	rootCommand.AddCommand(createInitCommand(dependencies))
	return rootCommand
}

func createInitCommand(dependencies Dependencies) *cobra.Command {
	var global bool
	var force bool
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			resolved, err := dependencies.withDefaults()
			if err != nil {
				return err
			}
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, initErr := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: resolved.WorkingDirectory,
			})
			if initErr != nil {
				return initErr
			}
			_, writeErr := fmt.Fprintf(resolved.Stdout, initCompletedTemplate, path)
			return writeErr
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

// applyFlags overlays explicitly set flags on the configured settings.
func applyFlags(command *cobra.Command, settings config.Settings, options digestOptions) config.Settings {
	changed := command.Flags().Changed
	if changed(includeFlagName) {
		settings.Include = utils.DeduplicatePatterns(options.include)
	}
	if changed(excludeFlagName) {
		settings.Exclude = utils.DeduplicatePatterns(append(settings.Exclude, options.exclude...))
	}
	if changed(maxFileSizeFlagName) {
		settings.MaxFileSize = options.maxFileSize
	}
	if changed(maxTotalSizeFlagName) {
		settings.MaxTotalSize = options.maxTotalSize
	}
	if changed(maxDepthFlagName) {
		settings.MaxDepth = options.maxDepth
	}
	if changed(maxFilesFlagName) {
		settings.MaxFiles = options.maxFiles
	}
	if changed(noDefaultExcludesFlagName) {
		settings.UseDefaultExcludes = !options.noDefaultExcludes
	}
	if changed(noGitignoreFlagName) {
		settings.UseGitignore = !options.noGitignore
	}
	if changed(noIgnoreFlagName) {
		settings.UseIgnoreFile = !options.noIgnoreFile
	}
	if changed(outputFlagName) {
		settings.OutputFile = options.outputFile
	}
	if changed(formatFlagName) {
		settings.Format = options.format
	}
	if changed(copyFlagName) {
		settings.Clipboard = options.copy
	}
	if changed(tokensFlagName) {
		settings.TokensEnabled = options.tokens
	}
	if changed(modelFlagName) {
		settings.Model = options.model
	}
	if changed(workersFlagName) {
		settings.Workers = options.workers
	}
	settings.Format = strings.ToLower(strings.TrimSpace(settings.Format))
	return settings
}

// resolvedSource is what runDigest ingests after parsing and cloning.
type resolvedSource struct {
	rootPath string
	summary  output.SummaryOptions
	cleanup  func()
}

func runDigest(ctx context.Context, command *cobra.Command, dependencies Dependencies, options digestOptions, source string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, loggerErr := dependencies.NewLogger(options.verbose)
	if loggerErr != nil {
		return fmt.Errorf(loggerErrorFormat, loggerErr)
	}
	defer func() { _ = logger.Sync() }()

	loaded, loadErr := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: dependencies.WorkingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if loadErr != nil {
		return loadErr
	}
	settings := applyFlags(command, loaded.Resolve(), options)
	renderer, rendererErr := output.NewRenderer(settings.Format)
	if rendererErr != nil {
		return fmt.Errorf(invalidFormatMessage, settings.Format)
	}

	parsed, parseErr := query.Parse(source, query.Options{
		Branch:           options.branch,
		Commit:           options.commit,
		Tag:              options.tag,
		Subpath:          options.subpath,
		WorkingDirectory: dependencies.WorkingDirectory,
	})
	if parseErr != nil {
		return parseErr
	}
	accessToken := options.token
	if accessToken == "" {
		accessToken = strings.TrimSpace(os.Getenv(accessTokenEnvironmentVariable))
	}
	resolved, resolveErr := resolveSource(ctx, dependencies, logger, parsed, accessToken)
	if resolveErr != nil {
		return resolveErr
	}
	defer resolved.cleanup()

	ingestContext := ctx
	if options.timeout > 0 {
		var cancel context.CancelFunc
		ingestContext, cancel = context.WithTimeout(ctx, options.timeout)
		defer cancel()
	}

	excludePatterns, excludeErr := config.ExcludePatterns(ingestContext, resolved.rootPath, settings)
	if excludeErr != nil {
		return excludeErr
	}
	outputPath := outputLocation(dependencies.WorkingDirectory, settings.OutputFile)
	if outputPattern, insideRoot := outputExcludePattern(resolved.rootPath, outputPath); insideRoot {
		excludePatterns = append(excludePatterns, outputPattern)
	}

	var tokenCounter tokenizer.Counter
	if settings.TokensEnabled {
		counter, model, counterErr := dependencies.NewTokenCounter(settings.Model)
		if counterErr != nil {
			return counterErr
		}
		logger.Debug("token counter selected", zap.String("encoding", model))
		tokenCounter = counter
	}

	digest, ingestErr := ingest.Ingest(ingestContext, resolved.rootPath, settings.TraversalConfig(excludePatterns), ingest.Options{
		Logger:           logger,
		Workers:          settings.Workers,
		RespectGitignore: settings.UseGitignore,
		Summary:          resolved.summary,
		TokenCounter:     tokenCounter,
	})
	if ingestErr != nil {
		return ingestErr
	}
	if digest.Stats.Cancelled {
		logger.Warn("traversal interrupted, writing partial digest", zap.Int("files", digest.Stats.FilesIncluded))
	}

	document, renderErr := renderer.Render(digest)
	if renderErr != nil {
		return renderErr
	}
	sinks := []output.Sink{output.NewTargetSink(outputPath, dependencies.Stdout)}
	if settings.Clipboard {
		sinks = append(sinks, output.ClipboardSink{Copier: dependencies.Copier})
	}
	for _, sink := range sinks {
		if writeErr := sink.Write(document); writeErr != nil {
			return writeErr
		}
	}

	if outputPath != output.StandardOutputTarget {
		if _, err := fmt.Fprint(dependencies.Stdout, digest.Summary); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(dependencies.Stdout, outputWrittenTemplate, settings.OutputFile); err != nil {
			return err
		}
	}
	return nil
}

// resolveSource clones remote queries and locates the directory to ingest.
func resolveSource(ctx context.Context, dependencies Dependencies, logger *zap.Logger, parsed query.Query, accessToken string) (resolvedSource, error) {
	if !parsed.IsRemote {
		rootPath := parsed.LocalPath
		if parsed.Subpath != "" {
			rootPath = filepath.Join(rootPath, filepath.FromSlash(parsed.Subpath))
		}
		return resolvedSource{
			rootPath: rootPath,
			summary:  output.SummaryOptions{Name: parsed.DisplayName(), Subpath: parsed.Subpath},
			cleanup:  func() {},
		}, nil
	}

	checkout, cloneErr := dependencies.NewCloner(logger).Clone(ctx, repository.Request{
		URL:     parsed.URL,
		Name:    parsed.Repository,
		Branch:  parsed.Branch,
		Commit:  parsed.Commit,
		Tag:     parsed.Tag,
		Subpath: parsed.Subpath,
		Token:   accessToken,
	})
	if cloneErr != nil {
		return resolvedSource{}, cloneErr
	}
	return resolvedSource{
		rootPath: checkout.Path,
		summary: output.SummaryOptions{
			Label:   repositorySummaryLabel,
			Name:    parsed.DisplayName(),
			Branch:  checkout.Branch,
			Commit:  checkout.Commit,
			Tag:     checkout.Tag,
			Subpath: parsed.Subpath,
		},
		cleanup: func() { _ = checkout.Cleanup() },
	}, nil
}

func outputLocation(workingDirectory string, outputFile string) string {
	if outputFile == output.StandardOutputTarget || filepath.IsAbs(outputFile) {
		return outputFile
	}
	return filepath.Join(workingDirectory, outputFile)
}

// outputExcludePattern anchors the output file when it lies inside the
// ingested tree, so a rerun does not digest its own previous output. The
// path is escaped so it matches that one file only.
func outputExcludePattern(rootPath string, outputPath string) (string, bool) {
	if outputPath == output.StandardOutputTarget {
		return "", false
	}
	absoluteRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return "", false
	}
	relativePath := utils.RelativePathOrSelf(outputPath, absoluteRoot)
	if relativePath == "." || relativePath == ".." || strings.HasPrefix(relativePath, "../") || filepath.IsAbs(relativePath) {
		return "", false
	}
	return "/" + matcher.EscapeLiteral(relativePath), true
}
