package config

import (
	"github.com/temirov/digest/internal/tokenizer"
	"github.com/temirov/digest/internal/types"
	"github.com/temirov/digest/internal/utils"
)

// Built-in defaults applied when neither a file, the environment nor a flag sets a value.
const (
	DefaultMaxFileSize  int64 = 10 * 1024 * 1024
	DefaultMaxTotalSize int64 = 500 * 1024 * 1024
	DefaultMaxDepth           = 20
	DefaultMaxFiles           = 10_000
	DefaultOutputFile         = "digest.txt"
	DefaultFormat             = types.FormatText
)

// DefaultExcludePatterns lists entries that rarely belong in a digest.
var DefaultExcludePatterns = []string{
	utils.GitDirectoryName + "/",
	".hg/",
	".svn/",
	".idea/",
	".vscode/",
	".DS_Store",
	"node_modules/",
	"bower_components/",
	"vendor/",
	".venv/",
	"venv/",
	"__pycache__/",
	".pytest_cache/",
	".mypy_cache/",
	".tox/",
	"*.pyc",
	"*.pyo",
	"*.egg-info/",
	".gradle/",
	"target/",
	"dist/",
	"build/",
	".next/",
	".terraform/",
	"coverage/",
	"*.class",
	"*.jar",
	"*.o",
	"*.a",
	"*.so",
	"*.dylib",
	"*.dll",
	"*.exe",
	"*.lock",
	"package-lock.json",
	"go.sum",
	"*.min.js",
	"*.min.css",
	"*.map",
	"*.png",
	"*.jpg",
	"*.jpeg",
	"*.gif",
	"*.ico",
	"*.svg",
	"*.webp",
	"*.mp3",
	"*.mp4",
	"*.mov",
	"*.pdf",
	"*.zip",
	"*.tar",
	"*.gz",
	"*.7z",
	"*.log",
	utils.ConfigFileName,
	utils.IgnoreFileName,
	DefaultOutputFile,
}

// Settings is the fully resolved configuration with defaults applied.
type Settings struct {
	MaxFileSize        int64
	MaxTotalSize       int64
	MaxDepth           int
	MaxFiles           int
	Workers            int
	Include            []string
	Exclude            []string
	UseDefaultExcludes bool
	UseGitignore       bool
	UseIgnoreFile      bool
	OutputFile         string
	Format             string
	Clipboard          bool
	TokensEnabled      bool
	Model              string
}

// Resolve fills every unset value with its default.
func (config ApplicationConfiguration) Resolve() Settings {
	return Settings{
		MaxFileSize:        valueOr(config.Ingest.MaxFileSize, DefaultMaxFileSize),
		MaxTotalSize:       valueOr(config.Ingest.MaxTotalSize, DefaultMaxTotalSize),
		MaxDepth:           valueOr(config.Ingest.MaxDepth, DefaultMaxDepth),
		MaxFiles:           valueOr(config.Ingest.MaxFiles, DefaultMaxFiles),
		Workers:            valueOr(config.Ingest.Workers, 1),
		Include:            append([]string{}, config.Ingest.Include...),
		Exclude:            append([]string{}, config.Ingest.Exclude...),
		UseDefaultExcludes: valueOr(config.Paths.DefaultExcludes, true),
		UseGitignore:       valueOr(config.Paths.UseGitignore, true),
		UseIgnoreFile:      valueOr(config.Paths.UseIgnoreFile, true),
		OutputFile:         stringOr(config.Output.File, DefaultOutputFile),
		Format:             stringOr(config.Output.Format, DefaultFormat),
		Clipboard:          valueOr(config.Output.Clipboard, false),
		TokensEnabled:      valueOr(config.Tokens.Enabled, true),
		Model:              stringOr(config.Tokens.Model, tokenizer.DefaultModel),
	}
}

// TraversalConfig converts the settings into ingestion limits and patterns.
// excludePatterns is the combined exclude list built by ExcludePatterns.
func (settings Settings) TraversalConfig(excludePatterns []string) types.TraversalConfig {
	return types.TraversalConfig{
		IncludePatterns: append([]string{}, settings.Include...),
		ExcludePatterns: excludePatterns,
		MaxFileSize:     settings.MaxFileSize,
		MaxTotalSize:    settings.MaxTotalSize,
		MaxDepth:        settings.MaxDepth,
		MaxFiles:        settings.MaxFiles,
	}
}

func valueOr[T any](value *T, fallback T) T {
	if value == nil {
		return fallback
	}
	return *value
}

func stringOr(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
