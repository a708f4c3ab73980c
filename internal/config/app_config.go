package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/temirov/digest/internal/utils"
)

const (
	// EnvironmentPrefix prefixes every environment override, e.g. DIGEST_INGEST_MAX_DEPTH.
	EnvironmentPrefix = "DIGEST"

	maxFileSizeKey  = "ingest.max_file_size"
	maxTotalSizeKey = "ingest.max_total_size"
	maxDepthKey     = "ingest.max_depth"
	maxFilesKey     = "ingest.max_files"
	outputFileKey   = "output.file"
	tokensModelKey  = "tokens.model"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration mirrors the YAML configuration file. Unset values
// stay nil or empty so that layered files can be merged.
type ApplicationConfiguration struct {
	Ingest IngestConfiguration `mapstructure:"ingest"`
	Paths  PathConfiguration   `mapstructure:"paths"`
	Output OutputConfiguration `mapstructure:"output"`
	Tokens TokenConfiguration  `mapstructure:"tokens"`
}

// IngestConfiguration holds traversal limits and patterns.
type IngestConfiguration struct {
	MaxFileSize  *int64   `mapstructure:"max_file_size"`
	MaxTotalSize *int64   `mapstructure:"max_total_size"`
	MaxDepth     *int     `mapstructure:"max_depth"`
	MaxFiles     *int     `mapstructure:"max_files"`
	Workers      *int     `mapstructure:"workers"`
	Include      []string `mapstructure:"include"`
	Exclude      []string `mapstructure:"exclude"`
}

// PathConfiguration toggles the sources of exclude patterns.
type PathConfiguration struct {
	DefaultExcludes *bool `mapstructure:"default_excludes"`
	UseGitignore    *bool `mapstructure:"use_gitignore"`
	UseIgnoreFile   *bool `mapstructure:"use_ignore"`
}

// OutputConfiguration controls where and how the digest is written.
type OutputConfiguration struct {
	File      string `mapstructure:"file"`
	Format    string `mapstructure:"format"`
	Clipboard *bool  `mapstructure:"clipboard"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Enabled *bool  `mapstructure:"enabled"`
	Model   string `mapstructure:"model"`
}

// LoadApplicationConfiguration loads the global file, then the local or
// explicit file, then environment overrides, each layer overriding the last.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	environmentConfig, environmentErr := loadEnvironmentOverrides()
	if environmentErr != nil {
		return ApplicationConfiguration{}, environmentErr
	}
	merged = merged.Merge(environmentConfig)

	merged.Ingest.Include = utils.DeduplicatePatterns(merged.Ingest.Include)
	merged.Ingest.Exclude = utils.DeduplicatePatterns(merged.Ingest.Exclude)
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName), nil
}

// loadConfigurationFromPath decodes one YAML file. A missing file is an empty
// configuration unless it was requested explicitly.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("yaml")
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// loadEnvironmentOverrides reads DIGEST_* variables. Keys map with dots
// replaced by underscores, so ingest.max_depth is DIGEST_INGEST_MAX_DEPTH.
func loadEnvironmentOverrides() (ApplicationConfiguration, error) {
	reader := viper.New()
	reader.SetEnvPrefix(EnvironmentPrefix)
	reader.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{maxFileSizeKey, maxTotalSizeKey, maxDepthKey, maxFilesKey, outputFileKey, tokensModelKey} {
		if bindErr := reader.BindEnv(key); bindErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("bind environment for %s: %w", key, bindErr)
		}
	}

	var config ApplicationConfiguration
	for key, target := range map[string]**int64{
		maxFileSizeKey:  &config.Ingest.MaxFileSize,
		maxTotalSizeKey: &config.Ingest.MaxTotalSize,
	} {
		if !reader.IsSet(key) {
			continue
		}
		parsed, parseErr := strconv.ParseInt(strings.TrimSpace(reader.GetString(key)), 10, 64)
		if parseErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("parse environment override %s: %w", environmentName(key), parseErr)
		}
		*target = &parsed
	}
	for key, target := range map[string]**int{
		maxDepthKey: &config.Ingest.MaxDepth,
		maxFilesKey: &config.Ingest.MaxFiles,
	} {
		if !reader.IsSet(key) {
			continue
		}
		parsed, parseErr := strconv.Atoi(strings.TrimSpace(reader.GetString(key)))
		if parseErr != nil {
			return ApplicationConfiguration{}, fmt.Errorf("parse environment override %s: %w", environmentName(key), parseErr)
		}
		*target = &parsed
	}
	config.Output.File = strings.TrimSpace(reader.GetString(outputFileKey))
	config.Tokens.Model = strings.TrimSpace(reader.GetString(tokensModelKey))
	return config, nil
}

func environmentName(key string) string {
	return EnvironmentPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Ingest = result.Ingest.merge(override.Ingest)
	result.Paths = result.Paths.merge(override.Paths)
	result.Output = result.Output.merge(override.Output)
	result.Tokens = result.Tokens.merge(override.Tokens)
	return result
}

func (config IngestConfiguration) merge(override IngestConfiguration) IngestConfiguration {
	result := config
	if override.MaxFileSize != nil {
		result.MaxFileSize = clonePointer(override.MaxFileSize)
	}
	if override.MaxTotalSize != nil {
		result.MaxTotalSize = clonePointer(override.MaxTotalSize)
	}
	if override.MaxDepth != nil {
		result.MaxDepth = clonePointer(override.MaxDepth)
	}
	if override.MaxFiles != nil {
		result.MaxFiles = clonePointer(override.MaxFiles)
	}
	if override.Workers != nil {
		result.Workers = clonePointer(override.Workers)
	}
	if len(override.Include) > 0 {
		result.Include = append([]string{}, utils.DeduplicatePatterns(override.Include)...)
	}
	if len(override.Exclude) > 0 {
		result.Exclude = append([]string{}, utils.DeduplicatePatterns(override.Exclude)...)
	}
	return result
}

func (config PathConfiguration) merge(override PathConfiguration) PathConfiguration {
	result := config
	if override.DefaultExcludes != nil {
		result.DefaultExcludes = clonePointer(override.DefaultExcludes)
	}
	if override.UseGitignore != nil {
		result.UseGitignore = clonePointer(override.UseGitignore)
	}
	if override.UseIgnoreFile != nil {
		result.UseIgnoreFile = clonePointer(override.UseIgnoreFile)
	}
	return result
}

func (config OutputConfiguration) merge(override OutputConfiguration) OutputConfiguration {
	result := config
	if override.File != "" {
		result.File = override.File
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Clipboard != nil {
		result.Clipboard = clonePointer(override.Clipboard)
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Enabled != nil {
		result.Enabled = clonePointer(override.Enabled)
	}
	if override.Model != "" {
		result.Model = override.Model
	}
	return result
}

func clonePointer[T any](value *T) *T {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
