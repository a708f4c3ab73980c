package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/digest/internal/tokenizer"
	"github.com/temirov/digest/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes ./.digest.yaml.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes ~/.digest/config.yaml.
	InitTargetGlobal InitTarget = "global"

	configurationFileType        = "yaml"
	configurationFilePermissions = 0o600
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// defaultConfigurationValues is the content of a freshly initialized file:
// every key spelled out with its built-in default.
func defaultConfigurationValues() map[string]any {
	return map[string]any{
		maxFileSizeKey:           DefaultMaxFileSize,
		maxTotalSizeKey:          DefaultMaxTotalSize,
		maxDepthKey:              DefaultMaxDepth,
		maxFilesKey:              DefaultMaxFiles,
		"ingest.workers":         1,
		"ingest.include":         []string{},
		"ingest.exclude":         []string{},
		"paths.default_excludes": true,
		"paths.use_gitignore":    true,
		"paths.use_ignore":       true,
		outputFileKey:            DefaultOutputFile,
		"output.format":          DefaultFormat,
		"output.clipboard":       false,
		"tokens.enabled":         true,
		tokensModelKey:           tokenizer.DefaultModel,
	}
}

// InitializeConfiguration writes the default configuration to the requested
// target and returns the written path. An existing file is only replaced
// with Force.
func InitializeConfiguration(options InitOptions) (string, error) {
	destinationPath, destinationErr := initDestination(options)
	if destinationErr != nil {
		return "", destinationErr
	}

	if _, err := os.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(destinationPath), 0o755); err != nil {
		return "", fmt.Errorf("create configuration directory %s: %w", filepath.Dir(destinationPath), err)
	}

	writer := viper.New()
	writer.SetConfigType(configurationFileType)
	writer.SetConfigPermissions(configurationFilePermissions)
	for key, value := range defaultConfigurationValues() {
		writer.Set(key, value)
	}
	if err := writer.WriteConfigAs(destinationPath); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}
	return destinationPath, nil
}

func initDestination(options InitOptions) (string, error) {
	switch options.Target {
	case InitTargetLocal, "":
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	case InitTargetGlobal:
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory for configuration: %w", err)
		}
		return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName), nil
	default:
		return "", fmt.Errorf("unsupported init target %q", options.Target)
	}
}
