package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	toggleFlagTypeName       = "bool"
	toggleFlagImplicitValue  = "true"
	toggleFlagAcceptedValues = "true, false, yes, no, on, off, 1, 0"
	toggleFlagErrorFormat    = "invalid value %q for --%s; accepted values: %s"
)

// parseToggleLiteral accepts the spellings people type for on and off.
func parseToggleLiteral(input string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "true", "t", "1", "yes", "y", "on":
		return true, true
	case "false", "f", "0", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// toggleFlag is a pflag.Value that understands yes/no and on/off in
// addition to the literals strconv.ParseBool accepts.
type toggleFlag struct {
	target *bool
	name   string
}

func (flag *toggleFlag) Set(input string) error {
	value, ok := parseToggleLiteral(input)
	if !ok {
		return fmt.Errorf(toggleFlagErrorFormat, input, flag.name, toggleFlagAcceptedValues)
	}
	*flag.target = value
	return nil
}

func (flag *toggleFlag) String() string {
	if flag == nil || flag.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*flag.target)
}

func (flag *toggleFlag) Type() string {
	return toggleFlagTypeName
}

// registerBooleanFlag adds a toggle that may be given bare (--copy), with
// an equals sign (--copy=no) or followed by a literal (--copy no).
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil {
		return
	}
	*target = defaultValue
	flagSet.Var(&toggleFlag{target: target, name: name}, name, usage)
	registered := flagSet.Lookup(name)
	registered.DefValue = strconv.FormatBool(defaultValue)
	registered.NoOptDefVal = toggleFlagImplicitValue
}

// normalizeBooleanFlagArguments joins "--flag literal" pairs into
// "--flag=literal" for every toggle of the command tree. pflag would
// otherwise read the literal as a positional argument.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	if command == nil || len(arguments) == 0 {
		return arguments
	}
	toggles := toggleFlagNames(command)
	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == "--" {
			return append(normalized, arguments[index:]...)
		}
		name, isLongFlag := strings.CutPrefix(argument, "--")
		_, isToggle := toggles[name]
		if isLongFlag && isToggle && index+1 < len(arguments) {
			next := arguments[index+1]
			if _, isLiteral := parseToggleLiteral(next); isLiteral && next != "" && !strings.HasPrefix(next, "-") {
				normalized = append(normalized, argument+"="+next)
				index++
				continue
			}
		}
		normalized = append(normalized, argument)
	}
	return normalized
}

func toggleFlagNames(command *cobra.Command) map[string]struct{} {
	names := map[string]struct{}{}
	var visit func(current *cobra.Command)
	visit = func(current *cobra.Command) {
		collect := func(flag *pflag.Flag) {
			if flag.Value.Type() == toggleFlagTypeName {
				names[flag.Name] = struct{}{}
			}
		}
		current.PersistentFlags().VisitAll(collect)
		current.Flags().VisitAll(collect)
		for _, child := range current.Commands() {
			visit(child)
		}
	}
	visit(command)
	return names
}
