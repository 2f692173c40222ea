// pkg/cli/cli.go
//
// Flag helpers shared by the hestia subcommands. Flags are declared on cobra
// commands and read back through a Viper instance so that flag values and
// bootstrap file values reach the options resolver in the same shape.
package cli

import (
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AddStringFlag adds a string flag.
func AddStringFlag(cmd *cobra.Command, name, def, help string) {
	cmd.Flags().String(name, def, help)
}

// AddBoolFlag adds a boolean flag.
func AddBoolFlag(cmd *cobra.Command, name string, def bool, help string) {
	cmd.Flags().Bool(name, def, help)
}

// BindFlagsToViper binds all flags on a command to a Viper instance.
func BindFlagsToViper(cmd *cobra.Command, v *viper.Viper) error {
	var result error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(f.Name, f); err != nil {
			result = multierror.Append(result, err)
		}
	})
	return result
}

// ChangedFlags returns the values of the flags the user set explicitly on
// cmd, keyed by flag name. Flags in skip are ignored.
func ChangedFlags(cmd *cobra.Command, skip ...string) (map[string]any, error) {
	v := viper.New()
	if err := BindFlagsToViper(cmd, v); err != nil {
		return nil, err
	}

	ignored := make(map[string]bool, len(skip))
	for _, name := range skip {
		ignored[name] = true
	}

	values := make(map[string]any)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if !ignored[f.Name] {
			values[f.Name] = v.Get(f.Name)
		}
	})
	return values, nil
}
