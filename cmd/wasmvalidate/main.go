// Command wasmvalidate loads a YAML module fixture and runs it through the
// static validator, printing either acceptance or the single diagnostic
// that rejected it.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stackwasm/wasmvalidate/validate"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "wasmvalidate [module.yaml]",
		Short:         "Validate a module fixture against the static type system",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			validate.SetDebug(verbose)
			return runValidate(cmd.OutOrStdout(), args[0])
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log when validation starts and whether the module was accepted or rejected")
	return root
}

func runValidate(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	m, err := fx.toModule()
	if err != nil {
		return fmt.Errorf("building module from %s: %w", path, err)
	}

	profile := validate.Profile{
		AllowMultipleMemories: fx.Profile.AllowMultipleMemories,
		AllowMultiValueBlocks: fx.Profile.AllowMultiValueBlocks,
	}

	if err := validate.Module(m, profile); err != nil {
		fmt.Fprintf(w, "invalid: %s\n", err)
		return errInvalidModule
	}

	fmt.Fprintln(w, "valid")
	return nil
}

var errInvalidModule = fmt.Errorf("module failed validation")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if err != errInvalidModule {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
