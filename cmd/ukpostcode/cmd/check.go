package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/ukpostcode/internal/postcode"
	"github.com/solatis/ukpostcode/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <postcode>...",
	Short: "Report VALID or INVALID for each postcode",
	Long: `Report VALID or INVALID for each postcode, tab-separated after the input.
Exits 1 if any postcode is invalid.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

var formatCmd = &cobra.Command{
	Use:   "format <postcode>...",
	Short: "Print the canonical form of each postcode",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFormat,
}

var parseCmd = &cobra.Command{
	Use:   "parse <postcode>...",
	Short: "Print the components of each postcode as JSON lines",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	rootCmd.AddCommand(validateCmd, formatCmd, parseCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	anyInvalid := false
	for _, raw := range args {
		valid, err := postcode.IsValid(raw)
		if err != nil && !errors.Is(err, types.ErrEmptyInput) {
			return failed(err)
		}
		verdict := "VALID"
		if !valid {
			verdict = "INVALID"
			anyInvalid = true
		}
		fmt.Fprintf(out, "%s\t%s\n", raw, verdict)
	}
	if anyInvalid {
		return &exitError{code: exitInvalid}
	}
	return nil
}

func runFormat(cmd *cobra.Command, args []string) error {
	return eachPostcode(cmd, args, func(c types.Components) (string, error) {
		return c.Formatted, nil
	})
}

func runParse(cmd *cobra.Command, args []string) error {
	return eachPostcode(cmd, args, func(c types.Components) (string, error) {
		b, err := json.Marshal(c)
		return string(b), err
	})
}

// eachPostcode parses every argument and prints render(components) per line.
// Failures go to stderr and the command exits 1 after processing all input.
func eachPostcode(cmd *cobra.Command, args []string, render func(types.Components) (string, error)) error {
	anyInvalid := false
	for _, raw := range args {
		c, err := postcode.Parse(raw)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%q: %v\n", raw, err)
			anyInvalid = true
			continue
		}
		line, err := render(c)
		if err != nil {
			return failed(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	if anyInvalid {
		return &exitError{code: exitInvalid}
	}
	return nil
}
