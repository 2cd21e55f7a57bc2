package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	classesVariant  string
	classesManifest string
	classesPrivate  bool
	classesFormat   string
)

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the external classes a variant uses",
	Long: `List the classes referenced by a variant's compiled code that it does not
define itself. With --private, only classes that never appear in the
variant's public surface are listed.

Examples:
  depusage classes --variant release
  depusage classes --variant release --private`,
	RunE: runClasses,
}

func init() {
	classesCmd.Flags().StringVar(&classesVariant, "variant", "", "Variant to inspect (required)")
	classesCmd.Flags().StringVar(&classesManifest, "manifest", "", "Manifest file (default: config manifest)")
	classesCmd.Flags().BoolVar(&classesPrivate, "private", false, "Only list classes not exposed publicly")
	classesCmd.Flags().StringVar(&classesFormat, "format", "human", "Output format (human, json)")
	rootCmd.AddCommand(classesCmd)
}

// ClassesResponseCLI is the classes command output.
type ClassesResponseCLI struct {
	Variant string   `json:"variant"`
	Private bool     `json:"private"`
	Classes []string `json:"classes"`
}

func runClasses(cmd *cobra.Command, args []string) error {
	res, err := analyzeVariant(cmd.Context(), classesManifest, classesVariant)
	if err != nil {
		return err
	}

	resp := &ClassesResponseCLI{Variant: res.Variant, Private: classesPrivate, Classes: res.Classes.Used()}
	if classesPrivate {
		resp.Classes = res.Classes.Private()
	}

	out, err := FormatResponse(resp, OutputFormat(classesFormat))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
