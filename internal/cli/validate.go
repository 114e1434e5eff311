package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/modelsync/internal/language"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                `json:"valid"`
	Language    string              `json:"language,omitempty"`
	Version     string              `json:"version,omitempty"`
	Classifiers []ClassifierSummary `json:"classifiers,omitempty"`
	Errors      []ValidationError   `json:"errors,omitempty"`
}

// ClassifierSummary describes one classifier of a valid language.
type ClassifierSummary struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Partition bool   `json:"partition,omitempty"`
	Features  int    `json:"features"`
}

// ValidationError locates a problem in a language file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <language.cue>",
		Short: "Validate a language definition",
		Long: `Compile a CUE language definition and report its classifiers.

Checks the CUE syntax, the language schema and the consistency of
classifier and feature declarations.

Exit codes:
  0 - Language is valid
  1 - Language is invalid
  2 - Command error (file not found, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	lang, err := language.LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			_ = formatter.Error(ErrCodeLanguage, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load language", err)
		}
		ve := ValidationError{Field: "language", Message: err.Error()}
		var ce *language.CompileError
		if errors.As(err, &ce) {
			ve = toValidationError(ce)
		}
		return outputValidationErrors(formatter, []ValidationError{ve})
	}

	result := ValidationResult{
		Valid:    true,
		Language: lang.Key,
		Version:  lang.Version,
	}
	for _, c := range lang.Classifiers {
		formatter.VerboseLog("Classifier %s (%s)", c.Name, c.Kind)
		result.Classifiers = append(result.Classifiers, ClassifierSummary{
			Name:      c.Name,
			Kind:      c.Kind.String(),
			Partition: c.Partition,
			Features:  len(c.AllFeatures()),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Language %s %s is valid (%d classifiers)\n",
		result.Language, result.Version, len(result.Classifiers))
	return nil
}

func toValidationError(ce *language.CompileError) ValidationError {
	ve := ValidationError{Field: ce.Field, Message: ce.Message}
	if ce.Pos.IsValid() {
		ve.File = ce.Pos.Filename()
		ve.Line = ce.Pos.Line()
	}
	return ve
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    ErrCodeLanguage,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Field, err.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
