// Command template_fields lists the AcroForm fields of a PDF template, so the
// form schema can be kept in line with the printed inspection sheet.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/a3tai/inspection-report/internal/pdf"
)

const maxTemplateSize = 100 * 1024 * 1024

// ExtractionResult is the machine-readable output of the command.
type ExtractionResult struct {
	FilePath       string              `json:"file_path"`
	Success        bool                `json:"success"`
	FieldCount     int                 `json:"field_count"`
	Fields         []pdf.TemplateField `json:"fields"`
	Document       *pdf.Inspection     `json:"document,omitempty"`
	Error          string              `json:"error,omitempty"`
	ExtractionTime string              `json:"extraction_time,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("template_fields", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	format := flags.String("format", "text", "Output format: text, json")
	diagnostic := flags.Bool("diagnostic", false, "Also report PDF version, page count and encryption")
	flags.Usage = func() { printUsage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n\n", *format)
		printUsage(stderr, flags)
		return 2
	}
	if flags.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: PDF file path required\n\n")
		printUsage(stderr, flags)
		return 2
	}

	result := extract(flags.Arg(0), *diagnostic)

	var err error
	if *format == "json" {
		err = outputJSON(stdout, result)
	} else {
		err = outputText(stdout, result)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error outputting results: %v\n", err)
		return 1
	}
	if !result.Success {
		return 1
	}
	return 0
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: template_fields [OPTIONS] <pdf-file>\n\n")
	fmt.Fprintf(w, "Options:\n")
	flags.SetOutput(w)
	flags.PrintDefaults()
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  template_fields ficha_base.pdf\n")
	fmt.Fprintf(w, "  template_fields --format json --diagnostic ficha_base.pdf\n")
}

func extract(path string, diagnostic bool) *ExtractionResult {
	start := time.Now()

	result := &ExtractionResult{FilePath: path}
	if abs, err := filepath.Abs(path); err == nil {
		result.FilePath = abs
	}

	fields, err := pdf.TemplateFields(result.FilePath)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.Fields = fields
	result.FieldCount = len(fields)

	if diagnostic {
		data, err := os.ReadFile(result.FilePath)
		if err == nil {
			result.Document, err = pdf.NewInspector(maxTemplateSize).Inspect(data)
		}
		if err != nil {
			result.Error = fmt.Sprintf("diagnostics unavailable: %v", err)
		}
		if result.Document != nil {
			// page text is noise here
			result.Document.PageText = nil
		}
	}

	result.ExtractionTime = time.Since(start).Round(time.Millisecond).String()
	return result
}

func outputJSON(w io.Writer, result *ExtractionResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputText(w io.Writer, result *ExtractionResult) error {
	var b strings.Builder

	if !result.Success {
		fmt.Fprintf(&b, "Form extraction failed: %s\n", result.Error)
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "File: %s\n", result.FilePath)
	if d := result.Document; d != nil {
		fmt.Fprintf(&b, "PDF Version: %s\n", d.Version)
		fmt.Fprintf(&b, "Pages: %d\n", d.Pages)
		fmt.Fprintf(&b, "Encrypted: %t\n", d.Encrypted)
	}
	if result.Error != "" {
		fmt.Fprintf(&b, "Warning: %s\n", result.Error)
	}
	fmt.Fprintf(&b, "Found %d form fields\n", result.FieldCount)

	for i, field := range result.Fields {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, field.Name)
		fmt.Fprintf(&b, "    Type: %s\n", field.Kind)
		if field.Value != "" {
			fmt.Fprintf(&b, "    Value: %s\n", field.Value)
		}

		var properties []string
		if field.Required {
			properties = append(properties, "required")
		}
		if field.ReadOnly {
			properties = append(properties, "read-only")
		}
		if len(properties) > 0 {
			fmt.Fprintf(&b, "    Properties: %s\n", strings.Join(properties, ", "))
		}
		if len(field.Options) > 0 {
			fmt.Fprintf(&b, "    Options: %s\n", strings.Join(field.Options, ", "))
		}
		if field.MaxLen > 0 {
			fmt.Fprintf(&b, "    Max Length: %d\n", field.MaxLen)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
