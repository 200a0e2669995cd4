package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/raywall/fast-mock-server/pkg/config"
	"github.com/raywall/fast-mock-server/pkg/engine"
	"github.com/spf13/cobra"
)

// errInvalidConfig sinaliza falha de validação (exit code 1 no CI).
var errInvalidConfig = errors.New("configuração inválida")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "toolkit",
		Short:         "Ferramentas de apoio ao fast-mock-server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	var file, output string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Valida um arquivo de mocks e aponta regras inalcançáveis",
		Example: `  toolkit validate --file mock.yaml
  toolkit validate --file s3://bucket/mock.yaml --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), file, output)
		},
	}

	defaultOutput := os.Getenv("OUTPUT_FORMAT")
	if defaultOutput == "" {
		defaultOutput = "text"
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Caminho do arquivo YAML ou URI S3/DynamoDB/Redis")
	cmd.Flags().StringVarP(&output, "output", "o", defaultOutput, "Formato da saída: text ou json")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runValidate(ctx context.Context, out io.Writer, source, output string) error {
	if output != "text" && output != "json" {
		return fmt.Errorf("formato de saída desconhecido '%s'", output)
	}

	// 1. Fetch + decode + injeção (sem validar: o relatório lista os problemas)
	loader := engine.NewUniversalLoader()
	raw, err := loader.Fetch(ctx, source)
	if err != nil {
		fmt.Fprintf(out, "Erro de carregamento: %v\n", err)
		return err
	}

	report, err := analyzeRaw(ctx, loader, raw)
	if err != nil {
		fmt.Fprintf(out, "Erro interno do analisador: %v\n", err)
		return err
	}

	if output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printText(out, source, report)
	}

	if !report.Valid {
		return errInvalidConfig
	}
	return nil
}

// analyzeRaw converte erros de validação do Parse no relatório, para que a
// saída JSON seja produzida também em configurações inválidas.
func analyzeRaw(ctx context.Context, loader *engine.UniversalLoader, raw []byte) (*engine.ValidationReport, error) {
	cfg, err := loader.Parse(ctx, raw)
	if err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			return &engine.ValidationReport{Valid: false, Errors: ve.Problems, Warnings: []string{}}, nil
		}
		return nil, err
	}
	return engine.Analyze(cfg)
}

func printText(out io.Writer, source string, report *engine.ValidationReport) {
	fmt.Fprintf(out, "Analisando configuração: %s\n", source)

	if !report.Valid {
		fmt.Fprintln(out, "A configuração contém erros:")
		for _, e := range report.Errors {
			fmt.Fprintf(out, " - %s\n", e)
		}
		return
	}

	for _, w := range report.Warnings {
		fmt.Fprintf(out, "aviso: %s\n", w)
	}
	fmt.Fprintf(out, "Configuração válida: %d endpoint(s), %d aviso(s)\n", report.Endpoints, len(report.Warnings))
}
