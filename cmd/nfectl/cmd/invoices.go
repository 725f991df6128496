package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jhoicas/nfe-api/internal/application/dto"
	"github.com/jhoicas/nfe-api/internal/bootstrap"
)

var (
	listLimit  int
	listOffset int
	listJSON   bool
	danfeOut   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Lista las notas, las más recientes primero",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd, bootstrap.Options{}, func(ctx context.Context, c *bootstrap.Container) error {
			out, err := c.Invoices.List(ctx, dto.PageRequest{Limit: listLimit, Offset: listOffset})
			if err != nil {
				return err
			}
			if listJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			printTable(cmd, out.Items)
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <chave>",
	Short: "Muestra una nota por chave de acesso",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, bootstrap.Options{}, func(ctx context.Context, c *bootstrap.Container) error {
			out, err := c.Invoices.GetByAccessKey(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		})
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <chave>",
	Short: "Registra el evento de cancelamento de una nota autorizada",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, bootstrap.Options{}, func(ctx context.Context, c *bootstrap.Container) error {
			out, err := c.Invoices.Cancel(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", args[0], out.Status)
			return nil
		})
	},
}

var correctCmd = &cobra.Command{
	Use:   "correct <chave> <texto>",
	Short: "Registra una carta de corrección (CC-e)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args[1:], " ")
		return withContainer(cmd, bootstrap.Options{}, func(ctx context.Context, c *bootstrap.Container) error {
			out, err := c.Invoices.Correct(ctx, args[0], dto.CorrectionRequest{Text: text})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s protocolo CC-e %s\n", args[0], deref(out.CorrectionProtocol))
			return nil
		})
	},
}

var danfeCmd = &cobra.Command{
	Use:   "danfe <chave>",
	Short: "Genera el DANFE en PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, bootstrap.Options{}, func(ctx context.Context, c *bootstrap.Container) error {
			pdf, filename, err := c.DANFE.Download(ctx, args[0])
			if err != nil {
				return err
			}
			path := danfeOut
			if path == "" {
				path = filename
			}
			if err := os.WriteFile(path, pdf, 0o644); err != nil {
				return fmt.Errorf("escribir %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "DANFE escrito en %s (%d bytes)\n", path, len(pdf))
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica las migraciones de PostgreSQL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(cmd, bootstrap.Options{Migrate: true}, func(context.Context, *bootstrap.Container) error {
			fmt.Fprintln(cmd.OutOrStdout(), "migraciones aplicadas")
			return nil
		})
	},
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Máximo de notas (1-100)")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Desplazamiento")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Salida JSON")
	danfeCmd.Flags().StringVarP(&danfeOut, "output", "o", "", "Archivo de salida (por defecto NFe<chave>.pdf)")

	rootCmd.AddCommand(listCmd, showCmd, cancelCmd, correctCmd, danfeCmd, migrateCmd)
}

func printTable(cmd *cobra.Command, items []dto.InvoiceResponse) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCHAVE\tSTATUS\tEMISSAO\tTOTAL")
	for _, it := range items {
		total := "-"
		if it.GrandTotal != nil {
			total = it.GrandTotal.StringFixed(2)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", it.ID, deref(it.AccessKey), it.Status, it.IssuedAt, total)
	}
	_ = w.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
