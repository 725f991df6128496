package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jhoicas/nfe-api/internal/application/dto"
	"github.com/jhoicas/nfe-api/internal/bootstrap"
)

var (
	seedCount   int
	seedEmitter string
)

// seedCmd emite notas de ejemplo para poblar un ambiente de pruebas.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Emite notas de ejemplo (solo SEFAZ_ENV=dev u homologacao)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.SEFAZ.Environment == "producao" {
			return fmt.Errorf("seed no corre contra producao")
		}
		return withContainer(cmd, bootstrap.Options{}, func(ctx context.Context, c *bootstrap.Container) error {
			for i := 1; i <= seedCount; i++ {
				out, err := c.Invoices.Emit(ctx, sampleInvoice(i), "")
				if err != nil {
					return fmt.Errorf("nota %d: %w", i, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", out.ID, deref(out.AccessKey), out.Status)
			}
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 3, "Cantidad de notas")
	seedCmd.Flags().StringVar(&seedEmitter, "emitente", "12345678000199", "CNPJ del emitente")

	rootCmd.AddCommand(seedCmd)
}

// sampleInvoice arma una nota de dos ítems; n varía cantidades y SKU.
func sampleInvoice(n int) dto.EmitInvoiceRequest {
	emitter := dto.AddressDTO{Logradouro: "Av. Paulista", Numero: "1000", Municipio: "Sao Paulo", UF: "SP", CEP: "01310-100", Bairro: "Bela Vista"}
	recipient := dto.AddressDTO{Logradouro: "Rua da Assembleia", Numero: strconv.Itoa(10 * n), Municipio: "Rio de Janeiro", UF: "RJ", CEP: "20011-000", Bairro: "Centro"}
	qty := n%5 + 1
	unit := decimal.NewFromInt(int64(40 + n))
	icms := unit.Mul(decimal.NewFromInt(int64(qty))).Mul(decimal.RequireFromString("0.18")).Round(2)
	return dto.EmitInvoiceRequest{
		EmitterTaxID:     seedEmitter,
		RecipientTaxID:   fmt.Sprintf("%011d", 10000000000+n),
		EmitterAddress:   emitter,
		RecipientAddress: recipient,
		Items: []dto.InvoiceItemRequest{
			{
				SKU: fmt.Sprintf("CAD-%03d", n), Description: "Cadeira de escritorio", Quantity: qty, UnitPrice: unit,
				CFOP: "6102", NCM: "94013000", CST: "000",
				Taxes: dto.TaxAmountsDTO{ICMS: icms, IPI: decimal.Zero, PIS: decimal.Zero, COFINS: decimal.Zero},
			},
			{
				SKU: "MES-001", Description: "Mesa de reuniao", Quantity: 1, UnitPrice: decimal.NewFromInt(350),
				CFOP: "6102", NCM: "94033000", CST: "000",
				Taxes: dto.TaxAmountsDTO{ICMS: decimal.NewFromInt(63), IPI: decimal.NewFromInt(17), PIS: decimal.RequireFromString("2.28"), COFINS: decimal.RequireFromString("10.50")},
			},
		},
	}
}
