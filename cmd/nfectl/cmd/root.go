package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jhoicas/nfe-api/internal/bootstrap"
	"github.com/jhoicas/nfe-api/pkg/config"
	"github.com/jhoicas/nfe-api/pkg/logger"
)

var (
	version = "1.0.0"

	// Global flags
	verbose bool
	storage string
)

var rootCmd = &cobra.Command{
	Use:   "nfectl",
	Short: "Operación de NF-e desde la terminal",
	Long: `nfectl opera sobre la misma base y SEFAZ que la API, con la configuración
de entorno de la API (DATABASE_URL, SEFAZ_ENV, SEFAZ_UF, JWT_SECRET...).

Examples:
  # Listar las últimas notas
  nfectl list --limit 10

  # Cancelar una nota autorizada
  nfectl cancel 35240312345678000199550010000001231123456786

  # Registrar una carta de corrección
  nfectl correct <chave> "Corrige o bairro do destinatario"

  # Token para un integrador de solo lectura
  nfectl token --subject erp-1 --role consulta`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute corre el comando raíz.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Logs de depuración en stderr")
	rootCmd.PersistentFlags().StringVar(&storage, "storage", "", "Sobrescribe STORAGE (postgres | memory)")
}

// loadConfig lee la configuración y aplica los flags globales.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if storage != "" {
		cfg.App.Storage = storage
	}
	return cfg, nil
}

// newLogger escribe en stderr para no mezclar logs con la salida del comando.
func newLogger(cmd *cobra.Command) *logger.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.NewWithWriter(cmd.ErrOrStderr(), logger.Config{Env: "development", Level: level})
}

// withContainer arma el servicio, ejecuta fn y libera las conexiones.
func withContainer(cmd *cobra.Command, opts bootstrap.Options, fn func(ctx context.Context, c *bootstrap.Container) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := bootstrap.New(ctx, cfg, newLogger(cmd), opts)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("serializar salida: %w", err)
	}
	return nil
}
