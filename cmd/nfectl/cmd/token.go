package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	pkgjwt "github.com/jhoicas/nfe-api/pkg/jwt"
)

var (
	tokenSubject string
	tokenRole    string
	tokenMinutes int
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un JWT para un integrador",
	Long: `Emite un token HS256 firmado con JWT_SECRET.

Roles:
  admin     todas las operaciones
  emissor   emitir, cancelar y corregir
  consulta  solo lectura`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.JWT.Secret == "" {
			return fmt.Errorf("JWT_SECRET no está definido")
		}
		minutes := tokenMinutes
		if minutes <= 0 {
			minutes = cfg.JWT.Expiration
		}
		tok, err := pkgjwt.Generate(cfg.JWT.Secret, tokenSubject, tokenRole, cfg.JWT.Issuer, minutes)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Identificador del integrador")
	tokenCmd.Flags().StringVar(&tokenRole, "role", pkgjwt.RoleConsulta, "admin | emissor | consulta")
	tokenCmd.Flags().IntVar(&tokenMinutes, "minutes", 0, "Vigencia; 0 usa JWT_EXPIRATION_MINUTES")
	_ = tokenCmd.MarkFlagRequired("subject")

	rootCmd.AddCommand(tokenCmd)
}
