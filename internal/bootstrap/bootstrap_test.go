package bootstrap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/application/dto"
	"github.com/jhoicas/nfe-api/internal/bootstrap"
	"github.com/jhoicas/nfe-api/pkg/config"
	"github.com/jhoicas/nfe-api/pkg/logger"
)

func memoryConfig() *config.Config {
	return &config.Config{
		App:         config.AppConfig{Env: "test", Name: "nfe-api", Storage: config.StorageMemory},
		SEFAZ:       config.SEFAZConfig{Environment: "dev", UF: "SP", Serie: 1, Timeout: time.Second},
		Idempotency: config.IdempotencyConfig{TTL: time.Hour},
	}
}

func TestNew_MemoriaYSEFAZDev(t *testing.T) {
	c, err := bootstrap.New(context.Background(), memoryConfig(), logger.Nop(), bootstrap.Options{})
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Pool)
	require.NotNil(t, c.Invoices)
	require.NotNil(t, c.DANFE)

	list, err := c.Invoices.List(context.Background(), dto.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)

	// las métricas de la SEFAZ quedan registradas en el registro propio
	families, err := c.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNew_SEFAZRealSinURLs_Falla(t *testing.T) {
	cfg := memoryConfig()
	cfg.SEFAZ.Environment = "homologacao"

	_, err := bootstrap.New(context.Background(), cfg, logger.Nop(), bootstrap.Options{})
	assert.Error(t, err)
}
