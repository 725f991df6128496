// Package bootstrap arma el servicio de notas a partir de la configuración.
// Lo comparten la API y nfectl.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/infrastructure/idempotency"
	"github.com/jhoicas/nfe-api/internal/infrastructure/memory"
	"github.com/jhoicas/nfe-api/internal/infrastructure/metrics"
	"github.com/jhoicas/nfe-api/internal/infrastructure/pdf"
	"github.com/jhoicas/nfe-api/internal/infrastructure/postgres"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
	"github.com/jhoicas/nfe-api/pkg/config"
	"github.com/jhoicas/nfe-api/pkg/logger"
)

// Container componentes listos para usar. Close libera pool y cliente Redis.
type Container struct {
	Invoices *billing.InvoiceService
	DANFE    *billing.DANFEUseCase
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Pool     *pgxpool.Pool // nil con STORAGE=memory

	redis *redis.Client
}

// Options ajustes por proceso.
type Options struct {
	Migrate bool // aplica las migraciones al abrir PostgreSQL
}

// New construye el contenedor. Con STORAGE=memory no abre base de datos; con
// REDIS_ADDR vacío la idempotencia queda en memoria del proceso.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*Container, error) {
	c := &Container{Registry: prometheus.NewRegistry()}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.New(c.Registry)

	uow, err := c.unitOfWork(ctx, cfg, log, opts)
	if err != nil {
		return nil, err
	}

	store, err := c.idempotencyStore(ctx, cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}

	var transmitter sefaz.Transmitter
	if cfg.SEFAZ.Environment != sefaz.EnvDev {
		transmitter = sefaz.NewHTTPTransmitter(cfg.SEFAZ.Timeout)
	}
	gw, err := sefaz.NewGateway(sefaz.Config{
		Environment:   cfg.SEFAZ.Environment,
		UF:            cfg.SEFAZ.UF,
		Serie:         cfg.SEFAZ.Serie,
		AuthorizerURL: cfg.SEFAZ.AuthorizerURL,
		EventURL:      cfg.SEFAZ.EventURL,
	}, transmitter, log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("gateway SEFAZ: %w", err)
	}
	sefazPorts := metrics.NewInstrumentedGateway(gw, c.Metrics)

	c.Invoices = billing.NewInvoiceService(uow, sefazPorts, sefazPorts, sefazPorts, store, log)
	c.DANFE = billing.NewDANFEUseCase(uow, pdf.NewDANFEGenerator(cfg.SEFAZ.ConsultaURL))

	log.Info().
		Str("storage", cfg.App.Storage).
		Str("sefaz_env", cfg.SEFAZ.Environment).
		Str("uf", cfg.SEFAZ.UF).
		Bool("redis", c.redis != nil).
		Msg("servicio de notas listo")
	return c, nil
}

func (c *Container) unitOfWork(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (billing.UnitOfWork, error) {
	if cfg.App.Storage == config.StorageMemory {
		log.Warn().Msg("STORAGE=memory: las notas se pierden al reiniciar")
		return memory.NewUnitOfWork(memory.NewInvoiceRepository()), nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	c.Pool = pool
	if opts.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migraciones: %w", err)
		}
		log.Info().Msg("migraciones aplicadas")
	}
	return postgres.NewTxRunner(pool), nil
}

func (c *Container) idempotencyStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (billing.IdempotencyStore, error) {
	if cfg.Redis.Addr == "" {
		return idempotency.NewMemoryStore(cfg.Idempotency.TTL), nil
	}
	client, err := idempotency.NewRedisClient(ctx, idempotency.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}
	c.redis = client
	log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotencia en Redis")
	return idempotency.NewRedisStore(client, cfg.Idempotency.TTL), nil
}

// Close libera las conexiones abiertas por New.
func (c *Container) Close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
