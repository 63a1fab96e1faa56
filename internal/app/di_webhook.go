package app

import (
	"fmt"

	webhookDomain "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/domain"
	webhookHTTP "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/http"
	webhookRepository "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/repository"
	webhookService "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/service"
	webhookUseCase "github.com/JSONbored/claudepro-directory-sub000/internal/webhook/usecase"
)

// Verifier returns the webhook signature verifier.
func (c *Container) Verifier() (webhookService.Verifier, error) {
	var err error
	c.verifierInit.Do(func() {
		c.verifier, err = c.initVerifier()
		if err != nil {
			c.initErrors["verifier"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["verifier"]; exists {
		return nil, storedErr
	}
	return c.verifier, nil
}

// EventRepository returns the inbound event repository.
func (c *Container) EventRepository() (webhookUseCase.EventRepository, error) {
	var err error
	c.eventRepoInit.Do(func() {
		c.eventRepo, err = c.initEventRepository()
		if err != nil {
			c.initErrors["eventRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventRepo"]; exists {
		return nil, storedErr
	}
	return c.eventRepo, nil
}

// EventUseCase returns the event ingestion use case.
func (c *Container) EventUseCase() (webhookUseCase.EventUseCase, error) {
	var err error
	c.eventUseCaseInit.Do(func() {
		c.eventUseCase, err = c.initEventUseCase()
		if err != nil {
			c.initErrors["eventUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventUseCase"]; exists {
		return nil, storedErr
	}
	return c.eventUseCase, nil
}

// WebhookHandler returns the HTTP handler for webhook ingestion.
func (c *Container) WebhookHandler() (*webhookHTTP.WebhookHandler, error) {
	var err error
	c.webhookHandlerInit.Do(func() {
		c.webhookHandler, err = c.initWebhookHandler()
		if err != nil {
			c.initErrors["webhookHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["webhookHandler"]; exists {
		return nil, storedErr
	}
	return c.webhookHandler, nil
}

// initVerifier builds the verifier from the configured source secrets.
// Sources without a secret are omitted and their deliveries fall through
// to unverified handling.
func (c *Container) initVerifier() (webhookService.Verifier, error) {
	var sources []webhookService.SourceConfig

	if c.config.WebhookEmailSecret != "" {
		sources = append(sources, webhookService.SourceConfig{
			Source: webhookDomain.SourceEmailProvider,
			Scheme: webhookService.SchemeHMACSHA256,
			Secret: c.config.WebhookEmailSecret,
		})
	}
	if c.config.WebhookPaymentsSecret != "" {
		sources = append(sources, webhookService.SourceConfig{
			Source: webhookDomain.SourcePaymentsProvider,
			Scheme: webhookService.SchemeHMACSHA256,
			Secret: c.config.WebhookPaymentsSecret,
		})
	}
	if c.config.WebhookDeploySecret != "" {
		sources = append(sources, webhookService.SourceConfig{
			Source: webhookDomain.SourceDeploymentProvider,
			Scheme: webhookService.SchemeHMACSHA1,
			Secret: c.config.WebhookDeploySecret,
		})
	}

	return webhookService.NewVerifier(sources), nil
}

// initEventRepository creates the inbound event repository.
func (c *Container) initEventRepository() (webhookUseCase.EventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return webhookRepository.NewPostgreSQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEventUseCase creates the event ingestion use case with all its dependencies.
func (c *Container) initEventUseCase() (webhookUseCase.EventUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for event use case: %w", err)
	}

	eventRepo, err := c.EventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get event repository for event use case: %w", err)
	}

	messageRepo, err := c.MessageRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get message repository for event use case: %w", err)
	}

	baseUseCase := webhookUseCase.NewEventUseCase(txManager, eventRepo, messageRepo, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for event use case: %w", err)
		}
		pipelineMetrics, err := c.PipelineMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get pipeline metrics for event use case: %w", err)
		}
		return webhookUseCase.NewEventUseCaseWithMetrics(baseUseCase, businessMetrics, pipelineMetrics), nil
	}

	return baseUseCase, nil
}

// initWebhookHandler creates the webhook HTTP handler.
func (c *Container) initWebhookHandler() (*webhookHTTP.WebhookHandler, error) {
	verifier, err := c.Verifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get verifier for webhook handler: %w", err)
	}

	eventUseCase, err := c.EventUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get event use case for webhook handler: %w", err)
	}

	return webhookHTTP.NewWebhookHandler(
		verifier,
		eventUseCase,
		c.config.WebhookMaxBodyBytes,
		c.config.WebhookAllowUnverified,
		c.Logger(),
	), nil
}
