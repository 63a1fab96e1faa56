package app

import (
	"fmt"

	"github.com/JSONbored/claudepro-directory-sub000/internal/breaker"
	queueHTTP "github.com/JSONbored/claudepro-directory-sub000/internal/queue/http"
	queueRepository "github.com/JSONbored/claudepro-directory-sub000/internal/queue/repository"
	queueService "github.com/JSONbored/claudepro-directory-sub000/internal/queue/service"
	queueUseCase "github.com/JSONbored/claudepro-directory-sub000/internal/queue/usecase"
	"github.com/JSONbored/claudepro-directory-sub000/internal/rpc"
)

// MessageRepository returns the durable queue message repository.
func (c *Container) MessageRepository() (queueUseCase.MessageRepository, error) {
	var err error
	c.messageRepoInit.Do(func() {
		c.messageRepo, err = c.initMessageRepository()
		if err != nil {
			c.initErrors["messageRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["messageRepo"]; exists {
		return nil, storedErr
	}
	return c.messageRepo, nil
}

// RPCClient returns the client for intra-system remote procedures.
func (c *Container) RPCClient() (*rpc.Client, error) {
	var err error
	c.rpcClientInit.Do(func() {
		c.rpcClient, err = c.initRPCClient()
		if err != nil {
			c.initErrors["rpcClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rpcClient"]; exists {
		return nil, storedErr
	}
	return c.rpcClient, nil
}

// Outbound returns the rate-limited client for third-party HTTP endpoints.
func (c *Container) Outbound() (*queueService.Outbound, error) {
	var err error
	c.outboundInit.Do(func() {
		c.outbound, err = c.initOutbound()
		if err != nil {
			c.initErrors["outbound"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outbound"]; exists {
		return nil, storedErr
	}
	return c.outbound, nil
}

// Consumer returns the queue consumer.
func (c *Container) Consumer() (queueUseCase.Consumer, error) {
	var err error
	c.consumerInit.Do(func() {
		c.consumer, err = c.initConsumer()
		if err != nil {
			c.initErrors["consumer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["consumer"]; exists {
		return nil, storedErr
	}
	return c.consumer, nil
}

// Worker returns the background queue worker.
func (c *Container) Worker() (*queueUseCase.Worker, error) {
	var err error
	c.workerInit.Do(func() {
		c.worker, err = c.initWorker()
		if err != nil {
			c.initErrors["worker"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["worker"]; exists {
		return nil, storedErr
	}
	return c.worker, nil
}

// QueueHandler returns the HTTP handler for manual queue processing.
func (c *Container) QueueHandler() (*queueHTTP.QueueHandler, error) {
	var err error
	c.queueHandlerInit.Do(func() {
		c.queueHandler, err = c.initQueueHandler()
		if err != nil {
			c.initErrors["queueHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["queueHandler"]; exists {
		return nil, storedErr
	}
	return c.queueHandler, nil
}

// initMessageRepository creates the queue message repository.
func (c *Container) initMessageRepository() (queueUseCase.MessageRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for message repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return queueRepository.NewPostgreSQLMessageRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRPCClient creates the remote procedure client.
func (c *Container) initRPCClient() (*rpc.Client, error) {
	registry, err := c.BreakerRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get breaker registry for rpc client: %w", err)
	}

	settings := breaker.Settings{
		FailureThreshold:    c.config.BreakerRPCThreshold,
		ResetTimeout:        c.config.BreakerRPCResetTimeout,
		HalfOpenMaxAttempts: c.config.BreakerRPCHalfOpenMax,
	}

	return rpc.NewClient(
		c.config.RPCBaseURL,
		c.config.RPCToken,
		c.config.RPCTimeout,
		settings,
		registry,
		c.Logger(),
	), nil
}

// initOutbound creates the outbound HTTP client.
func (c *Container) initOutbound() (*queueService.Outbound, error) {
	registry, err := c.BreakerRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get breaker registry for outbound client: %w", err)
	}

	settings := breaker.Settings{
		FailureThreshold:    c.config.BreakerHTTPThreshold,
		ResetTimeout:        c.config.BreakerHTTPResetTimeout,
		HalfOpenMaxAttempts: c.config.BreakerHTTPHalfOpenMax,
	}

	return queueService.NewOutbound(
		registry,
		settings,
		c.config.OutboundRequestsPerSec,
		c.config.OutboundBurst,
		c.config.OutboundTimeout,
		c.Logger(),
	), nil
}

// initConsumer creates the queue consumer with all registered handlers.
func (c *Container) initConsumer() (queueUseCase.Consumer, error) {
	messageRepo, err := c.MessageRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get message repository for consumer: %w", err)
	}

	rpcClient, err := c.RPCClient()
	if err != nil {
		return nil, fmt.Errorf("failed to get rpc client for consumer: %w", err)
	}

	outbound, err := c.Outbound()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbound client for consumer: %w", err)
	}

	logger := c.Logger()
	handlers := []queueUseCase.Handler{
		queueUseCase.NewNotificationHandler(rpcClient, outbound, c.config.ChatWebhookURL, logger),
		queueUseCase.NewCacheInvalidationHandler(outbound, c.config.CachePurgeURL, c.config.CachePurgeToken, logger),
		queueUseCase.NewPackageBuildHandler(rpcClient, outbound, c.config.StorageUploadURL, c.config.StorageUploadToken, logger),
	}

	baseConsumer := queueUseCase.NewConsumer(
		messageRepo,
		handlers,
		c.config.QueueBatchSize,
		c.config.QueueVisibilityTimeout,
		logger,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for consumer: %w", err)
		}
		pipelineMetrics, err := c.PipelineMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get pipeline metrics for consumer: %w", err)
		}
		return queueUseCase.NewConsumerWithMetrics(baseConsumer, businessMetrics, pipelineMetrics), nil
	}

	return baseConsumer, nil
}

// initWorker creates the background worker sweeping all queues.
func (c *Container) initWorker() (*queueUseCase.Worker, error) {
	consumer, err := c.Consumer()
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer for worker: %w", err)
	}

	return queueUseCase.NewWorker(consumer, c.config.WorkerInterval, c.Logger()), nil
}

// initQueueHandler creates the queue HTTP handler.
func (c *Container) initQueueHandler() (*queueHTTP.QueueHandler, error) {
	consumer, err := c.Consumer()
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer for queue handler: %w", err)
	}

	return queueHTTP.NewQueueHandler(consumer, c.Logger()), nil
}
