package di

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-xray-sdk-go/instrumentation/awsv2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"cmseditor/application/commands"
	"cmseditor/application/commands/bus"
	cmdhandlers "cmseditor/application/commands/handlers"
	"cmseditor/application/ports"
	"cmseditor/application/queries"
	querybus "cmseditor/application/queries/bus"
	queryhandlers "cmseditor/application/queries/handlers"
	"cmseditor/application/sagas"
	"cmseditor/application/services"
	domainconfig "cmseditor/domain/config"
	"cmseditor/infrastructure/config"
	"cmseditor/infrastructure/mail"
	"cmseditor/infrastructure/messaging/eventbridge"
	"cmseditor/infrastructure/persistence/dynamodb"
	"cmseditor/infrastructure/persistence/memory"
	"cmseditor/infrastructure/persistence/relational"
	"cmseditor/infrastructure/registry"
	"cmseditor/interfaces/http/rest"
	"cmseditor/interfaces/http/rest/handlers"
	"cmseditor/pkg/auth"
	pkgerrors "cmseditor/pkg/errors"
	"cmseditor/pkg/extensions"
	"cmseditor/pkg/observability"
)

// Query results cached in memory, seconds
const (
	editorSelectionTTL    = 300
	editorSelectionPrefix = "editors:"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zcfg.Level = level

	return zcfg.Build()
}

// ProvideDomainConfig derives the editing rules from the environment
func ProvideDomainConfig(cfg *config.Config) (*domainconfig.DomainConfig, error) {
	dc := domainconfig.LoadDomainConfig(cfg.Environment)
	dc.DefaultLocales = cfg.DefaultLocales
	if cfg.SessionMaxIdle > 0 {
		dc.SessionTimeout = cfg.SessionMaxIdle
	}
	if err := dc.Validate(); err != nil {
		return nil, err
	}
	return dc, nil
}

// ProvideClock returns the wall clock
func ProvideClock() ports.Clock {
	return ports.SystemClock{}
}

// ProvideAWSConfig creates AWS configuration. AWS clients are traced by
// X-Ray when tracing is on.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return aws.Config{}, err
	}
	if cfg.EnableTracing {
		awsv2.AWSV2Instrumentor(&awsCfg.APIOptions)
	}
	return awsCfg, nil
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideResourceRepository selects the virtual file system backend
func ProvideResourceRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.ResourceRepository {
	if cfg.StorageBackend == config.StorageDynamoDB {
		return dynamodb.NewResourceRepository(client, cfg.DynamoDBTable, logger)
	}
	return memory.NewResourceRepository()
}

// ProvideSessionStore selects the edit session backend
func ProvideSessionStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.SessionStore {
	if cfg.StorageBackend == config.StorageDynamoDB {
		return dynamodb.NewSessionStore(client, cfg.DynamoDBTable, cfg.SessionMaxIdle, logger)
	}
	return memory.NewSessionStore()
}

// ProvideLockService selects the lock backend
func ProvideLockService(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.LockService {
	if cfg.StorageBackend == config.StorageDynamoDB {
		return dynamodb.NewLockService(client, cfg.DynamoDBTable, logger)
	}
	return memory.NewLockService()
}

// ProvideEventBus creates the event bus: EventBridge with DynamoDB storage,
// in process otherwise
func ProvideEventBus(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventBus {
	if cfg.StorageBackend == config.StorageDynamoDB {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return memory.NewEventBus(logger)
}

// ProvideEventOutbox returns the outbox when events are forwarded in the
// background. Lambda publishes inline since no processor survives between
// invocations.
func ProvideEventOutbox(cfg *config.Config, client *awsdynamodb.Client) *dynamodb.EventOutbox {
	if cfg.StorageBackend != config.StorageDynamoDB || !cfg.EventOutbox || cfg.IsLambda {
		return nil
	}
	return dynamodb.NewEventOutbox(client, cfg.DynamoDBTable)
}

// ProvideEventPublisher routes services through the outbox when present
func ProvideEventPublisher(eventBus ports.EventBus, outbox *dynamodb.EventOutbox) ports.EventPublisher {
	if outbox != nil {
		return outbox
	}
	return eventBus
}

// ProvideOutboxProcessor creates the forwarder of stored events, nil when
// no outbox is used
func ProvideOutboxProcessor(outbox *dynamodb.EventOutbox, eventBus ports.EventBus, logger *zap.Logger) *dynamodb.OutboxProcessor {
	if outbox == nil {
		return nil
	}
	forwarder, ok := eventBus.(dynamodb.OutboxForwarder)
	if !ok {
		logger.Warn("Event bus cannot forward stored events, outbox processor disabled")
		return nil
	}
	return dynamodb.NewOutboxProcessor(outbox, forwarder, logger)
}

// ProvideFormDB opens the application form database
func ProvideFormDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := relational.Open(cfg.FormDBDriver, cfg.FormDBDSN, cfg.IsDevelopment(), logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := relational.Close(db); err != nil {
			logger.Warn("Failed to close form database", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// ProvideFormSubmissionRepository creates the bewerbungen repository
func ProvideFormSubmissionRepository(db *gorm.DB) ports.FormSubmissionRepository {
	return relational.NewFormSubmissionRepository(db)
}

// ProvideWorkflowRepository creates the workflow task repository
func ProvideWorkflowRepository(db *gorm.DB) ports.WorkflowRepository {
	return relational.NewWorkflowRepository(db)
}

// ProvideMailer delivers through SMTP when a relay is configured
func ProvideMailer(cfg *config.Config, logger *zap.Logger) ports.Mailer {
	if cfg.SMTPHost == "" {
		return mail.NewLogMailer(logger)
	}
	return mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}, logger)
}

// ProvideMailDispatcher starts the mail workers
func ProvideMailDispatcher(mailer ports.Mailer, cfg *config.Config, logger *zap.Logger) (*services.MailDispatcher, func()) {
	d := services.NewMailDispatcher(mailer, cfg.MailWorkers, cfg.MailQueueSize, logger)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.Shutdown(ctx); err != nil {
			logger.Warn("Mail queue not drained", zap.Error(err))
		}
	}
	return d, cleanup
}

// ProvideCache creates the query result cache
func ProvideCache() (*memory.Cache, func()) {
	c := memory.NewCache(time.Minute)
	return c, c.Close
}

// ProvideSelectionCache caches editor selections of the query bus
func ProvideSelectionCache(cache *memory.Cache) *querybus.CachingMiddleware {
	return querybus.NewCachingMiddleware(cache, editorSelectionTTL, editorSelectionPrefix)
}

// ProvideEditorRegistry loads the editor configurations. A reload drops
// cached editor selections.
func ProvideEditorRegistry(cfg *config.Config, selections *querybus.CachingMiddleware, logger *zap.Logger) *registry.EditorRegistry {
	r := registry.NewEditorRegistry(cfg.EditorConfigDir, logger)
	r.OnReload(func() {
		if err := selections.Invalidate(context.Background()); err != nil {
			logger.Warn("Failed to drop cached editor selections", zap.Error(err))
		}
	})
	return r
}

// ProvideSchemaRegistry loads the xml content schemas
func ProvideSchemaRegistry(cfg *config.Config, logger *zap.Logger) *registry.SchemaRegistry {
	return registry.NewSchemaRegistry(cfg.SchemaDir, logger)
}

// RegistryWatchers reload the registries when their directories change
type RegistryWatchers []*registry.DirWatcher

// ProvideRegistryWatchers watches the configuration directories. Lambda
// instances are short lived and do not watch.
func ProvideRegistryWatchers(
	cfg *config.Config,
	editors *registry.EditorRegistry,
	schemas *registry.SchemaRegistry,
) (RegistryWatchers, func(), error) {
	if cfg.IsLambda {
		return nil, func() {}, nil
	}

	var watchers RegistryWatchers
	cleanup := func() {
		for _, w := range watchers {
			w.Stop()
		}
	}
	for _, watch := range []func() (*registry.DirWatcher, error){editors.Watch, schemas.Watch} {
		w, err := watch()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if w != nil {
			watchers = append(watchers, w)
		}
	}
	return watchers, cleanup, nil
}

// ProvideMetrics creates the CloudWatch metrics. Without ENABLE_METRICS
// every call is a no-op.
func ProvideMetrics(cfg *config.Config, client *awscloudwatch.Client, logger *zap.Logger) (*observability.Metrics, func()) {
	var mc observability.MetricsClient
	if cfg.EnableMetrics {
		mc = client
	}
	m := observability.NewMetrics(cfg.MetricsNamespace, mc, logger)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Flush(ctx)
	}
	return m, cleanup
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("cms-editor", cfg.EnableTracing)
}

// ProvideHookManager registers the built-in hooks
func ProvideHookManager(
	workflow ports.WorkflowRepository,
	publisher ports.EventPublisher,
	clock ports.Clock,
	dc *domainconfig.DomainConfig,
	logger *zap.Logger,
) *extensions.HookManager {
	hooks := extensions.NewHookManager()
	services.RegisterPublishHook(hooks, services.NewPublishHook(workflow, publisher, clock, logger), dc)
	return hooks
}

// ProvideTempFileManager creates the temp file manager
func ProvideTempFileManager(
	repo ports.ResourceRepository,
	publisher ports.EventPublisher,
	dc *domainconfig.DomainConfig,
	clock ports.Clock,
	logger *zap.Logger,
) *services.TempFileManager {
	return services.NewTempFileManager(repo, publisher, dc, clock, logger)
}

// ProvideCommitSaga creates the saga writing temp files back
func ProvideCommitSaga(
	repo ports.ResourceRepository,
	publisher ports.EventPublisher,
	tracer *observability.Tracer,
	clock ports.Clock,
	logger *zap.Logger,
) *sagas.CommitSaga {
	return sagas.NewCommitSaga(repo, publisher, tracer, clock, logger)
}

// ProvideEditorService creates the editor state machine
func ProvideEditorService(
	repo ports.ResourceRepository,
	sessions ports.SessionStore,
	locks ports.LockService,
	editors *registry.EditorRegistry,
	schemas *registry.SchemaRegistry,
	tempFiles *services.TempFileManager,
	commit *sagas.CommitSaga,
	hooks *extensions.HookManager,
	publisher ports.EventPublisher,
	dc *domainconfig.DomainConfig,
	clock ports.Clock,
	logger *zap.Logger,
) *services.EditorService {
	return services.NewEditorService(services.EditorServiceDeps{
		Repo:      repo,
		Sessions:  sessions,
		Locks:     locks,
		Editors:   editors,
		Schemas:   schemas,
		TempFiles: tempFiles,
		Commit:    commit,
		Hooks:     hooks,
		Publisher: publisher,
		Config:    dc,
		Clock:     clock,
		Logger:    logger,
	})
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(ctx context.Context, cmd bus.Command) (interface{}, error)
}

// Handle implements bus.CommandHandler
func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	cfg *config.Config,
	editorService *services.EditorService,
	submissions ports.FormSubmissionRepository,
	workflow ports.WorkflowRepository,
	sessions ports.SessionStore,
	locks ports.LockService,
	tempFiles *services.TempFileManager,
	publisher ports.EventPublisher,
	dispatcher *services.MailDispatcher,
	hooks *extensions.HookManager,
	metrics *observability.Metrics,
	tracer *observability.Tracer,
	clock ports.Clock,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.TracingMiddleware(tracer),
		bus.LoggingMiddleware(&zapLoggerAdapter{logger}),
		bus.MetricsMiddleware(metrics),
	)

	editorHandler := cmdhandlers.NewEditorActionHandler(editorService)
	if err := commandBus.Register(commands.EditorActionCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			editorCmd, ok := cmd.(commands.EditorActionCommand)
			if !ok {
				return nil, fmt.Errorf("invalid command type")
			}
			// a nil view must not become a typed nil result
			view, err := editorHandler.Handle(ctx, editorCmd)
			if view == nil {
				return nil, err
			}
			return view, err
		},
	}); err != nil {
		return nil, err
	}

	formHandler := cmdhandlers.NewSubmitApplicationFormHandler(
		submissions,
		workflow,
		publisher,
		dispatcher,
		hooks,
		cmdhandlers.FormMailConfig{From: cfg.MailFrom, NotifyAddress: cfg.FormNotifyAddress},
		clock,
		logger,
	)
	if err := commandBus.Register(commands.SubmitApplicationFormCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			formCmd, ok := cmd.(commands.SubmitApplicationFormCommand)
			if !ok {
				return nil, fmt.Errorf("invalid command type")
			}
			return formHandler.Handle(ctx, formCmd)
		},
	}); err != nil {
		return nil, err
	}

	cleanupHandler := cmdhandlers.NewCleanupStaleSessionsHandler(sessions, locks, tempFiles, publisher, clock, logger)
	if err := commandBus.Register(commands.CleanupStaleSessionsCommand{}, &CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) (interface{}, error) {
			cleanupCmd, ok := cmd.(commands.CleanupStaleSessionsCommand)
			if !ok {
				return nil, fmt.Errorf("invalid command type")
			}
			return cleanupHandler.Handle(ctx, cleanupCmd)
		},
	}); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

// Handle implements querybus.QueryHandler
func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	repo ports.ResourceRepository,
	sessions ports.SessionStore,
	locks ports.LockService,
	editors *registry.EditorRegistry,
	workflow ports.WorkflowRepository,
	dc *domainconfig.DomainConfig,
	selections *querybus.CachingMiddleware,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	measured := querybus.NewMetricsMiddleware(&queryMetricsAdapter{metrics})

	sessionHandler := queryhandlers.NewGetEditSessionHandler(repo, sessions, locks, logger)
	if err := queryBus.Register(queries.GetEditSessionQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.GetEditSessionQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return sessionHandler.Handle(ctx, q)
		},
	}, measured); err != nil {
		return nil, err
	}

	selectHandler := queryhandlers.NewSelectEditorHandler(editors)
	if err := queryBus.Register(queries.SelectEditorQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.SelectEditorQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return selectHandler.Handle(ctx, q)
		},
	}, measured, selections); err != nil {
		return nil, err
	}

	localesHandler := queryhandlers.NewListLocalesHandler(repo, sessions, dc, logger)
	if err := queryBus.Register(queries.ListLocalesQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ListLocalesQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return localesHandler.Handle(ctx, q)
		},
	}, measured); err != nil {
		return nil, err
	}

	tasksHandler := queryhandlers.NewListWorkflowTasksHandler(workflow)
	if err := queryBus.Register(queries.ListWorkflowTasksQuery{}, &QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			q, ok := query.(queries.ListWorkflowTasksQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return tasksHandler.Handle(ctx, q)
		},
	}, measured); err != nil {
		return nil, err
	}

	return queryBus, nil
}

// ProvideErrorHandler creates the JSON error renderer
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideJWTValidator creates the token validator. Lambda relies on the API
// Gateway authorizer and gets none.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.IsLambda {
		return nil, nil
	}
	validator, err := auth.NewJWTValidator(auth.JWTConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET must be set outside Lambda: %w", err)
	}
	return validator, nil
}

// ProvideFormRateLimiter limits posts of the public form per client and
// minute. DynamoDB keeps the counters when instances share the load.
func ProvideFormRateLimiter(cfg *config.Config, client *awsdynamodb.Client) auth.RateLimiter {
	if cfg.StorageBackend == config.StorageDynamoDB {
		return auth.NewDistributedRateLimiter(client, cfg.DynamoDBTable, cfg.FormRateLimit, time.Minute, "FORM")
	}
	return auth.NewSlidingWindowLimiter(cfg.FormRateLimit, time.Minute)
}

// ProvideReadinessChecks checks the stores requests depend on
func ProvideReadinessChecks(repo ports.ResourceRepository, db *gorm.DB) map[string]handlers.ReadinessCheck {
	return map[string]handlers.ReadinessCheck{
		"resources": func(ctx context.Context) error {
			_, err := repo.Exists(ctx, "/")
			return err
		},
		"forms": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	validator *auth.JWTValidator,
	limiter auth.RateLimiter,
	tracer *observability.Tracer,
	checks map[string]handlers.ReadinessCheck,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(commandBus, queryBus, errorHandler, validator, limiter, tracer, checks, rest.RouterOptions{
		InLambda:       cfg.IsLambda,
		EnableCORS:     cfg.EnableCORS,
		CORSOrigins:    cfg.CORSOrigins,
		FormRateLimit:  cfg.FormRateLimit,
		SessionMaxIdle: cfg.SessionMaxIdle,
	}, logger)
}

// queryMetricsAdapter adapts observability.Metrics to the query bus
type queryMetricsAdapter struct {
	metrics *observability.Metrics
}

func (a *queryMetricsAdapter) StartTimer(metric, label string) querybus.Timer {
	return a.metrics.StartTimer(metric, label)
}

func (a *queryMetricsAdapter) Increment(metric, label string) {
	a.metrics.Increment(metric, label)
}

// zapLoggerAdapter adapts zap.Logger to the bus.Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Debug(msg string, fields ...interface{}) {
	a.logger.Debug(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Error(msg string, fields ...interface{}) {
	a.logger.Error(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) fieldsToZap(fields ...interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, _ := fields[i].(string)
			zapFields = append(zapFields, zap.Any(key, fields[i+1]))
		}
	}
	return zapFields
}
