package grounder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/siherrmann/grounder/core/engine"
	"github.com/siherrmann/grounder/core/graph"
	"github.com/siherrmann/grounder/core/llm"
	"github.com/siherrmann/grounder/core/metrics"
	"github.com/siherrmann/grounder/core/pipeline"
	"github.com/siherrmann/grounder/core/retrieval"
	"github.com/siherrmann/grounder/core/synthesis"
	"github.com/siherrmann/grounder/database"
	"github.com/siherrmann/grounder/helper"
	"github.com/siherrmann/grounder/model"
	loadSql "github.com/siherrmann/grounder/sql"
	"go.opentelemetry.io/otel/metric"
)

// Option configures a Grounder
type Option func(*options)

type options struct {
	config         model.Config
	embeddingModel string
	embeddingDim   int
	logger         *slog.Logger
	meter        metric.Meter
}

// WithConfig sets the engine configuration. Default is model.DefaultConfig().
func WithConfig(config model.Config) Option {
	return func(o *options) { o.config = config }
}

// WithEmbeddingModel sets the hugot model used by UseDefaultPipeline. Default is pipeline.DefaultEmbeddingModel.
func WithEmbeddingModel(name string) Option {
	return func(o *options) { o.embeddingModel = name }
}

// WithEmbeddingDim sets the fragment embedding dimension. Default is pipeline.DefaultEmbeddingDim.
func WithEmbeddingDim(dim int) Option {
	return func(o *options) { o.embeddingDim = dim }
}

// WithLogger replaces the default pretty logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMeter sets the meter for the query instruments
func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// Grounder provides a unified interface to the stores and the answer engine
type Grounder struct {
	DB        *helper.Database
	Documents *database.DocumentsDBHandler
	Fragments *database.FragmentsDBHandler
	Facts     *database.FactsDBHandler
	Entities  *database.EntitiesDBHandler
	Relations *database.RelationsDBHandler
	Records   *database.SearchRecordsDBHandler
	Pipeline  *pipeline.Pipeline // Embedder for query text, set with SetPipeline
	Engine    *engine.Engine
	Recorder  *metrics.Recorder
	// Embedding model of the default pipeline
	embedder pipeline.EmbedderConfig
	// Logging
	log *slog.Logger
}

// NewGrounder connects to the database, initializes all handlers and builds the engine.
func NewGrounder(dbConfig *helper.DatabaseConfiguration, generator llm.Generator, opts ...Option) (*Grounder, error) {
	o := newOptions(opts)

	db, err := helper.NewDatabase("grounder", dbConfig, o.logger)
	if err != nil {
		return nil, helper.NewError("connect database", err)
	}

	g, err := NewGrounderFromDatabase(db, generator, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return g, nil
}

// NewGrounderFromDatabase builds a Grounder on an open database.
func NewGrounderFromDatabase(db *helper.Database, generator llm.Generator, opts ...Option) (*Grounder, error) {
	if generator == nil {
		return nil, helper.NewError("create grounder", fmt.Errorf("generator is required"))
	}
	o := newOptions(opts)

	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	g := &Grounder{
		DB:       db,
		embedder: pipeline.EmbedderConfig{ModelName: o.embeddingModel, Dim: o.embeddingDim},
		log:      o.logger,
	}
	g.Documents, err = database.NewDocumentsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create documents handler", err)
	}
	g.Fragments, err = database.NewFragmentsDBHandler(db, o.embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create fragments handler", err)
	}
	g.Facts, err = database.NewFactsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create facts handler", err)
	}
	g.Entities, err = database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}
	g.Relations, err = database.NewRelationsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create relations handler", err)
	}
	g.Records, err = database.NewSearchRecordsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create search records handler", err)
	}

	g.Recorder, err = metrics.NewRecorder(g.Records, metrics.WithRecorderLogger(o.logger), metrics.WithMeter(o.meter))
	if err != nil {
		return nil, helper.NewError("create recorder", err)
	}

	retrieverOpts := []retrieval.Option{retrieval.WithLogger(o.logger)}
	g.Engine, err = engine.NewEngine(
		o.config,
		engine.Retrievers{
			Text:  retrieval.NewTextRetriever(g.Fragments, g.embed, retrieverOpts...),
			Fact:  retrieval.NewFactRetriever(g.Facts, retrieverOpts...),
			Graph: retrieval.NewGraphRetriever(graph.NewStore(g.Entities, g.Relations), g.extractMentions, retrieverOpts...),
		},
		synthesis.NewSynthesizer(generator, synthesis.WithLogger(o.logger)),
		engine.WithLogger(o.logger),
		engine.WithRecorder(g.Recorder),
	)
	if err != nil {
		g.Recorder.Close()
		return nil, helper.NewError("create engine", err)
	}

	return g, nil
}

func newOptions(opts []Option) options {
	o := options{
		config:         model.DefaultConfig(),
		embeddingModel: pipeline.DefaultEmbeddingModel,
		embeddingDim:   pipeline.DefaultEmbeddingDim,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(helper.NewPrettyHandler(os.Stdout, helper.PrettyHandlerOptions{
			SlogOpts: slog.HandlerOptions{
				Level: slog.LevelInfo,
			},
		}))
	}
	return o
}

// Close flushes pending search records and closes the database connection
func (g *Grounder) Close() error {
	if g.Recorder != nil {
		g.Recorder.Close()
	}
	if g.DB != nil {
		return g.DB.Close()
	}
	return nil
}

// SetPipeline sets the embedding pipeline used for query text
func (g *Grounder) SetPipeline(pipeline *pipeline.Pipeline) {
	g.Pipeline = pipeline
}

// UseDefaultPipeline sets up the configured hugot embedder behind a ten minute cache.
// The embedder rejects vectors that do not match the fragment dimension.
func (g *Grounder) UseDefaultPipeline() error {
	embedder, err := pipeline.NewEmbedder(g.embedder)
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	g.Pipeline = pipeline.NewPipeline(pipeline.CachedEmbedder(embedder, pipeline.DefaultCacheTTL))
	return nil
}

func (g *Grounder) embed(text string) ([]float32, error) {
	if g.Pipeline == nil || g.Pipeline.Embedder == nil {
		return nil, fmt.Errorf("pipeline with embedder not set, use SetPipeline() first")
	}
	return g.Pipeline.Embedder(text)
}

func (g *Grounder) extractMentions(text string) ([]string, error) {
	if g.Pipeline == nil || g.Pipeline.MentionExtractor == nil {
		return nil, nil
	}
	return g.Pipeline.MentionExtractor(text)
}

// Answer resolves a policy for the query, retrieves and fuses evidence and
// synthesizes a grounded answer. Only generation failures and cancellation
// are returned as errors, unavailable stores degrade the answer.
func (g *Grounder) Answer(ctx context.Context, request model.Request) (*model.Response, error) {
	query, err := request.ToQuery()
	if err != nil {
		return nil, helper.NewError("validate request", err)
	}
	return g.Engine.Answer(ctx, query)
}

// AnalyzeQuery resolves the policy of a question without retrieving or
// generating anything.
func (g *Grounder) AnalyzeQuery(text string) (*model.PolicySelection, error) {
	query, err := model.NewQuery(text)
	if err != nil {
		return nil, helper.NewError("validate query", err)
	}
	return g.Engine.Analyze(query), nil
}

// History returns the latest search records, newest first. An empty policy returns all.
func (g *Grounder) History(ctx context.Context, policy model.PolicyType, limit int) ([]*model.SearchRecord, error) {
	return g.Records.SelectSearchRecords(ctx, policy, limit)
}

// SearchRecord returns one persisted search record
func (g *Grounder) SearchRecord(ctx context.Context, rid uuid.UUID) (*model.SearchRecord, error) {
	return g.Records.SelectSearchRecord(ctx, rid)
}

// Health pings the database
func (g *Grounder) Health(ctx context.Context) error {
	err := g.DB.Ping(ctx)
	if err != nil {
		return helper.NewError("ping database", err)
	}
	return nil
}

// InsertFragment stores a fragment, embedding its content with the pipeline when no embedding is set
func (g *Grounder) InsertFragment(ctx context.Context, fragment *model.TextFragment) error {
	if len(fragment.Embedding) == 0 {
		embedding, err := g.embed(fragment.Content)
		if err != nil {
			return helper.NewError("generate embedding", err)
		}
		fragment.Embedding = embedding
	}
	return g.Fragments.InsertFragment(ctx, fragment)
}
