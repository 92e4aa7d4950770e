package bootstrap

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	corpusinadapter "ragstream/internal/modules/corpus/adapter/in"
	corpusoutadapter "ragstream/internal/modules/corpus/adapter/out"
	corpusservice "ragstream/internal/modules/corpus/service"
	corpususecase "ragstream/internal/modules/corpus/usecase"
	ingestinadapter "ragstream/internal/modules/ingest/adapter/in"
	ingestoutadapter "ragstream/internal/modules/ingest/adapter/out"
	ingestservice "ragstream/internal/modules/ingest/service"
	ingestusecase "ragstream/internal/modules/ingest/usecase"
	queryinadapter "ragstream/internal/modules/query/adapter/in"
	queryoutadapter "ragstream/internal/modules/query/adapter/out"
	queryservice "ragstream/internal/modules/query/service"
	queryusecase "ragstream/internal/modules/query/usecase"
	"ragstream/internal/platform/clock"
	"ragstream/internal/platform/config"
	"ragstream/internal/platform/httpjson"
	"ragstream/internal/platform/id"
	"ragstream/internal/platform/logger"
	uiapp "ragstream/internal/ui/app"
)

type App struct {
	IngestCLI ingestinadapter.CLIHandler
	QueryCLI  queryinadapter.CLIHandler
	CorpusCLI corpusinadapter.CLIHandler
	Log       logger.Logger
}

func New(cfg config.Config, log logger.Logger) (*App, error) {
	clk := clock.SystemClock{}
	ids := id.UUID{}
	client := httpjson.New(cfg.API.RequestTimeout)

	attempts, err := ingestoutadapter.NewSQLiteAttemptStore(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("new attempt store: %w", err)
	}
	ingestSvc := ingestservice.NewIngestService(
		clk,
		ids,
		ingestoutadapter.NewLocalTextReader(),
		ingestoutadapter.NewHTTPUploader(client, cfg.API.Endpoint(cfg.API.UploadPath)),
		attempts,
		log,
	)
	ingestUC := ingestusecase.NewInteractor(ingestSvc, ingestoutadapter.NewLocalFileLoader())

	dialer := queryoutadapter.NewWebSocketDialer(cfg.Stream.URL, cfg.Stream.HandshakeTimeout, cfg.Stream.WriteTimeout)
	queryUC := queryusecase.NewInteractor(queryservice.NewStreamService(clk, ids, dialer, log), ingestUC)

	corpusClient := corpusoutadapter.NewHTTPCorpusClient(
		client,
		cfg.API.Endpoint(cfg.API.StatusPath),
		cfg.API.Endpoint(cfg.API.SearchPath),
	)
	corpusUC := corpususecase.NewInteractor(corpusservice.NewCorpusService(corpusClient, cfg.API.StatusCacheTTL, log))

	return &App{
		IngestCLI: ingestinadapter.NewCLIHandler(ingestUC),
		QueryCLI:  queryinadapter.NewCLIHandler(queryUC),
		CorpusCLI: corpusinadapter.NewCLIHandler(corpusUC),
		Log:       log,
	}, nil
}

// streamBuffer sizes the TUI's event subscription. Fragment events are
// dropped for a slow reader; the closing event never is.
const streamBuffer = 64

func RunTUI(app *App) error {
	events, unsubscribe := app.QueryCLI.Subscribe(streamBuffer)
	defer unsubscribe()

	model := uiapp.NewModel(app.IngestCLI, app.QueryCLI, app.CorpusCLI, events)
	program := tea.NewProgram(model, tea.WithAltScreen())
	app.Log.Info("tui", "started", nil)
	_, err := program.Run()
	if app.QueryCLI.Cancel(context.Background()) {
		app.Log.Info("tui", "cancelled active stream on exit", nil)
	}
	if err != nil {
		app.Log.Error("tui", "program exited with error", map[string]any{"error": err})
	}
	return err
}
