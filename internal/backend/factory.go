package backend

import (
	"context"
	"fmt"
	"log/slog"

	gsheet "github.com/FirjiAchmad24/dashmonitoring-pln/internal/sheets/google"
	"github.com/FirjiAchmad24/dashmonitoring-pln/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case NoneBackend:
		f.logger.Info("Recap mirror disabled")
		return &MirrorResult{}, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory recap mirror")
		return &MirrorResult{Mirror: memory.New()}, nil
	case SheetsBackend:
		return f.createSheetsMirror(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	cli, err := gsheet.NewFromEnv(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets recap mirror",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return &MirrorResult{Mirror: cli}, nil
}
