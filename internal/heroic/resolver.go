package heroic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"syscall"

	"github.com/starford/envtest/internal/clock"
	"github.com/starford/envtest/internal/models"
)

// Resolver looks up Heroic config and library data for a game.
type Resolver struct {
	layout Layout
	clock  clock.Clock
	logger *slog.Logger
}

// NewResolver creates a Resolver reading files under home.
func NewResolver(home string, clk clock.Clock, logger *slog.Logger) *Resolver {
	return &Resolver{layout: Layout{Home: home}, clock: clk, logger: logger}
}

// Layout returns the directory layout the resolver reads from.
func (r *Resolver) Layout() Layout {
	return r.layout
}

// Resolve returns the config and matching library entries for appname.
// Missing files are reported as models.NotFound. The first read or parse
// failure stops processing and is recorded in the result's Error field;
// anything resolved before it is kept.
func (r *Resolver) Resolve(ctx context.Context, appname string) *models.HeroicQueryResult {
	res := &models.HeroicQueryResult{
		Timestamp: models.Timestamp(r.clock.Now()),
		AppName:   appname,
	}
	if err := r.resolve(appname, res); err != nil {
		r.logger.WarnContext(ctx, "heroic lookup failed",
			slog.String("appname", appname),
			slog.String("error", err.Error()))
		res.Error = err.Error()
	}
	return res
}

func (r *Resolver) resolve(appname string, res *models.HeroicQueryResult) error {
	cfg, err := r.readConfig(appname)
	if err != nil {
		return err
	}
	res.HeroicConfig = cfg

	lib, err := r.readLibrary(appname)
	if err != nil {
		return err
	}
	res.HeroicLibrary = lib
	return nil
}

func (r *Resolver) readConfig(appname string) (json.RawMessage, error) {
	path, ok := r.layout.ConfigPath(appname)
	if !ok {
		return models.NotFoundJSON(), nil
	}
	doc, found, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}
	if !found {
		return models.NotFoundJSON(), nil
	}
	return doc, nil
}

func (r *Resolver) readLibrary(appname string) (json.RawMessage, error) {
	doc, found, err := readJSONFile(r.layout.LibraryPath())
	if err != nil {
		return nil, err
	}
	if !found {
		return models.NotFoundJSON(), nil
	}
	return FilterLibrary(doc, appname)
}

// readJSONFile reads and parses path. found is false when the file, or one of
// its parent directories, does not exist or the name is too long to exist.
func readJSONFile(path string) (doc json.RawMessage, found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) || errors.Is(err, syscall.ENAMETOOLONG) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("heroic: read %s: %w", path, err)
	}
	doc, err = parseJSON(data)
	if err != nil {
		return nil, true, fmt.Errorf("heroic: parse %s: %w", path, err)
	}
	return doc, true, nil
}
