package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/vango-dev/waypoint/internal/config"
	werrors "github.com/vango-dev/waypoint/internal/errors"
	"github.com/vango-dev/waypoint/pkg/manifest"
	"github.com/vango-dev/waypoint/pkg/router"
)

// project is the loaded configuration plus everything derived from it.
type project struct {
	cfg      *config.Config
	location string
	vars     map[string]any
	logger   *slog.Logger
}

// loadProject resolves waypoint.json and applies flag overrides. A missing
// config file is fine when --manifest names the manifest directly.
func (o *rootOptions) loadProject() (*project, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	location := cfg.ManifestPath()
	if o.manifest != "" {
		location = o.manifest
	}

	vars := make(map[string]any, len(cfg.Vars)+len(o.vars))
	for k, v := range cfg.Vars {
		vars[k] = v
	}
	for _, kv := range o.vars {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, werrors.New("E171").
				WithDetail("--var expects key=value, got " + strconv.Quote(kv))
		}
		vars[key] = parseVar(value)
	}

	logger := newLogger(os.Stderr, cfg.LogLevel(), cfg.Log.Format)
	slog.SetDefault(logger)

	return &project{cfg: cfg, location: location, vars: vars, logger: logger}, nil
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configPath != "" {
		fi, err := os.Stat(o.configPath)
		if err == nil && fi.IsDir() {
			return config.Load(o.configPath)
		}
		return config.LoadFile(o.configPath)
	}

	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		if o.manifest == "" {
			return nil, err
		}
		return config.New(), nil
	}
	return cfg, nil
}

// parseVar turns a flag value into a bool, an int or a string.
func parseVar(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

// loader returns a manifest loader, with S3 wired when the location needs it.
func (p *project) loader() *manifest.Loader {
	if !strings.HasPrefix(p.location, manifest.S3Scheme) {
		return manifest.NewLoader()
	}
	client := manifest.NewS3Client(manifest.S3Config{
		Region:   p.cfg.S3.Region,
		Endpoint: p.cfg.S3.Endpoint,
	})
	return manifest.NewLoader(manifest.WithS3(manifest.NewS3Source(client)))
}

// compiler returns the guard compiler for the project's variables.
func (p *project) compiler() *manifest.Compiler {
	return manifest.NewCompiler(manifest.WithVars(p.vars))
}

// loadManifest reads and parses the manifest.
func (p *project) loadManifest(ctx context.Context) (*manifest.Manifest, error) {
	m, err := p.loader().Load(ctx, p.location)
	if err != nil {
		return nil, manifestError(p.location, err)
	}
	return m, nil
}

// definitions loads the manifest and compiles it into route definitions.
func (p *project) definitions(ctx context.Context) ([]router.RouteDefinition, error) {
	m, err := p.loadManifest(ctx)
	if err != nil {
		return nil, err
	}
	return p.compile(m)
}

func (p *project) compile(m *manifest.Manifest) ([]router.RouteDefinition, error) {
	defs, err := m.Definitions(p.compiler())
	if err != nil {
		return nil, werrors.New("E121").
			WithDetail(err.Error()).
			WithSuggestion("Guards must evaluate to true, false or a redirect path").
			WithExample(guardExample).
			Wrap(err)
	}
	return defs, nil
}

const guardExample = `- path: /admin
  component: Admin
  guard: 'vars.loggedIn ? true : "/login"'`

const manifestExample = `routes:
  - path: /
    component: Home
  - path: /docs
    component: Docs
    children:
      - path: intro
        component: Intro`

// manifestError maps a load failure onto a coded error.
func manifestError(location string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return werrors.New("E123").
			WithDetail("No manifest at " + location).
			WithSuggestion("Set \"manifest\" in waypoint.json or pass --manifest").
			Wrap(err)
	case errors.Is(err, manifest.ErrInvalidS3URL):
		return werrors.New("E124").Wrap(err)
	case strings.HasPrefix(location, manifest.S3Scheme):
		return werrors.New("E123").WithDetail(err.Error()).Wrap(err)
	default:
		return werrors.New("E120").
			WithDetail(err.Error()).
			WithExample(manifestExample).
			WithLocationFromError(location, err).
			Wrap(err)
	}
}
