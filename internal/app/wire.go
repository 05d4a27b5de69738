package app

import (
	"log/slog"

	"go-live-rst/internal/build"
	"go-live-rst/internal/config"
	"go-live-rst/internal/process"
	"go-live-rst/internal/render"
	httptransport "go-live-rst/internal/transport/http"
)

// Filetypes handled by the plugin.
const (
	FiletypeRST      = "rst"
	FiletypeMarkdown = "markdown"
)

// New wires providers, the process runner and the preview server from cfg.
// Builder command lines and stderr go to sink.
func New(cfg *config.Config, logger *slog.Logger, sink process.LogSink, onError func(error)) *LivePreview {
	runner := &process.Runner{Log: sink, Env: cfg.ProcessEnv()}

	var rst Provider
	switch cfg.ResolveProvider() {
	case config.ProviderSphinx:
		rst = build.NewSphinx(cfg, runner, sink)
	default:
		rst = build.NewDocutils(cfg, runner)
	}
	logger.Info("preview providers ready", "rst", rst.Name(), "markdown", render.ProviderName)

	return NewLivePreview(Options{
		Providers: map[string]Provider{
			FiletypeRST:      rst,
			FiletypeMarkdown: render.NewRenderer(),
		},
		Publisher: httptransport.NewPreviewServer(cfg.ListenAddr(), render.RenderShell(), logger),
		Debounce:  cfg.Debounce(),
		Logger:    logger,
		OnError:   onError,
	})
}
