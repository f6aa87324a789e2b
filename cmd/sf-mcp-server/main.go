package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/salesforce-mcp/sf-mcp-server/pkg/config"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/initialize"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/logging"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/mcp"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/output"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/prompts"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/serverstate"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfapi"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/sfcli"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/telemetry"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/tools"
	"github.com/salesforce-mcp/sf-mcp-server/pkg/watcher"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sf-mcp-server",
	Short: "MCP server exposing a Salesforce org to an AI agent host",
	Long: `sf-mcp-server is a Model Context Protocol server that exposes a
Salesforce org (SOQL, describe, records, Apex, metadata, tests, debug
logs) to an MCP-speaking agent host over stdio or streamable HTTP.

It owns no credentials of its own: every call is delegated to the
Salesforce CLI ("sf"), which must already be authenticated against a
default org in the resolved workspace.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd)
	},
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags(), os.LookupEnv)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	// --log-file applies to the HTTP transport only; stdio logs to stderr alone.
	logFile := ""
	if cfg.Transport == config.TransportHTTP {
		logFile = cfg.LogFile
	}
	logger := logging.NewStructuredLogger(logging.Config{
		Level:     logging.ParseMCPLevel(cfg.LogLevel),
		Format:    logging.FormatJSON,
		Output:    os.Stderr,
		Component: "sf-mcp-server",
		LogFile:   logFile,
	})
	slog.SetDefault(logger)

	// Stdout is the JSON-RPC wire in stdio mode; the banner (and all
	// later table output) must go to stderr regardless of transport.
	printer := output.NewWithWriter(os.Stderr)
	printer.Banner(version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-done
		logger.Info("shutdown signal received")
		cancel()
	}()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Insecure: os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
	})
	if err != nil {
		return fmt.Errorf("bootstrapping telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	state := serverstate.New()
	cli := sfcli.New(os.Getenv("SF_CLI_BIN"), "")
	gateway := sfapi.New(state, cli, os.Getenv("SF_INSECURE_TLS") == "true")
	gateway.SetTracer(provider.Tracer())
	go gateway.StartCacheSweep(ctx, mcp.APICacheSweepPeriod)

	requesters := &requesterHolder{}

	var notifyResourcesChanged func()
	resources := mcp.NewResourceStore(mcp.DefaultResourceCapacity, func() {
		if notifyResourcesChanged != nil {
			notifyResourcesChanged()
		}
	})

	registry := mcp.NewRegistry()
	tools.Register(registry, &tools.Deps{
		Gateway:   gateway,
		CLI:       cli,
		Resources: resources,
		State:     state,
		Logger:    logging.WithComponent(logger, "tools"),
	})

	bypassPermissionCheck := os.Getenv("SF_MCP_BYPASS_PERMISSION_CHECK") == "true"

	dispatcher := mcp.NewDispatcher(registry, state, logging.WithComponent(logger, "dispatcher"))
	dispatcher.SetTracer(provider.Tracer())
	dispatcher.SetBypassPermissionGate(bypassPermissionCheck)

	promptStore := prompts.NewStore()

	rt := &router{
		serverInfo:   mcp.ServerInfo{Name: "sf-mcp-server", Version: version},
		dispatcher:   dispatcher,
		resources:    resources,
		prompts:      promptStore,
		state:        state,
		logger:       logging.WithComponent(logger, "router"),
		requesters:   requesters,
		runCtx:       ctx,
		workspaceEnv: cfg.PrimaryWorkspace(),
	}

	machine := initialize.New(state, gateway, cli, resources, &rootsAdapter{holder: requesters}, logging.WithComponent(logger, "initialize"), initialize.Options{
		BypassPermissionCheck: bypassPermissionCheck,
		ClientAdvertisesRoots: true,
	})
	rt.machine = machine

	go func() {
		if err := machine.Ready(ctx); err != nil {
			return
		}
		workspace := state.WorkspacePath()
		if workspace == "" {
			return
		}
		w := watcher.New(workspace, func(change watcher.OrgChanged) {
			logger.Info("target org changed", "oldAlias", change.OldAlias, "newAlias", change.NewAlias)
			rt.reidentify(ctx)
		}, logging.WithComponent(logger, "watcher"))
		if err := w.Start(); err != nil {
			logger.Warn("could not start org watcher", "error", err)
			return
		}
		defer w.Stop()
		<-ctx.Done()
	}()

	switch cfg.Transport {
	case config.TransportHTTP:
		return runHTTP(ctx, cfg, logger, rt, resources, &notifyResourcesChanged)
	default:
		return runStdio(ctx, logger, rt, &notifyResourcesChanged)
	}
}

func runStdio(ctx context.Context, logger *slog.Logger, rt *router, notifyResourcesChanged *func()) error {
	transport := mcp.NewStdioTransport(os.Stdin, os.Stdout, logger, rt.handle)
	rt.bindClient = func(context.Context) requester { return transport }
	*notifyResourcesChanged = func() { transport.Notify("notifications/resources/list_changed", nil) }

	logger.Info("stdio transport starting")
	err := transport.Run(ctx)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func runHTTP(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger, rt *router, resources *mcp.ResourceStore, notifyResourcesChanged *func()) error {
	transport := mcp.NewHTTPTransport(rt.handle, logger, rt.serverInfo, func() map[string]any {
		return map[string]any{
			"salesforce": rt.state.Snapshot().Org,
			"mcp": map[string]any{
				"tools":     rt.dispatcher.ListTools(),
				"resources": resources.List(),
			},
		}
	})
	transport.SetReadyFn(func() bool { return rt.state.InitializationComplete() })
	transport.SetDashboardFn(func() mcp.DashboardSnapshot {
		org := rt.state.Snapshot().Org
		alias, _ := org["alias"].(string)
		return mcp.DashboardSnapshot{OrgAlias: alias}
	})

	rt.bindClient = func(ctx context.Context) requester {
		return httpRequester{transport: transport, sessionID: mcp.SessionIDFromContext(ctx)}
	}
	*notifyResourcesChanged = func() { transport.Notify("notifications/resources/list_changed", nil) }

	port, err := transport.ListenAndServe(ctx, "0.0.0.0", cfg.Port)
	if err != nil {
		return fmt.Errorf("http transport: %w", err)
	}
	logger.Info("http transport stopped", "port", port)
	return nil
}
