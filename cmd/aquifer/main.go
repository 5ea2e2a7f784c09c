package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-aquifer/internal/aquifer"
	"github.com/joeblew999/plat-aquifer/internal/fetch"
	"github.com/joeblew999/plat-aquifer/internal/server"
	"github.com/joeblew999/plat-aquifer/internal/service"
)

// Options defines all CLI flags and env vars for the aquifer server.
// Flags: --host, --port, --data-dir, --web-dir, --config
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WEB_DIR, SERVICE_CONFIG
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir string `doc:"Directory for GeoJSON data files" default:".data"`
	WebDir  string `doc:"Path to web/ directory" default:"web"`
	Config  string `doc:"Path to viewer config YAML" default:""`
}

func newServer(opts *Options) *server.Server {
	return server.New(server.Config{
		Host:       opts.Host,
		Port:       fmt.Sprintf("%d", opts.Port),
		DataDir:    opts.DataDir,
		WebDir:     opts.WebDir,
		ConfigFile: opts.Config,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv := newServer(opts)

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-aquifer server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			// The manifest is served from this process, so the initial
			// load has to wait until the listener is up.
			go func() {
				if err := srv.LoadData(context.Background()); err != nil {
					slog.Error("initial data load failed", "error", err)
				}
			}()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
		hooks.OnStop(func() {
			srv.Close()
		})
	})

	cli.Root().Use = "aquifer"
	cli.Root().Short = "Aquifer vulnerability map viewer"
	cli.Root().Version = "1.0.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// check subcommand: dry-run a manifest load and report the outcome
	checkCmd := &cobra.Command{
		Use:   "check <manifest-url>",
		Short: "Fetch a manifest and its data files, report load health",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runCheck(args[0]); err != nil {
				os.Exit(1)
			}
		},
	}
	cli.Root().AddCommand(checkCmd)

	cli.Run()
}

// runCheck loads a manifest the same way the server does and prints the
// outcome classification plus per-aquifer counts.
func runCheck(manifestURL string) error {
	store := aquifer.NewStore()
	notices := service.NewNoticeService(service.NewEventBus())
	fetcher := fetch.NewFetcher(nil, 0, slog.Default())
	loader := service.NewLoaderService(fetcher, store, notices, slog.Default())

	err := loader.Load(context.Background(), manifestURL)
	switch {
	case errors.Is(err, fetch.ErrBadManifest):
		fmt.Printf("BLOCKING: manifest rejected: %v\n", err)
		return err
	case errors.Is(err, fetch.ErrAllFailed):
		fmt.Println("BLOCKING: no data files could be loaded")
		return err
	case err != nil:
		fmt.Printf("BLOCKING: %v\n", err)
		return err
	}

	for _, n := range notices.List() {
		fmt.Printf("%s: %s\n", n.Severity, n.Message)
	}

	fmt.Printf("OK: %d polygons in %d aquifers\n", store.Len(), len(store.Groups()))
	for _, name := range store.Groups() {
		fmt.Printf("  %-30s %d polygons\n", name, len(store.Group(name)))
	}
	return nil
}
