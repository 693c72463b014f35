package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-parks/internal/logging"
	"github.com/joeblew999/plat-parks/internal/nps"
	"github.com/joeblew999/plat-parks/internal/server"
)

// Options defines all CLI flags and env vars for the parks server.
// Flags: --host, --port, --data-dir, --web-dir, --nps-api-key, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_NPS_API_KEY, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir   string `doc:"Directory for the DuckDB archive" default:".data"`
	WebDir    string `doc:"Path to web/ directory; empty serves the embedded copy" default:""`
	NPSAPIKey string `doc:"National Park Service API key" default:"DEMO_KEY"`
	NPSURL    string `doc:"NPS API root" default:"https://developer.nps.gov/api/v1"`
	StateCode string `doc:"State whose parks are listed" default:"OR"`
	Store     string `doc:"Favorites storage" enum:"duckdb,redis,memory" default:"duckdb"`
	RedisAddr string `doc:"Redis address for --store=redis" default:"localhost:6379"`
}

func newServer(opts *Options) (*server.Server, error) {
	return server.New(server.Config{
		Host:      opts.Host,
		Port:      fmt.Sprintf("%d", opts.Port),
		DataDir:   opts.DataDir,
		WebDir:    opts.WebDir,
		NPSAPIKey: opts.NPSAPIKey,
		NPSURL:    opts.NPSURL,
		StateCode: opts.StateCode,
		Store:     opts.Store,
		RedisAddr: opts.RedisAddr,
		Log:       logging.Default(),
	})
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	log := logging.Default()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var srv *server.Server
		var httpServer *http.Server

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(opts)
			if err != nil {
				log.Fatal().Err(err).Msg("Creating server")
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			log.Info().
				Str("url", baseURL).
				Str("data", opts.DataDir).
				Str("store", opts.Store).
				Str("docs", baseURL+"/docs").
				Msg("plat-parks server starting")

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal().Err(err).Msg("Server error")
			}
		})

		hooks.OnStop(func() {
			if httpServer != nil {
				httpServer.Shutdown(context.Background())
			}
			if srv != nil {
				srv.Close()
			}
		})
	})

	cli.Root().Use = "parks"
	cli.Root().Short = "National Park Service sites on a live map"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.Store = server.StoreMemory
			opts.DataDir = ""
			srv, err := newServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
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

	// fetch subcommand: print the normalized parks once
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and print the normalized park list as YAML",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			client := nps.NewClient(opts.NPSAPIKey)
			client.BaseURL = opts.NPSURL
			client.StateCode = opts.StateCode

			parks, err := client.Parks(cmd.Context())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error fetching parks: %v\n", err)
				os.Exit(1)
			}
			output, err := yaml.Marshal(parks)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling parks: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(string(output))
		}),
	}
	cli.Root().AddCommand(fetchCmd)

	cli.Run()
}
