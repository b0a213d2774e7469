// ambari-inventory discovers the topology of an Ambari-managed cluster and
// renders it as an Ansible inventory.
//
// The default command speaks the Ansible dynamic inventory protocol
// (--list / --host); the serve subcommand keeps rediscovering on an
// interval and exposes the latest inventory plus Prometheus metrics over
// HTTP, for consumers that poll instead of exec.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/RReivax/ansible-plugin-inventory-ambari/internal/ambari"
	"github.com/RReivax/ansible-plugin-inventory-ambari/internal/config"
	"github.com/RReivax/ansible-plugin-inventory-ambari/internal/discovery"
	"github.com/RReivax/ansible-plugin-inventory-ambari/internal/inventory"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	verbose    bool

	hostName string
	yamlOut  bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ambari-inventory",
		Short:         "Ansible dynamic inventory for Apache Ambari clusters",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"path to an *.ambari.yml inventory source file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"enable debug logging")

	// --list is the default behavior; the flag exists so the Ansible
	// dynamic inventory protocol's `script --list` invocation is accepted.
	cmd.Flags().Bool("list", false, "output the full inventory as JSON")
	cmd.Flags().StringVar(&opts.hostName, "host", "", "output variables for a single host")
	cmd.Flags().BoolVar(&opts.yamlOut, "yaml", false, "output the inventory as a static YAML inventory")

	cmd.AddCommand(newServeCommand(opts))

	return cmd
}

// runList performs one discovery run and prints the inventory on stdout.
// Logs go to stderr so the protocol output stays parseable.
func runList(opts *rootOptions) error {
	log := newLogger(opts.verbose)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		log.Error().Err(err).Msg("configuration resolution failed")
		return err
	}

	inv, err := discover(context.Background(), cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("discovery failed")
		return err
	}

	var out []byte
	switch {
	case opts.hostName != "":
		out, err = inv.HostJSON(opts.hostName)
	case opts.yamlOut:
		out, err = inv.YAML()
	default:
		out, err = inv.ListJSON()
	}
	if err != nil {
		log.Error().Err(err).Msg("inventory rendering failed")
		return err
	}

	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

type serveOptions struct {
	listenAddr string
	interval   time.Duration
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory and Prometheus metrics over HTTP, rediscovering on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.listenAddr, "listen", ":8080", "address to listen on")
	cmd.Flags().DurationVar(&opts.interval, "interval", 5*time.Minute, "time between discovery runs")

	return cmd
}

func runServe(root *rootOptions, opts *serveOptions) error {
	log := newLogger(root.verbose)

	cfg, err := loadConfig(root.configPath)
	if err != nil {
		log.Error().Err(err).Msg("configuration resolution failed")
		return err
	}

	srv := newInventoryServer(cfg, log)
	srv.refresh()
	go func() {
		for {
			time.Sleep(opts.interval)
			srv.refresh()
		}
	}()

	log.Info().Str("listen", opts.listenAddr).Dur("interval", opts.interval).Msg("starting inventory server")
	return http.ListenAndServe(opts.listenAddr, srv.handler())
}

// inventoryServer holds the latest rendered inventory for serve mode and
// answers HTTP requests for it.
type inventoryServer struct {
	cfg *config.Config
	log zerolog.Logger

	mu     sync.RWMutex
	latest []byte
}

func newInventoryServer(cfg *config.Config, log zerolog.Logger) *inventoryServer {
	return &inventoryServer{cfg: cfg, log: log}
}

// refresh runs one discovery and swaps in the freshly rendered inventory.
// On failure the previous inventory stays in place.
func (s *inventoryServer) refresh() {
	inv, err := discover(context.Background(), s.cfg, s.log)
	if err != nil {
		s.log.Error().Err(err).Msg("discovery failed, keeping previous inventory")
		return
	}
	out, err := inv.ListJSON()
	if err != nil {
		s.log.Error().Err(err).Msg("inventory rendering failed")
		return
	}
	s.mu.Lock()
	s.latest = out
	s.mu.Unlock()
	s.log.Info().Int("hosts", len(inv.HostNames())).Msg("inventory refreshed")
}

// handler returns the serve-mode mux: the inventory document plus
// Prometheus metrics.
func (s *inventoryServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/inventory", s.handleInventory)
	return mux
}

func (s *inventoryServer) handleInventory(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := s.latest
	s.mu.RUnlock()
	if out == nil {
		http.Error(w, "inventory not available yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(out)
}

// discover runs the full pipeline once into a fresh inventory.
func discover(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*inventory.Inventory, error) {
	client := ambari.New(cfg, log)
	inv := inventory.New()
	projector := discovery.NewProjector(client, cfg, log)
	if err := projector.Run(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// loadConfig resolves the connection settings, refusing source files this
// plugin does not own.
func loadConfig(path string) (*config.Config, error) {
	if path != "" && !config.VerifyFile(path) {
		return nil, fmt.Errorf("%s is not an ambari inventory source (expected *.ambari.yml or *.ambari.yaml)", path)
	}
	return config.Load(path)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}
