package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/caldog20/tapserver/relay"
	"github.com/caldog20/tapserver/tap"
)

type program struct {
	opts    Options
	dev     *tap.Device
	server  *relay.Server
	metrics *http.Server

	metricsAddr net.Addr
}

func (p *program) Start(s service.Service) error {
	if err := relay.Supported(); err != nil {
		return err
	}

	var dev relay.Device
	if !p.opts.Hub {
		d, err := tap.New(p.opts.TapConfig())
		if err != nil {
			return err
		}
		log.Printf("opened tap device %s", d.Name())
		p.dev = d
		dev = d
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server, err := relay.NewServer(
		p.opts.RelayConfig(),
		dev,
		relay.WithLogger(log.WithField("component", "relay")),
		relay.WithMetrics(relay.NewMetrics(reg)),
		relay.WithFrameSummary(tap.Summarize),
	)
	if err != nil {
		p.closeDevice()
		return err
	}

	if err := server.Start(); err != nil {
		p.closeDevice()
		return err
	}
	p.server = server

	if p.opts.Metrics != "" {
		if err := p.serveMetrics(reg); err != nil {
			server.Stop()
			p.closeDevice()
			return err
		}
	}

	go p.watch()
	return nil
}

// watch exits the process when the relay dies on its own so the service
// manager can restart it.
func (p *program) watch() {
	<-p.server.Done()
	if err := p.server.Err(); err != nil {
		log.WithError(err).Error("relay terminated")
		p.Stop(nil)
		os.Exit(1)
	}
}

func (p *program) Stop(s service.Service) error {
	var err error
	if p.server != nil {
		err = multierr.Append(err, p.server.Stop())
	}
	if p.metrics != nil {
		err = multierr.Append(err, StopHTTPServer(p.metrics))
	}
	err = multierr.Append(err, p.closeDevice())
	return err
}

func (p *program) closeDevice() error {
	if p.dev == nil {
		return nil
	}
	return p.dev.Close()
}

func (p *program) serveMetrics(reg *prometheus.Registry) error {
	ln, err := net.Listen("tcp", p.opts.Metrics)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	p.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: time.Second * 10}

	p.metricsAddr = ln.Addr()
	log.Printf("serving metrics on %s", ln.Addr())
	go func() {
		if err := p.metrics.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	return nil
}

func StopHTTPServer(s *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	err := s.Shutdown(ctx)
	if err == context.DeadlineExceeded {
		return s.Close()
	}
	return err
}

func NewService(program service.Interface, args []string) (service.Service, error) {
	options := make(service.KeyValue)
	options["Restart"] = "on-failure"
	options["SuccessExitStatus"] = "1 2 8 SIGKILL"
	svcConfig := &service.Config{
		Name:        "com.tapserver.relay.service",
		DisplayName: "Tapserver Relay Service",
		Description: "Relays TAP interface frames to TCP clients",
		Arguments:   args,
		Option:      options,
	}

	return service.New(program, svcConfig)
}

func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "runs the relay in the foreground or under the service manager",
		Run: func(cmd *cobra.Command, args []string) {
			svc, err := NewService(&program{opts: opts}, nil)
			if err != nil {
				log.Fatal(err)
			}
			if err := svc.Run(); err != nil {
				log.Fatal(err)
			}
		},
	}
}

func NewInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "install the relay as a background service, flags are passed to run",
		Run: func(cmd *cobra.Command, args []string) {
			runArgs := append([]string{"run"}, os.Args[2:]...)
			svc, err := NewService(&program{opts: opts}, runArgs)
			if err != nil {
				log.Fatal(err)
			}
			if err := svc.Install(); err != nil {
				log.Fatal(err)
			}
		},
	}
}

func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "uninstall the background service",
		Run: func(cmd *cobra.Command, args []string) {
			svc, err := NewService(&program{}, nil)
			if err != nil {
				log.Fatal(err)
			}
			if err := svc.Uninstall(); err != nil {
				log.Fatal(err)
			}
		},
	}
}

func NewStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "starts the background service",
		Run: func(cmd *cobra.Command, args []string) {
			svc, err := NewService(&program{}, nil)
			if err != nil {
				log.Fatal(err)
			}
			if err := svc.Start(); err != nil {
				log.Fatal(err)
			}
		},
	}
}

func NewStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "stops the background service",
		Run: func(cmd *cobra.Command, args []string) {
			svc, err := NewService(&program{}, nil)
			if err != nil {
				log.Fatal(err)
			}
			if err := svc.Stop(); err != nil {
				log.Fatal(err)
			}
		},
	}
}
