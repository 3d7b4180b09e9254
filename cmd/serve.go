package cmd

import (
	"github.com/quietdns/vdns/config"
	"github.com/quietdns/vdns/evt"
	"github.com/quietdns/vdns/server"
	"github.com/quietdns/vdns/util"
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quietdns/vdns/log"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals
var (
	done chan bool
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Args:  cobra.NoArgs,
		Short: "start vdns DNS server (default command)",
		Run:   startServer,
	}
}

func startServer(_ *cobra.Command, _ []string) {
	printBanner()

	newCfg, err := config.LoadConfig(configPath, true)
	util.FatalOnError("can't load config: ", err)

	cfg = *newCfg
	log.ConfigureLogger(cfg.Log)

	configureHTTPClient(&cfg)

	signals := make(chan os.Signal)
	done = make(chan bool)

	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	srv, err := server.NewServer(&cfg)
	util.FatalOnError("cant start server: ", err)

	errCh := make(chan error, 10)
	srv.Start(errCh)

	go func() {
		for {
			select {
			case <-signals:
				log.Log().Infof("Terminating...")

				if err := srv.Stop(); err != nil {
					log.Log().Error("error on server stop: ", err)
				}

				done <- true

				return
			case err := <-errCh:
				log.Log().Fatal("server error: ", err)
			}
		}
	}()

	evt.Bus().Publish(evt.ApplicationStarted, version, buildTime)
	<-done
}

func configureHTTPClient(cfg *config.Config) {
	if len(cfg.BootstrapDNS) == 0 {
		return
	}

	upstream := cfg.BootstrapDNS[0].Upstream
	if upstream.Net != config.NetProtocolTcpUdp {
		return
	}

	dns := net.JoinHostPort(upstream.Host, fmt.Sprint(upstream.Port))
	log.Log().Debugf("using %s as bootstrap dns server", dns)

	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{
				Timeout: 2 * time.Second,
			}

			return d.DialContext(ctx, "udp", dns)
		},
	}

	http.DefaultTransport = &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:  5 * time.Second,
			Resolver: r,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}
}

func printBanner() {
	log.Log().Info("_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/")
	log.Log().Info("_/                                                              _/")
	log.Log().Info("_/                                                              _/")
	log.Log().Info("_/       _/        _/                      _/                   _/")
	log.Log().Info("_/      _/_/_/    _/    _/_/      _/_/_/  _/  _/    _/    _/    _/")
	log.Log().Info("_/     _/    _/  _/  _/    _/  _/        _/_/      _/    _/     _/")
	log.Log().Info("_/    _/    _/  _/  _/    _/  _/        _/  _/    _/    _/      _/")
	log.Log().Info("_/   _/_/_/    _/    _/_/      _/_/_/  _/    _/    _/_/_/       _/")
	log.Log().Info("_/                                                    _/        _/")
	log.Log().Info("_/                                               _/_/           _/")
	log.Log().Info("_/                                                              _/")
	log.Log().Info("_/                                                              _/")
	log.Log().Infof("_/  Version: %-18s Build time: %-18s  _/", version, buildTime)
	log.Log().Info("_/                                                              _/")
	log.Log().Info("_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/_/")
}
