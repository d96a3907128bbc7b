// Command updyn is a minimal client for dynamic DNS update servers.
// It opens a channel to the given server, writes a raw request, and
// prints whatever the server sends back until the dialog is over.
// Use it to exercise the full channel lifecycle, including the TLS
// priority profiles, version pinning, and ClientHello mimicking.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/updyn/updyn/internal/model"
	"github.com/updyn/updyn/internal/netx"
	utls "gitlab.com/yawning/utls.git"
)

// Options contains the options you can set from the CLI.
type Options struct {
	CABundle   string
	Hostname   string
	Plain      bool
	Port       uint16
	Profile    string
	Prometheus string
	Request    string
	Timeout    int64
	TLSVersion string
	UTLSHello  string
	Verbose    bool
}

func main() {
	var globalOptions Options
	rootCmd := &cobra.Command{
		Use:   "updyn",
		Short: "updyn talks to a dynamic DNS update server",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			mainWithOptions(&globalOptions)
		},
	}
	flags := rootCmd.Flags()

	flags.StringVar(
		&globalOptions.CABundle,
		"ca-bundle",
		"",
		"path of the CA bundle to trust (default: "+netx.DefaultCABundlePath+")",
	)

	flags.StringVarP(
		&globalOptions.Hostname,
		"hostname",
		"H",
		"",
		"hostname of the update server (mandatory)",
	)

	flags.BoolVar(
		&globalOptions.Plain,
		"plain",
		false,
		"use cleartext TCP rather than TLS",
	)

	flags.Uint16VarP(
		&globalOptions.Port,
		"port",
		"p",
		0,
		"port of the update server (default: 443 with TLS, 80 otherwise)",
	)

	flags.StringVar(
		&globalOptions.Profile,
		"profile",
		"",
		"TLS priority profile: normal, secure, or legacy",
	)

	flags.StringVar(
		&globalOptions.Prometheus,
		"prometheus",
		"",
		"also serve prometheus metrics at this endpoint (e.g., 127.0.0.1:9091)",
	)

	flags.StringVar(
		&globalOptions.Request,
		"request",
		"",
		"raw request to send (default: an HTTP/1.0 GET for /)",
	)

	flags.Int64Var(
		&globalOptions.Timeout,
		"timeout",
		30,
		"I/O timeout in seconds for the dialog (0 means no timeout)",
	)

	flags.StringVar(
		&globalOptions.TLSVersion,
		"tls-version",
		"",
		"pin the TLS version: TLSv1.3, TLSv1.2, TLSv1.1, or TLSv1.0",
	)

	flags.StringVar(
		&globalOptions.UTLSHello,
		"utls",
		"",
		"mimic this browser's ClientHello: chrome, firefox, or golang",
	)

	flags.BoolVarP(
		&globalOptions.Verbose,
		"verbose",
		"v",
		false,
		"increase verbosity level",
	)

	rootCmd.MarkFlagRequired("hostname")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// clientHelloIDs maps the names accepted by --utls onto hello IDs.
var clientHelloIDs = map[string]*utls.ClientHelloID{
	"chrome":  &utls.HelloChrome_Auto,
	"firefox": &utls.HelloFirefox_Auto,
	"golang":  &utls.HelloGolang,
}

// clientHelloID maps the name passed to --utls onto the ClientHello
// to mimic or exits when we don't know the given name.
func clientHelloID(name string) *utls.ClientHelloID {
	if id := clientHelloIDs[name]; id != nil {
		return id
	}
	log.Fatalf("unknown ClientHello name: %s (accepted names: chrome, firefox, golang)", name)
	return nil
}

// newTrustStore creates the trust store using the given CA bundle
// path or the system bundle when the path is empty.
func newTrustStore(logger model.Logger, path string) *netx.TrustStore {
	var (
		trust *netx.TrustStore
		err   error
	)
	if path != "" {
		trust, err = netx.NewTrustStoreFromPath(logger, path)
	} else {
		trust, err = netx.NewTrustStore(logger)
	}
	if err != nil {
		log.WithError(err).Fatal("cannot initialize the trust store")
	}
	return trust
}

// defaultRequest returns the request we send when the user does not
// provide one: an HTTP/1.0 GET for the root resource, which most
// update servers answer without keeping the connection open.
func defaultRequest(hostname string) string {
	return fmt.Sprintf("GET / HTTP/1.0\r\nHost: %s\r\nConnection: close\r\n\r\n", hostname)
}

// mainWithOptions is main with parsed command line options.
func mainWithOptions(options *Options) {
	logger := &log.Logger{Level: log.InfoLevel, Handler: newLogHandler(os.Stderr)}
	if options.Verbose {
		logger.Level = log.DebugLevel
	}
	log.Log = logger

	if options.Prometheus != "" {
		// export the channel metrics like a long running updater would
		promMux := http.NewServeMux()
		promMux.Handle("/metrics", promhttp.Handler())
		promSrv := &http.Server{Addr: options.Prometheus, Handler: promMux}
		go promSrv.ListenAndServe()
		logger.Infof("serving prometheus metrics at http://%s/metrics", options.Prometheus)
	}

	config := &netx.ChannelConfig{
		Hostname:   options.Hostname,
		Logger:     logger,
		Port:       options.Port,
		Profile:    options.Profile,
		TLSEnabled: !options.Plain,
		TLSVersion: options.TLSVersion,
	}
	if config.TLSEnabled {
		trust := newTrustStore(logger, options.CABundle)
		defer trust.Close()
		config.Trust = trust
		if options.UTLSHello != "" {
			config.Handshaker = netx.NewTLSHandshakerUTLS(logger, clientHelloID(options.UTLSHello))
		}
	}

	ch := netx.NewChannel(config)
	if err := ch.Open(context.Background()); err != nil {
		ch.Close()
		log.WithError(err).Fatal("cannot open the channel")
	}
	if options.Timeout > 0 {
		deadline := time.Now().Add(time.Duration(options.Timeout) * time.Second)
		if err := ch.SetDeadline(deadline); err != nil {
			log.WithError(err).Fatal("cannot set the I/O deadline")
		}
	}

	request := options.Request
	if request == "" {
		request = defaultRequest(options.Hostname)
	}
	if err := ch.Send([]byte(request)); err != nil {
		log.WithError(err).Fatal("cannot send the request")
	}

	totalRecv := 0
	buffer := make([]byte, 1<<13)
	for {
		count, err := ch.Recv(buffer)
		if err != nil {
			log.WithError(err).Fatal("cannot receive the response")
		}
		if count <= 0 {
			break
		}
		totalRecv += count
		os.Stdout.Write(buffer[:count])
	}

	if err := ch.Close(); err != nil {
		log.WithError(err).Fatal("cannot close the channel")
	}
	logger.Infof("dialog complete: sent %d bytes, received %d bytes", len(request), totalRecv)
}
