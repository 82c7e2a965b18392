// Command healthprobe checks a local in-vehicle digital twin server from
// inside a distroless container image, where no wget or curl exists for the
// HEALTHCHECK instruction. It verifies the HTTP side channel reports
// {"status":"UP"} and that the gRPC listener accepts connections.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	defaultHTTPPort = "5011"
	defaultGrpcPort = "5010"
	defaultTimeout  = 5 * time.Second
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type probeConfig struct {
	url      string
	grpcAddr string
	timeout  time.Duration
	quiet    bool
}

func main() {
	cfg := parseFlags(os.Args[1:])

	if err := runProbe(cfg); err != nil {
		if !cfg.quiet {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
}

func parseFlags(args []string) probeConfig {
	flags := flag.NewFlagSet("healthprobe", flag.ExitOnError)
	url := flags.String("url", "", "health endpoint to probe (default derived from SERVER_HTTPPORT)")
	grpcAddr := flags.String("grpc", "", `gRPC listener to dial, "off" to skip (default derived from SERVER_GRPCPORT)`)
	timeoutSeconds := flags.Int("timeout", int(defaultTimeout/time.Second), "probe timeout in seconds")
	quiet := flags.Bool("quiet", false, "suppress failure output")
	_ = flags.Parse(args)

	cfg := probeConfig{
		url:      *url,
		grpcAddr: *grpcAddr,
		timeout:  time.Duration(*timeoutSeconds) * time.Second,
		quiet:    *quiet,
	}
	if cfg.timeout <= 0 {
		cfg.timeout = defaultTimeout
	}
	if cfg.url == "" {
		cfg.url = defaultHealthURL()
	}
	switch cfg.grpcAddr {
	case "":
		cfg.grpcAddr = defaultGrpcAddr()
	case "off":
		cfg.grpcAddr = ""
	}
	return cfg
}

// The environment variable names match the viper keys server.httpPort,
// server.contextPath and server.grpcPort, so a container configured through
// the environment needs no extra probe configuration.
func defaultHealthURL() string {
	port := os.Getenv("SERVER_HTTPPORT")
	if port == "" {
		port = defaultHTTPPort
	}

	return fmt.Sprintf("http://127.0.0.1:%s%s/health", port, os.Getenv("SERVER_CONTEXTPATH"))
}

func defaultGrpcAddr() string {
	port := os.Getenv("SERVER_GRPCPORT")
	if port == "" {
		port = defaultGrpcPort
	}

	return "127.0.0.1:" + port
}

func runProbe(cfg probeConfig) error {
	if err := checkHealthEndpoint(cfg.url, cfg.timeout); err != nil {
		return err
	}

	if cfg.grpcAddr != "" {
		return checkGrpcListener(cfg.grpcAddr, cfg.timeout)
	}

	return nil
}

func checkHealthEndpoint(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}

	response, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HEALTHPROBE-HTTP-REQUESTFAILED: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("HEALTHPROBE-HTTP-UNHEALTHYSTATUS: %d", response.StatusCode)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := jsonAPI.NewDecoder(response.Body).Decode(&payload); err != nil {
		return fmt.Errorf("HEALTHPROBE-HTTP-BADPAYLOAD: %w", err)
	}
	if payload.Status != "UP" {
		return fmt.Errorf("HEALTHPROBE-HTTP-STATUSNOTUP: %q", payload.Status)
	}

	return nil
}

// A TCP dial is enough to tell a crashed gRPC listener from a live one
// without pulling grpc client machinery into the probe binary.
func checkGrpcListener(addr string, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("HEALTHPROBE-GRPC-DIALFAILED: %w", err)
	}

	return conn.Close()
}
