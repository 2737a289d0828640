// Tiny SNTP client

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	beevikntp "github.com/beevik/ntp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/tinyntp/base/timemath"
	"example.com/tinyntp/base/zaplog"

	"example.com/tinyntp/benchmark"

	"example.com/tinyntp/core/client"
	"example.com/tinyntp/core/config"
	"example.com/tinyntp/core/server"

	"example.com/tinyntp/driver/clock"

	"example.com/tinyntp/net/gopacketntp"
	"example.com/tinyntp/net/ntp"
	"example.com/tinyntp/net/udp"
)

var (
	log *zap.Logger

	errNoReferenceSamples = errors.New("no valid reference samples")
)

func initLogger(verbose bool) {
	c := zap.NewDevelopmentConfig()
	c.DisableStacktrace = true
	c.EncoderConfig.EncodeCaller = func(
		caller zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		// See https://github.com/scionproto/scion/blob/master/pkg/log/log.go
		p := caller.TrimmedPath()
		if len(p) > 30 {
			p = "..." + p[len(p)-27:]
		}
		enc.AppendString(fmt.Sprintf("%30s", p))
	}
	if !verbose {
		c.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var err error
	log, err = c.Build()
	if err != nil {
		panic(err)
	}
	zaplog.SetLogger(log)
}

func runMonitor(log *zap.Logger, addr string) {
	http.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(addr, nil)
	log.Fatal("failed to serve metrics", zap.Error(err))
}

func loadConfig(configFile string) config.ClientConfig {
	if configFile == "" {
		return config.Default()
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	return cfg
}

func newTransport(cfg config.ClientConfig) *udp.Transport {
	t := &udp.Transport{Log: log}
	if cfg.DSCP != nil {
		t.DSCP = *cfg.DSCP
	}
	return t
}

func newClient(cfg config.ClientConfig, transport client.Transport, opts ...client.Option) *client.Client {
	opts = append(opts,
		client.WithLogger(log),
		client.WithServer(cfg.Server, cfg.Port),
		client.WithLocalPort(cfg.LocalPort),
		client.WithTimeout(cfg.TimeoutMs),
	)
	if cfg.ValidateResponses {
		opts = append(opts, client.WithResponseValidation())
	}
	return client.New(transport, &clock.SystemTicks{Log: log}, opts...)
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func runClient(configFile string) {
	cfg := loadConfig(configFile)

	if cfg.MetricsAddr != "" {
		go runMonitor(log, cfg.MetricsAddr)
	}

	c := newClient(cfg, newTransport(cfg), client.WithRegisterer(prometheus.DefaultRegisterer))
	defer c.Teardown()

	err := c.Start()
	if err != nil {
		log.Fatal("failed to initialize NTP client", zap.Error(err))
	}
	c.SetTimezoneOffsetSeconds(cfg.TimezoneOffsetSeconds)

	refresh := time.NewTicker(cfg.RefreshInterval.Duration)
	defer refresh.Stop()
	display := time.NewTicker(time.Second)
	defer display.Stop()
	for {
		select {
		case <-refresh.C:
			err := c.Refresh()
			if err != nil {
				log.Info("failed to refresh time", zap.Error(err))
			}
		case <-display.C:
			fmt.Printf("Current time: %d / Formatted time: %s\n",
				c.NowSeconds(), formatTime(c.Time()))
		}
	}
}

// recordingTransport keeps a copy of the last datagram read through it.
type recordingTransport struct {
	client.Transport
	last []byte
}

func (t *recordingTransport) PollForPacket() int {
	n := t.Transport.PollForPacket()
	if n != 0 {
		t.last = t.last[:0]
	}
	return n
}

func (t *recordingTransport) Read(b []byte) int {
	n := t.Transport.Read(b)
	t.last = append(t.last, b[:n]...)
	return n
}

// lastResponse returns the last datagram received by a client built on a
// recordingTransport.
func lastResponse(c *client.Client) []byte {
	rt, ok := c.Transport().(*recordingTransport)
	if !ok {
		return nil
	}
	return rt.last
}

func dumpLastResponse(c *client.Client) {
	b := lastResponse(c)
	if len(b) == 0 {
		return
	}
	fmt.Print(gopacketntp.Dump(b))
	err := gopacketntp.CrossCheck(b)
	if err != nil {
		log.Info("response decoding differs between codec and dissector", zap.Error(err))
	}
}

func runTool(cfg config.ClientConfig, dump bool, samples int) {
	c := newClient(cfg, &recordingTransport{Transport: newTransport(cfg)})
	defer c.Teardown()

	err := c.Start()
	if err != nil {
		log.Fatal("failed to synchronize",
			zap.String("server", cfg.Server), zap.Int("port", cfg.Port), zap.Error(err))
	}
	c.SetTimezoneOffsetSeconds(cfg.TimezoneOffsetSeconds)
	fmt.Printf("%s (%d)\n", formatTime(c.Time()), c.NowMillis())

	if dump {
		dumpLastResponse(c)
	}

	if samples > 0 {
		devs, err := compareWithReference(c, cfg, samples)
		if err != nil {
			log.Fatal("failed to query reference", zap.Error(err))
		}
		fmt.Printf("virtual clock deviation: median %v, fault tolerant midpoint %v, spread %v\n",
			timemath.Median(devs), timemath.FaultTolerantMidpoint(devs), timemath.Spread(devs))
	}
}

// compareWithReference queries the configured server samples times with an
// independent SNTP implementation and returns the deviation of the virtual
// clock from each reference reading.
func compareWithReference(c *client.Client, cfg config.ClientConfig, samples int) ([]time.Duration, error) {
	tz := time.Duration(cfg.TimezoneOffsetSeconds) * time.Second
	var devs []time.Duration
	for i := 0; i < samples; i++ {
		resp, err := beevikntp.QueryWithOptions(cfg.Server, beevikntp.QueryOptions{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
			Port:    cfg.Port,
		})
		if err != nil {
			return nil, err
		}
		err = resp.Validate()
		if err != nil {
			log.Info("reference response failed validation", zap.Error(err))
			continue
		}
		ref := time.Now().Add(resp.ClockOffset).Add(tz)
		dev := c.Time().Sub(ref)
		log.Debug("reference sample",
			zap.Duration("offset", resp.ClockOffset),
			zap.Duration("rtt", resp.RTT),
			zap.Duration("deviation", dev))
		devs = append(devs, dev)
	}
	if len(devs) == 0 {
		return nil, errNoReferenceSamples
	}
	return devs, nil
}

func runServer(localAddr string, numGoroutine int, metricsAddr string) {
	ctx := context.Background()

	host, portStr, err := net.SplitHostPort(localAddr)
	if err != nil {
		log.Fatal("failed to parse local address", zap.Error(err))
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Fatal("failed to parse local port", zap.Error(err))
	}
	localHost := &net.UDPAddr{IP: net.ParseIP(host), Port: port}

	if metricsAddr != "" {
		go runMonitor(log, metricsAddr)
	}

	s := &server.IPServer{
		Log:          log,
		Registerer:   prometheus.DefaultRegisterer,
		NumGoroutine: numGoroutine,
	}
	_, err = s.Start(ctx, localHost)
	if err != nil {
		log.Fatal("failed to listen for packets", zap.Error(err))
	}
	select {}
}

func runBenchmark(cfg config.ClientConfig, numRequest int) {
	res := benchmark.Run(log, newTransport(cfg), &clock.SystemTicks{Log: log},
		cfg.Server, cfg.Port, cfg.TimeoutMs, numRequest)
	res.Print(os.Stdout)
	log.Info("benchmark finished",
		zap.Int("requests", res.Requests),
		zap.Int("failures", res.Failures),
		zap.Duration("elapsed", res.Elapsed))
}

func exitWithUsage() {
	fmt.Println("usage: tinyntp client [-verbose] [-config <file>]")
	fmt.Println("       tinyntp tool [-verbose] [-config <file>] [-server <host>] [-port <port>] [-timeout <ms>] [-tz <seconds>] [-dump] [-compare <n>]")
	fmt.Println("       tinyntp server [-verbose] [-local <host:port>] [-goroutines <n>] [-metrics <host:port>]")
	fmt.Println("       tinyntp benchmark [-verbose] [-config <file>] [-server <host>] [-port <port>] [-n <requests>]")
	os.Exit(1)
}

func main() {
	var (
		verbose      bool
		configFile   string
		serverHost   string
		serverPort   int
		timeoutMs    uint
		tzOffset     int64
		dump         bool
		samples      int
		localAddr    string
		numGoroutine int
		metricsAddr  string
		numRequest   int
	)

	clientFlags := flag.NewFlagSet("client", flag.ExitOnError)
	toolFlags := flag.NewFlagSet("tool", flag.ExitOnError)
	serverFlags := flag.NewFlagSet("server", flag.ExitOnError)
	benchmarkFlags := flag.NewFlagSet("benchmark", flag.ExitOnError)

	clientFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	clientFlags.StringVar(&configFile, "config", "", "Config file")

	toolFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	toolFlags.StringVar(&configFile, "config", "", "Config file")
	toolFlags.StringVar(&serverHost, "server", "", "Server host")
	toolFlags.IntVar(&serverPort, "port", 0, "Server port")
	toolFlags.UintVar(&timeoutMs, "timeout", 0, "Timeout in milliseconds")
	toolFlags.Int64Var(&tzOffset, "tz", 0, "Timezone offset in seconds")
	toolFlags.BoolVar(&dump, "dump", false, "Dump the last response")
	toolFlags.IntVar(&samples, "compare", 0, "Number of reference queries to compare against")

	serverFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	serverFlags.StringVar(&localAddr, "local", net.JoinHostPort("", strconv.Itoa(ntp.ServerPort)), "Local address")
	serverFlags.IntVar(&numGoroutine, "goroutines", 8, "Number of serving goroutines")
	serverFlags.StringVar(&metricsAddr, "metrics", "", "Metrics address")

	benchmarkFlags.BoolVar(&verbose, "verbose", false, "Verbose logging")
	benchmarkFlags.StringVar(&configFile, "config", "", "Config file")
	benchmarkFlags.StringVar(&serverHost, "server", "", "Server host")
	benchmarkFlags.IntVar(&serverPort, "port", 0, "Server port")
	benchmarkFlags.IntVar(&numRequest, "n", 100, "Number of requests")

	if len(os.Args) < 2 {
		exitWithUsage()
	}

	override := func(cfg *config.ClientConfig) {
		if serverHost != "" {
			cfg.Server = serverHost
		}
		if serverPort != 0 {
			cfg.Port = serverPort
		}
		if timeoutMs != 0 {
			cfg.TimeoutMs = uint32(timeoutMs)
		}
		if tzOffset != 0 {
			cfg.TimezoneOffsetSeconds = tzOffset
		}
		err := cfg.Validate()
		if err != nil {
			log.Fatal("invalid configuration", zap.Error(err))
		}
	}

	switch os.Args[1] {
	case clientFlags.Name():
		err := clientFlags.Parse(os.Args[2:])
		if err != nil || clientFlags.NArg() != 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		runClient(configFile)
	case toolFlags.Name():
		err := toolFlags.Parse(os.Args[2:])
		if err != nil || toolFlags.NArg() != 0 {
			exitWithUsage()
		}
		if samples < 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		cfg := loadConfig(configFile)
		override(&cfg)
		runTool(cfg, dump, samples)
	case serverFlags.Name():
		err := serverFlags.Parse(os.Args[2:])
		if err != nil || serverFlags.NArg() != 0 {
			exitWithUsage()
		}
		if numGoroutine < 1 {
			exitWithUsage()
		}
		initLogger(verbose)
		runServer(localAddr, numGoroutine, metricsAddr)
	case benchmarkFlags.Name():
		err := benchmarkFlags.Parse(os.Args[2:])
		if err != nil || benchmarkFlags.NArg() != 0 {
			exitWithUsage()
		}
		if numRequest < 0 {
			exitWithUsage()
		}
		initLogger(verbose)
		cfg := loadConfig(configFile)
		override(&cfg)
		runBenchmark(cfg, numRequest)
	default:
		exitWithUsage()
	}
}
