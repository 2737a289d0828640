package benchmark

import (
	"io"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"go.uber.org/zap"

	"example.com/tinyntp/base/timebase"
	"example.com/tinyntp/base/zaplog"

	"example.com/tinyntp/core/client"
)

// Result summarizes a benchmark run. Round trip times are in ticks
// (milliseconds).
type Result struct {
	Requests int
	Failures int
	Elapsed  time.Duration
	Histo    *hdrhistogram.Histogram
}

// countingTransport counts the requests actually handed to the network.
type countingTransport struct {
	client.Transport
	sent int
}

func (t *countingTransport) EndSend() error {
	err := t.Transport.EndSend()
	if err == nil {
		t.sent++
	}
	return err
}

// Run synchronizes once and then performs numRequest refreshes against
// host:port, recording the round trip time of every response. Requests
// counts every datagram sent, including the second exchange of each
// (re)start; Failures counts failed Start and Refresh calls.
func Run(log *zap.Logger, transport client.Transport, ticks timebase.TickSource,
	host string, port int, timeoutMs uint32, numRequest int) Result {
	log = zaplog.Or(log)
	hg := hdrhistogram.New(1, 60000, 3)
	ct := &countingTransport{Transport: transport}
	c := client.New(ct, ticks,
		client.WithLogger(log),
		client.WithServer(host, port),
		client.WithTimeout(timeoutMs),
		client.WithHistogram(hg),
	)
	defer c.Teardown()

	res := Result{Histo: hg}
	t0 := time.Now()
	err := c.Start()
	if err != nil {
		log.Info("failed to synchronize", zap.Error(err))
		res.Failures++
	}
	for j := numRequest; j > 0; j-- {
		err = c.Refresh()
		if err != nil {
			log.Info("failed to refresh", zap.Error(err))
			res.Failures++
		}
	}
	res.Elapsed = time.Since(t0)
	res.Requests = ct.sent
	return res
}

func (r Result) Print(w io.Writer) {
	r.Histo.PercentilesPrint(w, 1, 1.0)
}
