// Command statusfeed streams job-status records from a YAML file to a running
// sensor, the way a job-management agent would.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ahrav/jobsensor/internal/infra/codec"
	"github.com/ahrav/jobsensor/pkg/common/logger"
)

type options struct {
	addr     string
	file     string
	repeat   int
	interval time.Duration
	timeout  time.Duration
	logLevel string
}

func main() {
	var opts options
	fs := pflag.NewFlagSet("statusfeed", pflag.ExitOnError)
	fs.StringVarP(&opts.addr, "addr", "a", "127.0.0.1:9909", "sensor address")
	fs.StringVarP(&opts.file, "file", "f", "-", "YAML feed file, - for stdin")
	fs.IntVarP(&opts.repeat, "repeat", "n", 1, "number of times to send the feed")
	fs.DurationVar(&opts.interval, "interval", 0, "pause between records")
	fs.DurationVar(&opts.timeout, "timeout", 10*time.Second, "dial timeout")
	fs.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	_ = fs.Parse(os.Args[1:])

	log := logger.New(os.Stderr, logger.ParseLevel(opts.logLevel), "statusfeed", nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, opts); err != nil {
		log.Error(ctx, "statusfeed failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *logger.Logger, opts options) error {
	var in io.Reader = os.Stdin
	if opts.file != "-" {
		f, err := os.Open(opts.file)
		if err != nil {
			return fmt.Errorf("opening feed: %w", err)
		}
		defer f.Close()
		in = f
	}

	records, err := readFeed(in, time.Now())
	if err != nil {
		return err
	}

	d := net.Dialer{Timeout: opts.timeout}
	conn, err := d.DialContext(ctx, "tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("dialing sensor: %w", err)
	}
	defer conn.Close()
	stopClose := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stopClose()

	enc := codec.NewEncoder(conn)
	sent := 0
	for range max(opts.repeat, 1) {
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("sending record %s: %w", rec.ID, err)
			}
			sent++
			log.Debug(ctx, "Sent record", "job_id", rec.ID, "statuses", len(rec.StatusHistory))

			if opts.interval > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(opts.interval):
				}
			}
		}
	}

	log.Info(ctx, "Feed sent", "addr", opts.addr, "records", sent)
	return nil
}
