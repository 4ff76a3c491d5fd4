// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// assetprobe resolves one asset against the configured upstream and
// optionally runs the headless viewer on it, printing the outcome as JSON.
//
//	assetprobe --id 123 [--group g] [--encrypted --ref url] [--test]
//	           [--legacy] [--viewer] [--thumbnail] [--out result.json]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/renameio/v2"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/ManuGH/artstor-viewer/internal/artstor"
	"github.com/ManuGH/artstor-viewer/internal/asset"
	"github.com/ManuGH/artstor-viewer/internal/config"
	xglog "github.com/ManuGH/artstor-viewer/internal/log"
	"github.com/ManuGH/artstor-viewer/internal/resolver"
	"github.com/ManuGH/artstor-viewer/internal/version"
	"github.com/ManuGH/artstor-viewer/internal/viewer"
	"github.com/ManuGH/artstor-viewer/internal/viewer/headless"
)

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type options struct {
	configPath string
	id         string
	req        resolver.Options
	test       bool
	runViewer  bool
	thumbnail  bool
	out        string
	timeout    time.Duration
	logLevel   string
}

func parseFlags(args []string, stderr io.Writer) (options, bool, error) {
	var o options
	fs := pflag.NewFlagSet("assetprobe", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&o.configPath, "config", "c", "", "path to config file (YAML)")
	fs.StringVar(&o.id, "id", "", "asset identifier or encrypted token")
	fs.StringVar(&o.req.GroupID, "group", "", "group id for the group-scoped lookup")
	fs.BoolVar(&o.req.Encrypted, "encrypted", false, "treat --id as an encrypted token")
	fs.StringVar(&o.req.Referrer, "ref", "", "referrer sent with encrypted lookups")
	fs.BoolVar(&o.req.Legacy, "legacy", false, "send the legacy flag upstream")
	fs.BoolVar(&o.test, "test", false, "use the staging hosts")
	fs.BoolVar(&o.runViewer, "viewer", false, "run the headless viewer on the resolved record")
	fs.BoolVar(&o.thumbnail, "thumbnail", false, "thumbnail-only viewer (implies --viewer)")
	fs.StringVarP(&o.out, "out", "o", "", "write the JSON result to this file instead of stdout")
	fs.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall deadline")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return o, true, nil
		}
		return o, false, &exitError{code: 2, err: err}
	}
	if *showVersion {
		fmt.Fprintln(stderr, version.String())
		return o, true, nil
	}
	o.id = strings.TrimSpace(o.id)
	if o.id == "" {
		return o, false, &exitError{code: 2, err: errors.New("--id is required")}
	}
	if o.thumbnail {
		o.runViewer = true
	}
	return o, false, nil
}

// result is the probe output.
type result struct {
	AssetID string         `json:"asset_id"`
	Record  *asset.Record  `json:"record,omitempty"`
	Viewer  *viewerOutcome `json:"viewer,omitempty"`
	Error   string         `json:"error,omitempty"`
	Kind    string         `json:"error_kind,omitempty"`
	Elapsed time.Duration  `json:"elapsed_ns"`
}

type viewerOutcome struct {
	State        viewer.State       `json:"state"`
	Backend      viewer.BackendKind `json:"backend,omitempty"`
	PageCount    int                `json:"page_count"`
	ThumbnailURL string             `json:"thumbnail_url,omitempty"`
	Settled      bool               `json:"settled"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, done, err := parseFlags(args, stderr)
	if err != nil || done {
		return err
	}

	xglog.Configure(xglog.Config{Level: o.logLevel, Output: stderr, Service: "assetprobe", Version: version.Version})

	cfg, err := config.NewLoader(o.configPath, version.Version).Load()
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	if o.test {
		cfg.TestEnvironment = true
	}
	if !o.req.Legacy {
		o.req.Legacy = cfg.Legacy
	}

	client := artstor.New(cfg.Hosts(), artstor.Options{
		Timeout:          cfg.Upstream.Timeout,
		RateLimit:        rate.Limit(cfg.Upstream.RateLimit),
		RateLimitBurst:   cfg.Upstream.RateBurst,
		BreakerThreshold: cfg.Upstream.BreakerThreshold,
		BreakerReset:     cfg.Upstream.BreakerReset,
		UserAgent:        cfg.Upstream.UserAgent,
	})
	res := resolver.New(client, cfg.Hosts())
	factory := headless.NewFactory(client)
	defer factory.Wait()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	out := probe(ctx, o, cfg.Viewer, res, factory)
	if err := writeResult(o.out, stdout, out); err != nil {
		return err
	}
	if out.Error != "" {
		return &exitError{code: 1, err: errors.New(out.Error)}
	}
	return nil
}

// probe resolves the asset and, when asked, drives a viewer until it settles.
func probe(ctx context.Context, o options, vcfg config.ViewerConfig, res viewer.AssetResolver, factory *headless.Factory) result {
	start := time.Now()
	out := result{AssetID: o.id}

	rec, err := res.Resolve(ctx, o.id, o.req)
	if err != nil {
		out.Error, out.Kind = err.Error(), errorKind(err)
		out.Elapsed = time.Since(start)
		return out
	}
	out.Record = rec

	if o.runViewer {
		v := viewer.New(viewer.Config{
			Resolver:             res,
			Backends:             factory,
			Prober:               factory,
			ThumbnailOnly:        o.thumbnail,
			DeepZoomTimeout:      vcfg.DeepZoomTimeout,
			PanoramaProbeTimeout: vcfg.PanoramaProbeTimeout,
			PanoramaCheckDelay:   vcfg.PanoramaCheckDelay,
		})
		v.SetAsset(o.id, o.req)
		snap, err := v.AwaitSettled(ctx)
		v.Close()
		switch {
		case err != nil:
			out.Error, out.Kind = err.Error(), errorKind(err)
		case snap.Err != nil:
			out.Error, out.Kind = snap.Err.Error(), errorKind(snap.Err)
		default:
			out.Viewer = &viewerOutcome{
				State:        snap.State,
				Backend:      snap.Backend,
				PageCount:    snap.PageCount,
				ThumbnailURL: snap.ThumbnailURL,
				Settled:      snap.Settled,
			}
		}
	}
	out.Elapsed = time.Since(start)
	return out
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, resolver.ErrNotFound):
		return "not_found"
	case errors.Is(err, resolver.ErrAuthorization):
		return "not_authorized"
	case errors.Is(err, resolver.ErrNetwork):
		return "network"
	case errors.Is(err, asset.ErrValidation):
		return "validation"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "internal"
	}
}

// writeResult writes JSON to path atomically, or to stdout when path is empty.
func writeResult(path string, stdout io.Writer, r result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	data = append(data, '\n')
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
