// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package healthmonitorcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	. "github.com/majewsky/gg/option"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sapcc/go-bits/httpext"
	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"
	"github.com/sapcc/go-bits/osext"
	"github.com/spf13/cobra"

	"github.com/sapcc/compositor/internal/compositor"
	"github.com/sapcc/compositor/internal/signature"
)

var longDesc = strings.TrimSpace(`
Monitors the health of a compositor instance. This sends a signed composition
request for a minimal subgraph to the given URL at regular intervals. The health
check result will be published as a Prometheus metric.

The environment variable COMPOSITOR_SECRET must contain the same secret that
the target compositor instance uses.
`)

var (
	listenAddress string
	targetURL     string
)

var healthmonitorResultGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "compositor_healthmonitor_result",
		Help: "Result from the compositor healthmonitor check.",
	},
)

// AddCommandTo mounts this command into the command hierarchy.
func AddCommandTo(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "healthmonitor",
		Short: "Monitors the health of a compositor instance.",
		Long:  longDesc,
		Args:  cobra.NoArgs,
		Run:   run,
	}
	cmd.PersistentFlags().StringVar(&listenAddress, "listen", ":8080", "Listen address for Prometheus metrics endpoint")
	cmd.PersistentFlags().StringVar(&targetURL, "url", "http://localhost:3000/api/compose", "URL of the compose endpoint that shall be monitored")
	parent.AddCommand(cmd)
}

// The canary request contains a single subgraph that composes trivially.
var canarySubgraphs = []compositor.SubgraphInput{{
	Name: "healthmonitor",
	URL:  "http://healthmonitor.invalid/graphql",
	SDL:  "type Query { healthmonitor: Boolean }",
}}

type healthMonitorJob struct {
	TargetURL string
	Secret    []byte

	LastResultLock sync.RWMutex
	LastResult     Option[bool] // None during initialization, Some indicates result of last healthcheck
}

func run(cmd *cobra.Command, args []string) {
	compositor.SetTaskName("healthmonitor")
	prometheus.MustRegister(healthmonitorResultGauge)

	job := &healthMonitorJob{
		TargetURL: targetURL,
		Secret:    []byte(osext.MustGetenv("COMPOSITOR_SECRET")),
	}

	// expose metrics endpoint
	mux := http.NewServeMux()
	mux.HandleFunc("/healthcheck", job.ReportHealthcheckResult)
	mux.Handle("/metrics", promhttp.Handler())
	ctx := httpext.ContextWithSIGINT(cmd.Context(), 10*time.Second)
	go func() {
		logg.Info("listening on %s...", listenAddress)
		must.Succeed(httpext.ListenAndServeContext(ctx, listenAddress, mux))
	}()

	// enter long-running check loop
	job.Check(ctx) // once immediately to initialize the metric
	tick := time.Tick(30 * time.Second)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			job.Check(ctx)
		}
	}
}

// Check sends the canary request and emits the compositor_healthmonitor_result metric accordingly.
func (j *healthMonitorJob) Check(ctx context.Context) {
	err := j.sendCanaryRequest(ctx)
	if err == nil {
		j.recordHealthcheckResult(true)
	} else {
		j.recordHealthcheckResult(false)
		logg.Error("healthcheck against %s failed: %s", j.TargetURL, err.Error())
	}
}

func (j *healthMonitorJob) sendCanaryRequest(ctx context.Context) error {
	reqBody, err := json.Marshal(canarySubgraphs)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.TargetURL, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.HeaderName, signature.Sign(reqBody, j.Secret))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expected 200 OK, but got %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var result compositor.CompositionResult
	err = json.Unmarshal(respBody, &result)
	if err != nil {
		return fmt.Errorf("cannot decode response body: %w", err)
	}
	switch outcome := result.Outcome.(type) {
	case compositor.CompositionSuccess:
		if outcome.Supergraph == "" || outcome.SDL == "" {
			return errors.New("composition succeeded, but returned empty schemas")
		}
		return nil
	case compositor.CompositionFailure:
		msgs := make([]string, len(outcome.Errors))
		for idx, ce := range outcome.Errors {
			msgs[idx] = fmt.Sprintf("[%s] %s", ce.Source, ce.Message)
		}
		return fmt.Errorf("composition failed: %s", strings.Join(msgs, "; "))
	default:
		return fmt.Errorf("unexpected result: %s", string(respBody))
	}
}

func (j *healthMonitorJob) recordHealthcheckResult(ok bool) {
	if ok {
		healthmonitorResultGauge.Set(1)
	} else {
		healthmonitorResultGauge.Set(0)
	}
	j.LastResultLock.Lock()
	j.LastResult = Some(ok)
	j.LastResultLock.Unlock()
}

// ReportHealthcheckResult provides the GET /healthcheck endpoint.
func (j *healthMonitorJob) ReportHealthcheckResult(w http.ResponseWriter, r *http.Request) {
	j.LastResultLock.RLock()
	lastResult := j.LastResult
	j.LastResultLock.RUnlock()

	ok, known := lastResult.Unpack()
	switch {
	case !known:
		http.Error(w, "still starting up", http.StatusServiceUnavailable)
	case ok:
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "healthcheck failed", http.StatusInternalServerError)
	}
}
