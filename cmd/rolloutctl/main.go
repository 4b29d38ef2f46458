package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"fleet-rollout-api/internal/rollout"
)

const operatorKeyHeader = "X-Operator-Key"

// Exit codes for scripting: 2 validation, 3 not found, 4 state
// conflict, 5 transport/other.
const (
	exitValidation = 2
	exitNotFound   = 3
	exitConflict   = 4
	exitOther      = 5
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitValidation)
	}
	switch os.Args[1] {
	case "create":
		create(os.Args[2:])
	case "start", "pause", "resume", "cancel":
		control(os.Args[1], os.Args[2:])
	case "status":
		status(os.Args[2:])
	case "list":
		list(os.Args[2:])
	default:
		usage()
		os.Exit(exitValidation)
	}
}

func usage() {
	fmt.Println(`rolloutctl create --artifact <id> --strategy <name> (--devices a,b,c | --filter k=v,...) --concurrency N [options]
rolloutctl start|pause|resume|cancel <rollout-id>
rolloutctl status <rollout-id>
rolloutctl list

Common flags: [--url=http://localhost:8080] [--key=<operator key>]
Strategy options: --batch-size N (rolling), --canary-pct 0.1 --canary-seed 42 (canary), --steps 0.1,0.25,0.5 (gradual)
Creation options: --threshold 0.1 --no-auto-rollback --override-approval-gate`)
}

func create(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	url := fs.String("url", getenvCLI("RO_ADDR", "http://localhost:8080"), "rollout service url")
	key := fs.String("key", getenvCLI("RO_OPERATOR_KEY", ""), "operator api key")
	artifact := fs.String("artifact", "", "firmware artifact id")
	strategy := fs.String("strategy", "", "rollout strategy")
	devices := fs.String("devices", "", "comma separated device ids")
	filter := fs.String("filter", "", "comma separated key=value selector")
	concurrency := fs.Int("concurrency", 0, "max in-flight updates")
	batchSize := fs.Int("batch-size", 0, "rolling batch size")
	canaryPct := fs.Float64("canary-pct", 0, "canary fraction in (0,1)")
	canarySeed := fs.Int64("canary-seed", 0, "canary sampling seed")
	steps := fs.String("steps", "", "comma separated gradual steps")
	threshold := fs.Float64("threshold", 0, "failure rate threshold in (0,1]")
	noAutoRollback := fs.Bool("no-auto-rollback", false, "halt instead of rolling back on threshold breach")
	override := fs.Bool("override-approval-gate", false, "allow non-stable firmware")
	_ = fs.Parse(args)

	if strings.TrimSpace(*artifact) == "" || strings.TrimSpace(*strategy) == "" {
		fmt.Fprintln(os.Stderr, "artifact and strategy are required")
		os.Exit(exitValidation)
	}

	req := rollout.CreateRequest{
		ArtifactID:           *artifact,
		Strategy:             *strategy,
		Devices:              splitList(*devices),
		Filter:               parseFilter(*filter),
		ConcurrencyLimit:     *concurrency,
		OverrideApprovalGate: *override,
		FailureRateThreshold: *threshold,
		Params: rollout.StrategyParams{
			BatchSize:        *batchSize,
			CanaryPercentage: *canaryPct,
			CanarySeed:       *canarySeed,
			GradualSteps:     parseSteps(*steps),
		},
	}
	if *noAutoRollback {
		f := false
		req.AutoRollback = &f
	}

	var report rollout.StatusReport
	doJSON(http.MethodPost, *url, "/api/rollouts", *key, req, &report)
	fmt.Printf("rollout_id=%s status=%s waves=%d devices=%d\n",
		report.ID, report.Status, report.WaveCount, report.TotalDevices)
}

func control(action string, args []string) {
	fs := flag.NewFlagSet(action, flag.ExitOnError)
	url := fs.String("url", getenvCLI("RO_ADDR", "http://localhost:8080"), "rollout service url")
	key := fs.String("key", getenvCLI("RO_OPERATOR_KEY", ""), "operator api key")
	_ = fs.Parse(args)

	id := fs.Arg(0)
	if id == "" {
		fmt.Fprintln(os.Stderr, "rollout id is required")
		os.Exit(exitValidation)
	}

	var report rollout.StatusReport
	doJSON(http.MethodPost, *url, "/api/rollouts/"+id+"/"+action, *key, nil, &report)
	fmt.Printf("rollout_id=%s status=%s wave=%d/%d\n",
		report.ID, report.Status, report.WaveIndex, report.WaveCount)
}

func status(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	url := fs.String("url", getenvCLI("RO_ADDR", "http://localhost:8080"), "rollout service url")
	key := fs.String("key", getenvCLI("RO_OPERATOR_KEY", ""), "operator api key")
	_ = fs.Parse(args)

	id := fs.Arg(0)
	if id == "" {
		fmt.Fprintln(os.Stderr, "rollout id is required")
		os.Exit(exitValidation)
	}

	var report rollout.StatusReport
	doJSON(http.MethodGet, *url, "/api/rollouts/"+id, *key, nil, &report)

	fmt.Printf("rollout_id=%s version=%s strategy=%s status=%s wave=%d/%d\n",
		report.ID, report.FirmwareVersion, report.Strategy, report.Status,
		report.WaveIndex, report.WaveCount)
	fmt.Printf("devices=%d succeeded=%d failed=%d skipped=%d\n",
		report.TotalDevices, report.Counters.Succeeded, report.Counters.Failed, report.Counters.Skipped)
	for _, wv := range report.Waves {
		fmt.Printf("  wave=%d total=%d succeeded=%d failed=%d skipped=%d failure_rate=%.3f gate=%s\n",
			wv.WaveIndex, wv.Total, wv.Succeeded, wv.Failed, wv.Skipped, wv.FailureRate, wv.GateDecision)
	}
}

func list(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	url := fs.String("url", getenvCLI("RO_ADDR", "http://localhost:8080"), "rollout service url")
	key := fs.String("key", getenvCLI("RO_OPERATOR_KEY", ""), "operator api key")
	_ = fs.Parse(args)

	var reports []rollout.StatusReport
	doJSON(http.MethodGet, *url, "/api/rollouts", *key, nil, &reports)
	for _, r := range reports {
		fmt.Printf("rollout_id=%s version=%s strategy=%s status=%s wave=%d/%d succeeded=%d failed=%d\n",
			r.ID, r.FirmwareVersion, r.Strategy, r.Status, r.WaveIndex, r.WaveCount,
			r.Counters.Succeeded, r.Counters.Failed)
	}
}

func doJSON(method, base, path, key string, body any, out any) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal payload: %v\n", err)
			os.Exit(exitOther)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := strings.TrimRight(base, "/") + path
	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		os.Exit(exitOther)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(operatorKeyHeader, key)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		os.Exit(exitOther)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		fmt.Fprintf(os.Stderr, "status=%s body=%s\n", resp.Status, strings.TrimSpace(string(msg)))
		switch resp.StatusCode {
		case http.StatusBadRequest:
			os.Exit(exitValidation)
		case http.StatusNotFound:
			os.Exit(exitNotFound)
		case http.StatusConflict:
			os.Exit(exitConflict)
		default:
			os.Exit(exitOther)
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			fmt.Fprintf(os.Stderr, "invalid response: %v\n", err)
			os.Exit(exitOther)
		}
	}
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseFilter(raw string) map[string]string {
	pairs := splitList(raw)
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if ok && k != "" {
			out[k] = v
		}
	}
	return out
}

func parseSteps(raw string) []float64 {
	parts := splitList(raw)
	if len(parts) == 0 {
		return nil
	}
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		var f float64
		if _, err := fmt.Sscanf(p, "%g", &f); err == nil {
			out = append(out, f)
		}
	}
	return out
}

func getenvCLI(name, fallback string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return os.Getenv(name)
	}
	return fallback
}
