package loadgen

import (
	"fmt"
	"os"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// Run seeds the service, drives the staged ramp, and evaluates the
// latency and error-rate thresholds over the whole run. The service under
// test knows nothing about these thresholds; they are computed purely from
// observed results.
func Run(cfg *Config) error {
	stages, err := ParseStages(cfg.Stages)
	if err != nil {
		return fmt.Errorf("failed to parse stages: %w", err)
	}

	targeter, err := MixedTargeter(cfg)
	if err != nil {
		return err
	}

	if err := Seed(cfg); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	attacker := vegeta.NewAttacker(
		vegeta.KeepAlive(true),
		vegeta.Connections(cfg.Connections),
		vegeta.Timeout(cfg.Timeout),
		vegeta.MaxBody(0),
		vegeta.HTTP2(false),
	)

	var total vegeta.Metrics
	for i, stage := range stages {
		rate := vegeta.Rate{Freq: stage.Rate, Per: time.Second}
		name := fmt.Sprintf("stage-%d", i+1)
		fmt.Printf("Stage %d/%d: rate=%d/s duration=%s\n", i+1, len(stages), stage.Rate, stage.Duration)

		var stageMetrics vegeta.Metrics
		for res := range attacker.Attack(targeter, rate, stage.Duration, name) {
			stageMetrics.Add(res)
			total.Add(res)
		}
		stageMetrics.Close()

		fmt.Printf("  p95=%s p99=%s success=%.2f%%\n",
			stageMetrics.Latencies.P95,
			stageMetrics.Latencies.P99,
			stageMetrics.Success*100)
	}
	total.Close()

	reporter := vegeta.NewTextReporter(&total)
	if err := reporter.Report(os.Stdout); err != nil {
		return fmt.Errorf("failed to report: %w", err)
	}

	return checkThresholds(cfg, &total)
}

func checkThresholds(cfg *Config, m *vegeta.Metrics) error {
	var failures []string

	if m.Latencies.P95 > cfg.MaxP95 {
		failures = append(failures, fmt.Sprintf("p95 %s exceeds %s", m.Latencies.P95, cfg.MaxP95))
	}
	if m.Latencies.P99 > cfg.MaxP99 {
		failures = append(failures, fmt.Sprintf("p99 %s exceeds %s", m.Latencies.P99, cfg.MaxP99))
	}
	if errorRate := 1 - m.Success; errorRate > cfg.MaxErrorRate {
		failures = append(failures, fmt.Sprintf("error rate %.4f exceeds %.4f", errorRate, cfg.MaxErrorRate))
	}

	if len(failures) > 0 {
		return fmt.Errorf("thresholds breached: %v", failures)
	}

	fmt.Println("All thresholds passed")
	return nil
}
