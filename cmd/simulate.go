package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetops/infra/logger"
	"github.com/kilianp07/fleetops/simulator"
)

var simCfg simulator.Config

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Send synthetic telemetry to the API or the MQTT broker",
	RunE:  runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simCfg.Target, "target", "http", "delivery target: http or mqtt")
	f.StringVar(&simCfg.APIURL, "api-url", "http://localhost:8080", "API base URL")
	f.StringVar(&simCfg.Broker, "broker", "tcp://localhost:1883", "MQTT broker URL")
	f.StringVar(&simCfg.Topic, "topic", "fleet/vehicle/%s/telemetry", "MQTT topic template")
	f.StringSliceVar(&simCfg.Vehicles, "vehicles", nil, "vehicle ids (default veh_1..veh_4)")
	f.IntVar(&simCfg.Rate, "rate", 10, "events per second")
	f.DurationVar(&simCfg.Duration, "duration", 0, "run time (default 1m)")
	f.IntVar(&simCfg.BatchSize, "batch-size", 50, "events per bulk request")
	f.Int64Var(&simCfg.Seed, "seed", 0, "random seed")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := simCfg
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.New("simulator")

	var pub simulator.Publisher
	switch cfg.Target {
	case "mqtt":
		mp, err := simulator.NewMQTTPublisher(cfg.Broker, cfg.ClientID, cfg.Topic)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer mp.Close()
		pub = mp
	default:
		pub = simulator.NewHTTPPublisher(cfg.APIURL)
	}

	log.Infof("simulating %d vehicles, %d events/s for %s via %s", len(cfg.Vehicles), cfg.Rate, cfg.Duration, cfg.Target)
	st := simulator.Run(ctx, cfg, simulator.NewGenerator(cfg.Vehicles, cfg.Seed), pub, log, 0)
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "events=%d batches=%d failed=%d duration=%s rate=%.2f/s\n",
		st.Events, st.Batches, st.Failed, st.Elapsed.Round(1e6), st.Rate())
	return err
}
