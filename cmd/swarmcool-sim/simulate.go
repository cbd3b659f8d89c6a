package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"swarmcool-sim/internal/admin"
	"swarmcool-sim/internal/config"
	"swarmcool-sim/internal/logging"
	"swarmcool-sim/internal/sim"
	"swarmcool-sim/internal/swarm"
)

var (
	simPrintOnly  bool
	simTUI        bool
	simAutoStart  bool
	simConfigPath string
	simSchemaPath string
	simPreset     string
	simLogFile    string
	simAdminAddr  string
	simTick       time.Duration
	simSeed       int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time swarm cooling simulator",
	Long:  "simulate starts a cooling swarm emitting per-agent telemetry, aggregate state, and engine events.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg *config.SimulationConfig
		var err error
		if simPreset != "" {
			cfg, err = config.Preset(simPreset)
		} else {
			cfg, err = config.Load(simConfigPath, simSchemaPath)
		}
		if err != nil {
			return err
		}

		clusterID := cfg.ClusterID
		if env := os.Getenv("CLUSTER_ID"); env != "" {
			clusterID = env
		}

		tickInterval := cfg.TickInterval.Std()
		if cmd.Flags().Changed("tick") {
			tickInterval = simTick
		}
		if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
			d, err := time.ParseDuration(envTick)
			if err != nil {
				return err
			}
			tickInterval = d
		}

		adminAddr := cfg.AdminAddr
		if cmd.Flags().Changed("admin-addr") {
			adminAddr = simAdminAddr
		}

		var rng *rand.Rand
		if simSeed != 0 {
			rng = rand.New(rand.NewSource(simSeed))
		}
		engine, err := swarm.NewEngine(cfg.Swarm, rng)
		if err != nil {
			return err
		}

		var tuiWriter *sim.TUIWriter
		if simTUI {
			tuiWriter = sim.NewTUIWriter(cfg.Swarm, clusterID, sim.Controls{
				Start:  engine.Start,
				Stop:   engine.Stop,
				Reset:  engine.Reset,
				Inject: engine.InjectFault,
				Repair: engine.Repair,
			})
			defer tuiWriter.Close()
		}

		writer, stateWriter, eventWriter, cleanup, err := newWriters(cfg.Swarm, clusterID, simPrintOnly, simLogFile, tuiWriter)
		if err != nil {
			return err
		}
		defer cleanup()

		log := logging.New()
		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		runID := uuid.NewString()
		runner := sim.NewRunner(clusterID, runID, engine, writer, stateWriter, eventWriter, tickInterval)

		if adminAddr != "" {
			srv := admin.NewServer(engine)
			go func() {
				log.Info("admin UI listening", "addr", adminAddr)
				if err := srv.Start(ctx, adminAddr); err != nil {
					log.Error("admin server failed", "err", err)
				}
			}()
			if tuiWriter != nil {
				tuiWriter.SetAdminStatus(true)
			}
		}

		if simAutoStart {
			engine.Start()
		}
		go runner.Run(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		cancel()
		log.Info("simulation stopped", "run_id", runID, "tick", engine.Tick())
		return nil
	},
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Render telemetry in an interactive terminal UI")
	simulateCmd.Flags().BoolVar(&simAutoStart, "auto-start", true, "Start ticking immediately instead of waiting for a start command")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/swarm.cue", "Path to CUE schema file")
	simulateCmd.Flags().StringVar(&simPreset, "preset", "", "Built-in scenario (prototype, vision); overrides --config")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export telemetry logs (JSONL)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin UI listen address; empty disables it")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 500*time.Millisecond, "Tick interval (e.g. 500ms, 2s)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed; 0 seeds from the clock")
}
