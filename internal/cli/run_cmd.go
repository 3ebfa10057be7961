package cli

import (
	"log"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/corosim/corosim/registry"
	"github.com/corosim/corosim/sim"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.yaml>",
	Short: "Run a scenario to completion",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SilenceUsage = true

		sc, err := LoadScenario(args[0])
		if err != nil {
			log.Fatalf("cosim run: %v", err)
		}

		runID := xid.New().String()
		runLog := logrus.WithField("run", runID)

		topo, err := sc.BuildTopology()
		if err != nil {
			runLog.Fatalf("cosim run: %v", err)
		}

		reg := registry.New()
		sched := sim.New()

		if err := sc.SpawnAgents(sched, reg, topo); err != nil {
			runLog.Fatalf("cosim run: %v", err)
		}

		deadline := sim.TimePoint(sc.EndTimeMS)
		runLog.WithFields(logrus.Fields{
			"end_time_ms": sc.EndTimeMS,
			"agents":      len(sc.Agents),
			"real_time":   sc.RealTime,
		}).Info("cosim: starting run")

		if sc.RealTime {
			sched.RunRealTimeUntil(deadline, sc.RealTimeRate)
		} else {
			sched.RunUntil(deadline)
		}

		runLog.WithField("final_time_ms", int64(sched.Now())).Info("cosim: run complete")
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
