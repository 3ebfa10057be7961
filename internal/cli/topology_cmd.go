package cli

import (
	"fmt"
	"log"
	"sort"

	"github.com/spf13/cobra"
)

var topologyCmd = &cobra.Command{
	Use:   "topology <scenario.yaml>",
	Short: "Load a scenario's topology section and report its static properties",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.SilenceUsage = true

		sc, err := LoadScenario(args[0])
		if err != nil {
			log.Fatalf("cosim topology: %v", err)
		}

		topo, err := sc.BuildTopology()
		if err != nil {
			log.Fatalf("cosim topology: %v", err)
		}

		islands, count := topo.FindElectricalIslands()
		fmt.Printf("buses: %d\n", topo.BusCount())
		fmt.Printf("islands: %d\n", count)

		byIsland := map[int][]int{}
		for bus, island := range islands {
			byIsland[island] = append(byIsland[island], int(bus))
		}
		islandIDs := make([]int, 0, len(byIsland))
		for id := range byIsland {
			islandIDs = append(islandIDs, id)
		}
		sort.Ints(islandIDs)
		for _, id := range islandIDs {
			buses := byIsland[id]
			sort.Ints(buses)
			fmt.Printf("  island %d: buses %v\n", id, buses)
		}

		radial := topo.CheckRadialIslands()
		for _, id := range islandIDs {
			fmt.Printf("  island %d radial: %v\n", id, radial[id])
		}

		lines := topo.FindCriticalLines()
		fmt.Printf("critical lines: %v\n", lines)

		buses := topo.FindCriticalBuses()
		fmt.Printf("critical buses: %v\n", buses)

		loops := topo.FindAllLoops()
		fmt.Printf("loops: %d\n", len(loops))
	},
}

func init() {
	rootCmd.AddCommand(topologyCmd)
}
