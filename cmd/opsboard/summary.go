package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/opsboard/internal/app"
	applog "github.com/vovakirdan/opsboard/internal/log"
	"github.com/vovakirdan/opsboard/internal/metrics"
)

var summaryTicks int

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Simulate a number of ticks and print the dashboard",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if summaryTicks < 0 {
			return fmt.Errorf("ticks must not be negative, got %d", summaryTicks)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		application, err := app.New(&cfg, applog.New(cfg.LogLevel))
		if err != nil {
			return err
		}

		s := application.Simulate(summaryTicks)
		in := application.Engine().Inputs()

		renderSummary(os.Stdout, s)
		fmt.Println()
		renderParking(os.Stdout, in)
		fmt.Println()
		renderConcessions(os.Stdout, in)
		return nil
	},
}

func init() {
	summaryCmd.Flags().IntVarP(&summaryTicks, "ticks", "n", 60, "number of simulator ticks to run")
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	return table
}

func renderSummary(w io.Writer, s metrics.Summary) {
	table := newTable(w, "Metric", "Value")
	occupancy := fmt.Sprintf("%d%%", s.OccupancyPct)
	if s.OccupancyWarning {
		occupancy += " (near capacity)"
	}
	table.Append([]string{"Attendance", fmt.Sprintf("%d / %d", s.Attendance, s.Capacity)})
	table.Append([]string{"Occupancy", occupancy})
	table.Append([]string{"Active alerts", strconv.Itoa(s.ActiveAlerts)})
	table.Append([]string{"Open incidents", strconv.Itoa(s.OpenIncidents)})
	table.Append([]string{"Parking", fmt.Sprintf("%d%% (%s)", s.ParkingPct, s.ParkingLevel)})
	table.Append([]string{"Sales", formatCents(s.SalesCents)})
	table.Append([]string{"Low inventory stands", strconv.Itoa(s.LowInventory)})
	table.Append([]string{"Messages", fmt.Sprintf("%d (%d priority)", s.Messages, s.PriorityMessages)})
	table.Append([]string{"Last updated", s.LastUpdated.Format("15:04:05")})
	table.Render()
}

func renderParking(w io.Writer, in metrics.Inputs) {
	table := newTable(w, "Lot", "Occupied", "Capacity", "Utilization", "Level", "Shuttle", "Traffic")
	for _, lot := range in.Parking.Lots {
		pct := metrics.ParkingUtilization(lot)
		table.Append([]string{
			lot.Name,
			strconv.Itoa(lot.Occupied),
			strconv.Itoa(lot.Capacity),
			fmt.Sprintf("%d%%", pct),
			string(metrics.UtilizationLevel(pct)),
			string(lot.Shuttle),
			string(lot.Traffic),
		})
	}
	table.Render()
}

func renderConcessions(w io.Writer, in metrics.Inputs) {
	table := newTable(w, "Stand", "Section", "Sales", "Last hour", "Inventory", "Risk")
	for _, loc := range in.Concessions.Locations {
		table.Append([]string{
			loc.Name,
			loc.Section,
			formatCents(loc.TotalSalesCents),
			formatCents(loc.LastHourSalesCents),
			fmt.Sprintf("%d%%", loc.InventoryLevel),
			string(metrics.InventoryRiskLevel(loc.InventoryLevel)),
		})
	}
	table.Render()
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
