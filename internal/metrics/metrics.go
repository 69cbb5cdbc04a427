// Package metrics derives dashboard figures from domain snapshots. Every
// function is pure: the same snapshots always give the same result.
package metrics

import (
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/store"
)

// Level grades a figure against its alert thresholds.
type Level string

const (
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

const (
	occupancyWarningAbove = 90

	utilizationCritical = 90
	utilizationWarning  = 75

	inventoryCritical = 30
	inventoryWarning  = 50
)

// Percentage returns round(part/total*100). It is not clamped and is 0
// when total is not positive.
func Percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// OccupancyPercentage is the share of venue capacity currently inside.
// Overshoot gives values above 100.
func OccupancyPercentage(s store.AttendanceSnapshot) int {
	return Percentage(s.CurrentAttendance, s.TotalCapacity)
}

// OccupancyWarning reports whether the venue is close to full.
func OccupancyWarning(pct int) bool {
	return pct > occupancyWarningAbove
}

// ActiveAlertCount counts priority incidents that are not resolved across
// the Security and Medical snapshots. Snapshots of other domains are
// ignored, and so are snapshots that are not incident logs.
func ActiveAlertCount(snapshots ...core.Snapshot) int {
	total := 0
	for _, snap := range snapshots {
		log, ok := snap.(store.IncidentSnapshot)
		if !ok {
			continue
		}
		if d := log.Domain; d != core.DomainSecurity && d != core.DomainMedical {
			continue
		}
		total += lo.CountBy(log.Incidents, func(i store.Incident) bool {
			return i.Priority && !i.Resolved()
		})
	}
	return total
}

// InventoryRiskLevel grades a stock level. 30 and below is critical, 50
// and below is a warning.
func InventoryRiskLevel(level int) Level {
	switch {
	case level <= inventoryCritical:
		return LevelCritical
	case level <= inventoryWarning:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// UtilizationLevel grades a parking utilization percentage.
func UtilizationLevel(pct int) Level {
	switch {
	case pct >= utilizationCritical:
		return LevelCritical
	case pct >= utilizationWarning:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// ParkingUtilization is the share of a lot that is taken.
func ParkingUtilization(lot store.Lot) int {
	return Percentage(lot.Occupied, lot.Capacity)
}

// OverallParkingUtilization is the share of all parking spaces taken.
func OverallParkingUtilization(s store.ParkingSnapshot) int {
	occupied := lo.SumBy(s.Lots, func(l store.Lot) int { return l.Occupied })
	capacity := lo.SumBy(s.Lots, func(l store.Lot) int { return l.Capacity })
	return Percentage(occupied, capacity)
}

// TotalSalesCents sums the sales of every concession stand.
func TotalSalesCents(s store.ConcessionsSnapshot) int64 {
	return lo.SumBy(s.Locations, func(l store.Location) int64 { return l.TotalSalesCents })
}

// LowInventoryLocations returns the stands whose stock is at warning level
// or worse, in registration order.
func LowInventoryLocations(s store.ConcessionsSnapshot) []store.Location {
	return lo.Filter(s.Locations, func(l store.Location, _ int) bool {
		return InventoryRiskLevel(l.InventoryLevel) != LevelNormal
	})
}

// Inputs groups the snapshots a summary is computed from. They may have
// been read at different times.
type Inputs struct {
	Attendance    store.AttendanceSnapshot
	Communication store.CommunicationSnapshot
	Security      store.IncidentSnapshot
	Medical       store.IncidentSnapshot
	Parking       store.ParkingSnapshot
	Concessions   store.ConcessionsSnapshot
}

// Summary is the dashboard status row.
type Summary struct {
	Attendance       int       `json:"attendance"`
	Capacity         int       `json:"capacity"`
	OccupancyPct     int       `json:"occupancy_pct"`
	OccupancyWarning bool      `json:"occupancy_warning"`
	ActiveAlerts     int       `json:"active_alerts"`
	OpenIncidents    int       `json:"open_incidents"`
	ParkingPct       int       `json:"parking_pct"`
	ParkingLevel     Level     `json:"parking_level"`
	SalesCents       int64     `json:"sales_cents"`
	LowInventory     int       `json:"low_inventory"`
	Messages         int       `json:"messages"`
	PriorityMessages int       `json:"priority_messages"`
	LastUpdated      time.Time `json:"last_updated"`
}

// Summarize computes the status row from in.
func Summarize(in Inputs) Summary {
	occupancy := OccupancyPercentage(in.Attendance)
	parking := OverallParkingUtilization(in.Parking)
	return Summary{
		Attendance:       in.Attendance.CurrentAttendance,
		Capacity:         in.Attendance.TotalCapacity,
		OccupancyPct:     occupancy,
		OccupancyWarning: OccupancyWarning(occupancy),
		ActiveAlerts:     ActiveAlertCount(in.Security, in.Medical),
		OpenIncidents:    len(in.Security.Active()) + len(in.Medical.Active()),
		ParkingPct:       parking,
		ParkingLevel:     UtilizationLevel(parking),
		SalesCents:       TotalSalesCents(in.Concessions),
		LowInventory:     len(LowInventoryLocations(in.Concessions)),
		Messages:         len(in.Communication.Messages),
		PriorityMessages: lo.CountBy(in.Communication.Messages, func(m core.Message) bool { return m.IsPriority }),
		LastUpdated: latest(
			in.Attendance.LastUpdated,
			in.Communication.LastUpdated,
			in.Security.LastUpdated,
			in.Medical.LastUpdated,
			in.Parking.LastUpdated,
			in.Concessions.LastUpdated,
		),
	}
}

func latest(times ...time.Time) time.Time {
	return lo.MaxBy(times, func(a, b time.Time) bool { return a.After(b) })
}
