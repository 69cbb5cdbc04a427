package engine

import (
	"fmt"
	"time"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/store"
)

// VenueDepartments are the departments of the demo venue.
func VenueDepartments() []core.Department {
	return []core.Department{
		{ID: "1", Name: "Security", Color: "#f44336"},
		{ID: "2", Name: "Concessions", Color: "#ff9800"},
		{ID: "3", Name: "Ticketing", Color: "#2196f3"},
		{ID: "4", Name: "Medical", Color: "#4caf50"},
		{ID: "5", Name: "Facilities", Color: "#9c27b0"},
		{ID: "6", Name: "Management", Color: "#795548"},
	}
}

func venueMessages(now time.Time) []core.Message {
	ago := func(minutes int) time.Time { return now.Add(-time.Duration(minutes) * time.Minute) }
	return []core.Message{
		{Sender: "John Smith", Content: "Gate A is now at 90% capacity, consider redirecting to Gate C", Timestamp: ago(15), IsPriority: true, DepartmentID: "1"},
		{Sender: "Sarah Johnson", Content: "Concession stand 12 is running low on hot dogs, sending restock", Timestamp: ago(25), DepartmentID: "2"},
		{Sender: "Michael Chen", Content: "VIP entrance needs additional staff for next 30 minutes", Timestamp: ago(32), DepartmentID: "3"},
		{Sender: "Dr. Williams", Content: "Medical incident reported in Section 214, team dispatched", Timestamp: ago(45), IsPriority: true, DepartmentID: "4"},
		{Sender: "Robert Garcia", Content: "Water spill near restroom in West Concourse, cleanup needed", Timestamp: ago(58), DepartmentID: "5"},
		{Sender: "Lisa Adams", Content: "ANNOUNCEMENT: Halftime show will begin in 10 minutes", Timestamp: ago(65), DepartmentID: "6"},
	}
}

type seedIncident struct {
	kind, location, team, description string
	priority                          bool
	status                            store.IncidentStatus
}

var securitySeed = []seedIncident{
	{"Unauthorized Access", "Gate B", "Team Alpha", "Individual attempted to enter with invalid ticket. Issue resolved.", false, store.IncidentResolved},
	{"Disruptive Behavior", "Section 224", "Team Bravo", "Verbal altercation between fans. Security team dispatched.", true, store.IncidentInProgress},
}

var medicalSeed = []seedIncident{
	{"Medical Assistance", "Concourse Level 2", "Medical Team", "Fan experiencing dizziness. Medical staff providing assistance.", true, store.IncidentInProgress},
}

var venueLots = []store.Lot{
	{ID: "north", Name: "North Lot", Capacity: 500, Occupied: 487, Kind: store.LotGeneral, Shuttle: store.ShuttleNormal, Traffic: store.TrafficHigh},
	{ID: "south", Name: "South Lot", Capacity: 400, Occupied: 342, Kind: store.LotGeneral, Shuttle: store.ShuttleDelayed, Traffic: store.TrafficMedium},
	{ID: "east", Name: "East Garage", Capacity: 300, Occupied: 289, Kind: store.LotVIP, Shuttle: store.ShuttleNormal, Traffic: store.TrafficMedium},
	{ID: "west", Name: "West Lot", Capacity: 250, Occupied: 118, Kind: store.LotGeneral, Shuttle: store.ShuttleNormal, Traffic: store.TrafficLow},
}

var venueStands = []store.Location{
	{ID: "main-concourse", Name: "Main Concourse", Section: "A", TotalSalesCents: 1265000, LastHourSalesCents: 243000, InventoryLevel: 65},
	{ID: "upper-east", Name: "Upper Level East", Section: "B", TotalSalesCents: 872000, LastHourSalesCents: 184000, InventoryLevel: 52},
	{ID: "lower-west", Name: "Lower Level West", Section: "C", TotalSalesCents: 1034000, LastHourSalesCents: 195000, InventoryLevel: 48},
	{ID: "premium-club", Name: "Premium Club", Section: "VIP", TotalSalesCents: 789000, LastHourSalesCents: 124000, InventoryLevel: 72},
	{ID: "food-court", Name: "Food Court", Section: "D", TotalSalesCents: 568000, LastHourSalesCents: 98000, InventoryLevel: 31},
}

// Seed loads the demo venue: departments, recent messages, open incidents,
// parking lots and concession stands. Message times are relative to now.
func (e *Engine) Seed(now time.Time) error {
	e.Communication.ReplaceDepartments(VenueDepartments())
	e.Communication.ReplaceMessages(venueMessages(now))

	if err := seedIncidents(e.Security, securitySeed); err != nil {
		return fmt.Errorf("seed security: %w", err)
	}
	if err := seedIncidents(e.Medical, medicalSeed); err != nil {
		return fmt.Errorf("seed medical: %w", err)
	}
	for _, lot := range venueLots {
		if _, err := e.Parking.RegisterLot(lot); err != nil {
			return fmt.Errorf("seed parking: %w", err)
		}
	}
	for _, stand := range venueStands {
		if _, err := e.Concessions.RegisterLocation(stand); err != nil {
			return fmt.Errorf("seed concessions: %w", err)
		}
	}

	e.log.Debug().
		Int("messages", len(e.Communication.Snapshot().Messages)).
		Int("lots", len(venueLots)).
		Int("stands", len(venueStands)).
		Msg("venue seeded")
	return nil
}

func seedIncidents(log *store.Incidents, seed []seedIncident) error {
	for _, s := range seed {
		inc, err := log.Report(s.kind, s.location, s.team, s.description, s.priority)
		if err != nil {
			return err
		}
		if s.status == store.IncidentOpen {
			continue
		}
		if err := log.SetStatus(inc.ID, s.status); err != nil {
			return err
		}
	}
	return nil
}
