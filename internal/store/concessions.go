package store

import (
	"strings"

	"github.com/samber/lo"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/utils"
)

// Location is one concession stand.
type Location struct {
	ID                 string `json:"id"`
	Name               string `json:"name" validate:"required"`
	Section            string `json:"section"`
	TotalSalesCents    int64  `json:"total_sales_cents" validate:"gte=0"`
	LastHourSalesCents int64  `json:"last_hour_sales_cents" validate:"gte=0"`
	// InventoryLevel is a percentage of full stock.
	InventoryLevel int `json:"inventory_level" validate:"min=0,max=100"`
}

// ConcessionsSnapshot is the state of every concession stand, in
// registration order.
type ConcessionsSnapshot struct {
	core.Header
	Locations []Location
}

// Location looks up a stand by id.
func (s ConcessionsSnapshot) Location(id string) (Location, bool) {
	return lo.Find(s.Locations, func(l Location) bool { return l.ID == id })
}

// Concessions is the store for concession sales and inventory.
type Concessions struct {
	cell *cell[ConcessionsSnapshot]
}

type saleInput struct {
	AmountCents int64 `validate:"gt=0"`
}

type inventoryInput struct {
	Level int `validate:"min=0,max=100"`
}

// NewConcessions creates an empty concessions store.
func NewConcessions(pub core.Publisher, now Clock) *Concessions {
	initial := ConcessionsSnapshot{
		Header: core.Header{Domain: core.DomainConcessions, LastUpdated: orNow(now)()},
	}
	return &Concessions{cell: newCell(core.DomainConcessions, initial, pub, now)}
}

// Snapshot returns the current state.
func (c *Concessions) Snapshot() ConcessionsSnapshot {
	return c.cell.load()
}

// RegisterLocation adds a concession stand; an empty id is generated.
func (c *Concessions) RegisterLocation(loc Location) (Location, error) {
	loc.Name = strings.TrimSpace(loc.Name)
	if err := check(loc); err != nil {
		return Location{}, err
	}

	_, err := c.cell.commit(func(prev ConcessionsSnapshot, head core.Header) (ConcessionsSnapshot, bool, error) {
		if loc.ID == "" {
			loc.ID = utils.NewID()
		} else if _, exists := prev.Location(loc.ID); exists {
			return prev, false, core.ValidationError("id", "location %q already registered", loc.ID)
		}
		next := prev
		next.Header = head
		next.Locations = append(append(make([]Location, 0, len(prev.Locations)+1), prev.Locations...), loc)
		return next, true, nil
	})
	if err != nil {
		return Location{}, err
	}
	return loc, nil
}

// RecordSale adds a sale to the stand's totals.
func (c *Concessions) RecordSale(id string, amountCents int64) error {
	if err := check(saleInput{AmountCents: amountCents}); err != nil {
		return err
	}
	return c.update(id, func(l *Location) bool {
		l.TotalSalesCents += amountCents
		l.LastHourSalesCents += amountCents
		return true
	})
}

// SetInventoryLevel records the stock level of a stand.
func (c *Concessions) SetInventoryLevel(id string, level int) error {
	if err := check(inventoryInput{Level: level}); err != nil {
		return err
	}
	return c.update(id, func(l *Location) bool {
		if l.InventoryLevel == level {
			return false
		}
		l.InventoryLevel = level
		return true
	})
}

// RollHour starts a new sales hour: every last-hour counter goes to zero.
func (c *Concessions) RollHour() {
	_, _ = c.cell.commit(func(prev ConcessionsSnapshot, head core.Header) (ConcessionsSnapshot, bool, error) {
		if !lo.SomeBy(prev.Locations, func(l Location) bool { return l.LastHourSalesCents != 0 }) {
			return prev, false, nil
		}
		next := prev
		next.Header = head
		next.Locations = lo.Map(prev.Locations, func(l Location, _ int) Location {
			l.LastHourSalesCents = 0
			return l
		})
		return next, true, nil
	})
}

func (c *Concessions) update(id string, fn func(*Location) bool) error {
	_, err := c.cell.commit(func(prev ConcessionsSnapshot, head core.Header) (ConcessionsSnapshot, bool, error) {
		changed := false
		locs, ok, _ := replaceByID(prev.Locations, id, locationID, func(l *Location) error {
			changed = fn(l)
			return nil
		})
		if !ok {
			return prev, false, core.UnknownLocationError(id)
		}
		next := prev
		next.Header = head
		next.Locations = locs
		return next, changed, nil
	})
	return err
}

func locationID(l Location) string { return l.ID }
