package store

import (
	"strings"

	"github.com/samber/lo"

	"github.com/vovakirdan/opsboard/internal/core"
	"github.com/vovakirdan/opsboard/internal/utils"
)

// LotKind distinguishes general parking from reserved VIP lots.
type LotKind string

const (
	LotGeneral LotKind = "general"
	LotVIP     LotKind = "vip"
)

// ShuttleStatus is the state of the shuttle serving a lot.
type ShuttleStatus string

const (
	ShuttleNormal  ShuttleStatus = "normal"
	ShuttleDelayed ShuttleStatus = "delayed"
)

// TrafficLevel is the congestion around a lot.
type TrafficLevel string

const (
	TrafficLow    TrafficLevel = "low"
	TrafficMedium TrafficLevel = "medium"
	TrafficHigh   TrafficLevel = "high"
)

// Lot is one parking area.
type Lot struct {
	ID       string        `json:"id"`
	Name     string        `json:"name" validate:"required"`
	Capacity int           `json:"capacity" validate:"gt=0"`
	Occupied int           `json:"occupied" validate:"gte=0"`
	Kind     LotKind       `json:"kind" validate:"oneof=general vip"`
	Shuttle  ShuttleStatus `json:"shuttle" validate:"oneof=normal delayed"`
	Traffic  TrafficLevel  `json:"traffic" validate:"oneof=low medium high"`
}

// ParkingSnapshot is the state of every parking lot, in registration order.
type ParkingSnapshot struct {
	core.Header
	Lots []Lot
}

// Lot looks up a lot by id.
func (s ParkingSnapshot) Lot(id string) (Lot, bool) {
	return lo.Find(s.Lots, func(l Lot) bool { return l.ID == id })
}

// Parking is the store for parking lots.
type Parking struct {
	cell *cell[ParkingSnapshot]
}

type shuttleInput struct {
	Shuttle ShuttleStatus `validate:"oneof=normal delayed"`
}

type trafficInput struct {
	Traffic TrafficLevel `validate:"oneof=low medium high"`
}

// NewParking creates an empty parking store.
func NewParking(pub core.Publisher, now Clock) *Parking {
	initial := ParkingSnapshot{
		Header: core.Header{Domain: core.DomainParking, LastUpdated: orNow(now)()},
	}
	return &Parking{cell: newCell(core.DomainParking, initial, pub, now)}
}

// Snapshot returns the current state.
func (p *Parking) Snapshot() ParkingSnapshot {
	return p.cell.load()
}

// RegisterLot adds a lot. Empty status fields default to general, normal
// shuttle and low traffic; an empty id is generated.
func (p *Parking) RegisterLot(lot Lot) (Lot, error) {
	lot.Name = strings.TrimSpace(lot.Name)
	lot.Kind = lo.CoalesceOrEmpty(lot.Kind, LotGeneral)
	lot.Shuttle = lo.CoalesceOrEmpty(lot.Shuttle, ShuttleNormal)
	lot.Traffic = lo.CoalesceOrEmpty(lot.Traffic, TrafficLow)
	if err := check(lot); err != nil {
		return Lot{}, err
	}

	_, err := p.cell.commit(func(prev ParkingSnapshot, head core.Header) (ParkingSnapshot, bool, error) {
		if lot.ID == "" {
			lot.ID = utils.NewID()
		} else if _, exists := prev.Lot(lot.ID); exists {
			return prev, false, core.ValidationError("id", "lot %q already registered", lot.ID)
		}
		next := prev
		next.Header = head
		next.Lots = append(append(make([]Lot, 0, len(prev.Lots)+1), prev.Lots...), lot)
		return next, true, nil
	})
	if err != nil {
		return Lot{}, err
	}
	return lot, nil
}

// UpdateOccupancy sets how many spaces of a lot are taken. Overshoot above
// capacity is allowed.
func (p *Parking) UpdateOccupancy(id string, occupied int) error {
	if occupied < 0 {
		return core.ValidationError("occupied", "must not be negative, got %d", occupied)
	}
	return p.update(id, func(l *Lot) { l.Occupied = occupied })
}

// SetShuttleStatus records the shuttle state of a lot.
func (p *Parking) SetShuttleStatus(id string, status ShuttleStatus) error {
	if err := check(shuttleInput{Shuttle: status}); err != nil {
		return err
	}
	return p.update(id, func(l *Lot) { l.Shuttle = status })
}

// SetTrafficLevel records the congestion around a lot.
func (p *Parking) SetTrafficLevel(id string, level TrafficLevel) error {
	if err := check(trafficInput{Traffic: level}); err != nil {
		return err
	}
	return p.update(id, func(l *Lot) { l.Traffic = level })
}

func (p *Parking) update(id string, fn func(*Lot)) error {
	_, err := p.cell.commit(func(prev ParkingSnapshot, head core.Header) (ParkingSnapshot, bool, error) {
		changed := false
		lots, ok, _ := replaceByID(prev.Lots, id, lotID, func(l *Lot) error {
			before := *l
			fn(l)
			changed = before != *l
			return nil
		})
		if !ok {
			return prev, false, core.UnknownLotError(id)
		}
		next := prev
		next.Header = head
		next.Lots = lots
		return next, changed, nil
	})
	return err
}

func lotID(l Lot) string { return l.ID }
