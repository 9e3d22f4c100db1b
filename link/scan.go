package link

import (
	"context"
	"sort"
	"time"

	"tinygo.org/x/bluetooth"
)

// Peripheral is one advertising device seen during a scan.
type Peripheral struct {
	Address string
	Name    string
	RSSI    int16
}

func (p Peripheral) String() string {
	name := p.Name
	if name == "" {
		name = "(unnamed)"
	}
	return name + " - " + p.Address
}

// Scan lists the peripherals advertising within timeout, strongest first.
func Scan(ctx context.Context, timeout time.Duration) ([]Peripheral, error) {
	seen := make(peripheralSet)
	err := scan(ctx, timeout, func(result bluetooth.ScanResult) bool {
		seen.add(Peripheral{
			Address: result.Address.String(),
			Name:    result.LocalName(),
			RSSI:    result.RSSI,
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	list := seen.list()
	if len(list) == 0 {
		return nil, ErrNoPeripheral
	}
	return list, nil
}

type peripheralSet map[string]Peripheral

// add keeps the latest reading per address, holding on to a name once one
// has been advertised.
func (s peripheralSet) add(p Peripheral) {
	if old, ok := s[p.Address]; ok && p.Name == "" {
		p.Name = old.Name
	}
	s[p.Address] = p
}

func (s peripheralSet) list() []Peripheral {
	list := make([]Peripheral, 0, len(s))
	for _, p := range s {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].RSSI != list[j].RSSI {
			return list[i].RSSI > list[j].RSSI
		}
		return list[i].Address < list[j].Address
	})
	return list
}
