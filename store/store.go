// Package store remembers the peripherals the operator has driven before.
package store

import (
	"sort"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/pkg/errors"
)

var ErrEmpty = errors.New("no known peripherals")

// Peripheral is a vehicle that has been connected to at least once.
type Peripheral struct {
	ID       int    `storm:"increment"` // pk
	Address  string `storm:"unique"`
	Name     string
	LastUsed time.Time
}

type Store struct {
	db  *storm.DB
	now func() time.Time
}

func Open(filename string) (*Store, error) {
	db, err := storm.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", filename)
	}

	if err := db.Init(&Peripheral{}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Remember records a connection to addr. A known address keeps its name
// unless a new one is given.
func (s *Store) Remember(addr, name string) (p Peripheral, err error) {
	err = s.db.One("Address", addr, &p)
	switch {
	case err == storm.ErrNotFound:
		p = Peripheral{Address: addr}
	case err != nil:
		return
	}

	if name != "" {
		p.Name = name
	}
	p.LastUsed = s.now().UTC()

	err = s.db.Save(&p)
	return
}

// Last returns the most recently used peripheral.
func (s *Store) Last() (p Peripheral, err error) {
	all, err := s.All()
	if err != nil {
		return
	}
	if len(all) == 0 {
		return p, ErrEmpty
	}
	return all[0], nil
}

// All lists known peripherals, most recently used first.
func (s *Store) All() (list []Peripheral, err error) {
	if err = s.db.All(&list); err != nil {
		if err == storm.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].LastUsed.After(list[j].LastUsed)
	})
	return
}

// Forget drops addr, or every peripheral when addr is empty.
func (s *Store) Forget(addr string) error {
	if addr == "" {
		return s.db.Drop(&Peripheral{})
	}

	var p Peripheral
	if err := s.db.One("Address", addr, &p); err != nil {
		if err == storm.ErrNotFound {
			return nil
		}
		return err
	}
	return s.db.DeleteStruct(&p)
}
