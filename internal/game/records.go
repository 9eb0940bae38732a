package game

import (
	"errors"
	"fmt"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Storage keys.
const (
	recordsObject   = "cannonade"
	standingsProp   = "standings.yaml"
	matchPropPrefix = "match-"
)

// ErrNoRecord is returned when a match id has no stored record.
var ErrNoRecord = errors.New("no such match record")

// PolicyLine is one policy's row in the standings table.
type PolicyLine struct {
	Wins   int `yaml:"wins"`
	Losses int `yaml:"losses"`
	Draws  int `yaml:"draws"`
	Goals  int `yaml:"goals"`
}

// Standings accumulates results per policy name across matches.
type Standings struct {
	Policies map[string]PolicyLine `yaml:"policies"`
}

// RecordStore persists match records and the standings table. A nil
// gdata manager degrades to process-local memory, so a host without a
// writable data dir still gets standings for the session.
type RecordStore struct {
	mu  sync.Mutex
	m   *gdata.Manager
	mem map[string][]byte
}

// NewRecordStore wraps a gdata manager; nil is allowed.
func NewRecordStore(m *gdata.Manager) *RecordStore {
	return &RecordStore{m: m, mem: map[string][]byte{}}
}

// Persistent reports whether results survive the process.
func (s *RecordStore) Persistent() bool {
	return s.m != nil
}

// Standings loads the accumulated table.
func (s *RecordStore) Standings() (Standings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadStandings()
}

// ApplyResult folds a finished match into the standings.
func (s *RecordStore) ApplyResult(res Result) error {
	if !res.Over {
		return fmt.Errorf("apply result: match %s not finished", res.MatchID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.loadStandings()
	if err != nil {
		return err
	}

	leftName := res.Policies[SideLeft]
	rightName := res.Policies[SideRight]

	if leftName == rightName {
		// Mirror match: one policy takes both rows' worth of results.
		line := table.Policies[leftName]
		line.Goals += res.Score[SideLeft] + res.Score[SideRight]
		if res.Winner == "draw" {
			line.Draws += 2
		} else {
			line.Wins++
			line.Losses++
		}
		table.Policies[leftName] = line
	} else {
		left := table.Policies[leftName]
		right := table.Policies[rightName]
		left.Goals += res.Score[SideLeft]
		right.Goals += res.Score[SideRight]

		switch res.Winner {
		case SideLeft.String():
			left.Wins++
			right.Losses++
		case SideRight.String():
			right.Wins++
			left.Losses++
		default:
			left.Draws++
			right.Draws++
		}

		table.Policies[leftName] = left
		table.Policies[rightName] = right
	}

	data, err := yaml.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode standings: %w", err)
	}
	return s.save(standingsProp, data)
}

// SaveRecord stores a match summary under its id.
func (s *RecordStore) SaveRecord(res Result) error {
	data, err := msgpack.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", res.MatchID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(matchPropPrefix+res.MatchID, data)
}

// LoadRecord fetches a stored match summary.
func (s *RecordStore) LoadRecord(id string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result
	data, ok, err := s.load(matchPropPrefix + id)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, fmt.Errorf("%w: %s", ErrNoRecord, id)
	}
	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, fmt.Errorf("decode record %s: %w", id, err)
	}
	return res, nil
}

// loadStandings reads the table, returning an empty one when nothing is
// stored yet. Callers hold the lock.
func (s *RecordStore) loadStandings() (Standings, error) {
	table := Standings{Policies: map[string]PolicyLine{}}

	data, ok, err := s.load(standingsProp)
	if err != nil || !ok {
		return table, err
	}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return Standings{Policies: map[string]PolicyLine{}}, fmt.Errorf("parse standings: %w", err)
	}
	if table.Policies == nil {
		table.Policies = map[string]PolicyLine{}
	}
	return table, nil
}

func (s *RecordStore) load(prop string) ([]byte, bool, error) {
	if s.m == nil {
		data, ok := s.mem[prop]
		return data, ok, nil
	}
	if !s.m.ObjectPropExists(recordsObject, prop) {
		return nil, false, nil
	}
	data, err := s.m.LoadObjectProp(recordsObject, prop)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", prop, err)
	}
	return data, true, nil
}

func (s *RecordStore) save(prop string, data []byte) error {
	if s.m == nil {
		s.mem[prop] = data
		return nil
	}
	if err := s.m.SaveObjectProp(recordsObject, prop, data); err != nil {
		return fmt.Errorf("save %s: %w", prop, err)
	}
	return nil
}
