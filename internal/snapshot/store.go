// Package snapshot persists a simulation run's population and observer
// outputs to SQLite, so a run can be paused, resumed, or reported on after
// the fact (§6.6, §6.7).
package snapshot

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/codec"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/observer"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
)

// Store wraps a SQLite connection for run persistence.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at path and runs its migrations.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("snapshot: open db: %w", err)
	}
	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.conn.Close() }

// Conn exposes the underlying connection for ad hoc reporting queries that
// fall outside the Save/Load methods below.
func (s *Store) Conn() *sqlx.DB { return s.conn }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS persons (
		id INTEGER PRIMARY KEY,
		sex INTEGER NOT NULL,
		ethnicity INTEGER NOT NULL,
		date_of_birth TEXT NOT NULL,
		date_of_death TEXT NOT NULL DEFAULT '',
		mother_id INTEGER,
		conception_date TEXT NOT NULL DEFAULT '',
		immigration_date TEXT NOT NULL DEFAULT '',
		unlinked_childbirths TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS person_histories (
		person_id INTEGER NOT NULL,
		variable_name TEXT NOT NULL,
		literal TEXT NOT NULL,
		PRIMARY KEY (person_id, variable_name)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS demographic_counts (
		observer_name TEXT NOT NULL,
		date_index INTEGER NOT NULL,
		age_range_idx INTEGER NOT NULL,
		ethnicity INTEGER NOT NULL,
		sex INTEGER NOT NULL,
		population INTEGER NOT NULL,
		births INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		PRIMARY KEY (observer_name, date_index, age_range_idx, ethnicity, sex)
	);

	CREATE TABLE IF NOT EXISTS statistics_summary (
		observer_name TEXT NOT NULL,
		date_index INTEGER NOT NULL,
		quantity TEXT NOT NULL,
		n INTEGER NOT NULL,
		mean REAL NOT NULL,
		variance REAL NOT NULL,
		skewness REAL NOT NULL,
		kurtosis REAL NOT NULL,
		min REAL NOT NULL,
		max REAL NOT NULL,
		median REAL NOT NULL,
		PRIMARY KEY (observer_name, date_index, quantity)
	);

	CREATE INDEX IF NOT EXISTS idx_person_histories_person ON person_histories(person_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// SaveMeta stores a key-value pair in run metadata (e.g. the current date
// index, the RNG seed, the highest issued actor ID).
func (s *Store) SaveMeta(key, value string) error {
	_, err := s.conn.Exec("INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)", key, value)
	return err
}

// GetMeta retrieves a metadata value.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}

type personRow struct {
	ID                  uint64  `db:"id"`
	Sex                 uint8   `db:"sex"`
	Ethnicity           uint8   `db:"ethnicity"`
	DateOfBirth         string  `db:"date_of_birth"`
	DateOfDeath         string  `db:"date_of_death"`
	MotherID            *uint64 `db:"mother_id"`
	ConceptionDate      string  `db:"conception_date"`
	ImmigrationDate     string  `db:"immigration_date"`
	UnlinkedChildbirths string  `db:"unlinked_childbirths"`
}

type historyRow struct {
	PersonID     uint64 `db:"person_id"`
	VariableName string `db:"variable_name"`
	Literal      string `db:"literal"`
}

// SavePopulation performs a full save of pop, replacing whatever was stored
// before. Histories are saved as §6.2 literals, one row per (person,
// variable) with a non-empty history.
func (s *Store) SavePopulation(pop []*actor.Person, reg *registry.Registry) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM persons"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM person_histories"); err != nil {
		return err
	}

	personStmt, err := tx.Preparex(`INSERT INTO persons
		(id, sex, ethnicity, date_of_birth, date_of_death, mother_id, conception_date, immigration_date, unlinked_childbirths)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer personStmt.Close()

	historyStmt, err := tx.Preparex(`INSERT INTO person_histories (person_id, variable_name, literal) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer historyStmt.Close()

	for _, p := range pop {
		cols, err := codec.EncodePersonRecord(p, reg)
		if err != nil {
			return fmt.Errorf("encode person %d: %w", p.ID(), err)
		}

		var motherID *uint64
		if m := p.Mother(); m != nil {
			id := uint64(m.ID())
			motherID = &id
		}

		if _, err := personStmt.Exec(
			uint64(p.ID()), uint8(p.Sex()), p.Ethnicity(),
			cols["DATE_OF_BIRTH"], cols["DATE_OF_DEATH"], motherID,
			cols["CONCEPTION_DATE"], p.ImmigrationDate().String(), cols["UNLINKED_CHILDBIRTHS"],
		); err != nil {
			return fmt.Errorf("insert person %d: %w", p.ID(), err)
		}

		for i := 0; i < reg.NbrVariables(); i++ {
			name, err := reg.VariableName(registry.VarIndex(i))
			if err != nil {
				return err
			}
			lit, ok := cols[name]
			if !ok || lit == "" {
				continue
			}
			if _, err := historyStmt.Exec(uint64(p.ID()), name, lit); err != nil {
				return fmt.Errorf("insert history %q for person %d: %w", name, p.ID(), err)
			}
		}
	}

	slog.Info("snapshot: saved population", "persons", len(pop))
	return tx.Commit()
}

// LoadPopulation reads the whole saved population back, wiring mother/child
// links and replaying histories via reg.
func (s *Store) LoadPopulation(reg *registry.Registry) ([]*actor.Person, error) {
	var personRows []personRow
	if err := s.conn.Select(&personRows, "SELECT * FROM persons ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load persons: %w", err)
	}
	var historyRows []historyRow
	if err := s.conn.Select(&historyRows, "SELECT * FROM person_histories"); err != nil {
		return nil, fmt.Errorf("load person histories: %w", err)
	}

	historiesByPerson := make(map[uint64]map[string]string, len(personRows))
	for _, h := range historyRows {
		byName := historiesByPerson[h.PersonID]
		if byName == nil {
			byName = make(map[string]string)
			historiesByPerson[h.PersonID] = byName
		}
		byName[h.VariableName] = h.Literal
	}

	records := make([]codec.PersonRecord, len(personRows))
	immigrationByID := make(map[actor.ID]date.Date, len(personRows))
	for i, r := range personRows {
		rec := codec.PersonRecord{
			ID:                  actor.ID(r.ID),
			Sex:                 actor.Sex(r.Sex),
			Ethnicity:           r.Ethnicity,
			UnlinkedChildbirths: r.UnlinkedChildbirths,
			Histories:           historiesByPerson[r.ID],
		}
		var err error
		if rec.DateOfBirth, err = date.Parse(r.DateOfBirth); err != nil {
			return nil, fmt.Errorf("person %d: %w", r.ID, err)
		}
		if rec.DateOfDeath, err = date.Parse(r.DateOfDeath); err != nil {
			return nil, fmt.Errorf("person %d: %w", r.ID, err)
		}
		if rec.ConceptionDate, err = date.Parse(r.ConceptionDate); err != nil {
			return nil, fmt.Errorf("person %d: %w", r.ID, err)
		}
		if r.MotherID != nil {
			rec.MotherID = actor.ID(*r.MotherID)
		}
		if imdate, err := date.Parse(r.ImmigrationDate); err == nil && !imdate.IsZero() {
			immigrationByID[rec.ID] = imdate
		}
		records[i] = rec
	}

	pop, err := codec.DecodePopulation(records, reg, func() actor.ID {
		panic("snapshot: loaded person record unexpectedly missing an id")
	})
	if err != nil {
		return nil, err
	}
	for _, p := range pop {
		if imdate, ok := immigrationByID[p.ID()]; ok {
			if err := p.SetImmigrationDate(imdate); err != nil {
				return nil, fmt.Errorf("person %d: %w", p.ID(), err)
			}
		}
	}
	return pop, nil
}

// SaveDemographics persists every populated bucket an observer has tallied at
// the given date index.
func (s *Store) SaveDemographics(obs *observer.DemographicsObserver, dateIndex int) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO demographic_counts
		(observer_name, date_index, age_range_idx, ethnicity, sex, population, births, deaths)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range obs.Snapshot(dateIndex) {
		if _, err := stmt.Exec(
			obs.Name(), dateIndex, b.AgeRangeIdx, b.Ethnicity, uint8(b.Sex),
			b.Counts.Population, b.Counts.Births, b.Counts.Deaths,
		); err != nil {
			return fmt.Errorf("insert demographic bucket: %w", err)
		}
	}
	return tx.Commit()
}

// SaveStatistics persists the summary of every quantity an observer tracks,
// at the given date index.
func (s *Store) SaveStatistics(obs *observer.StatisticsObserver, dateIndex int) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO statistics_summary
		(observer_name, date_index, quantity, n, mean, variance, skewness, kurtosis, min, max, median)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for name := range obs.Quantities {
		sum := obs.Summarize(dateIndex, name)
		if _, err := stmt.Exec(
			obs.Name(), dateIndex, name, sum.N, sum.Mean, sum.Variance,
			sum.Skewness, sum.Kurtosis, sum.Min, sum.Max, sum.Median,
		); err != nil {
			return fmt.Errorf("insert statistics summary %q: %w", name, err)
		}
	}
	return tx.Commit()
}
