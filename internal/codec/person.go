package codec

import (
	"fmt"
	"strconv"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
)

var fixedPersonColumns = map[string]bool{
	"ID": true, "SEX": true, "ETHNICITY": true, "DATE_OF_BIRTH": true,
	"MOTHER_ID": true, "CONCEPTION_DATE": true, "DATE_OF_DEATH": true,
	"UNLINKED_CHILDBIRTHS": true,
}

// PersonRecord is the parsed form of a §6.4 person record: the fixed columns
// plus a variable-name-keyed map of §6.2 history literals.
type PersonRecord struct {
	ID                  actor.ID // 0 if absent; caller assigns a fresh one
	Sex                 actor.Sex
	Ethnicity           uint8
	DateOfBirth         date.Date
	MotherID            actor.ID // 0 if absent
	ConceptionDate      date.Date
	DateOfDeath         date.Date
	UnlinkedChildbirths string // raw §6.3 literal, empty if none
	Histories           map[string]string
}

// DecodePersonRecord parses one §6.4 record out of its raw column map. SEX
// and DATE_OF_BIRTH are required; every other column is optional.
func DecodePersonRecord(cols map[string]string) (PersonRecord, error) {
	var rec PersonRecord

	sexTag := cols["SEX"]
	switch sexTag {
	case "male", "M":
		rec.Sex = actor.Male
	case "female", "F":
		rec.Sex = actor.Female
	default:
		return rec, fmt.Errorf("%w: person record has invalid SEX %q", ErrInvalidLiteral, sexTag)
	}

	dobTag, ok := cols["DATE_OF_BIRTH"]
	if !ok || dobTag == "" {
		return rec, fmt.Errorf("%w: person record missing DATE_OF_BIRTH", ErrInvalidLiteral)
	}
	dob, err := date.Parse(dobTag)
	if err != nil {
		return rec, fmt.Errorf("DATE_OF_BIRTH: %w", err)
	}
	rec.DateOfBirth = dob

	if v := cols["ID"]; v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("ID: %w", err)
		}
		rec.ID = actor.ID(id)
	}
	if v := cols["ETHNICITY"]; v != "" {
		eth, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return rec, fmt.Errorf("ETHNICITY: %w", err)
		}
		rec.Ethnicity = uint8(eth)
	}
	if v := cols["MOTHER_ID"]; v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("MOTHER_ID: %w", err)
		}
		rec.MotherID = actor.ID(id)
	}
	if v := cols["CONCEPTION_DATE"]; v != "" {
		d, err := date.Parse(v)
		if err != nil {
			return rec, fmt.Errorf("CONCEPTION_DATE: %w", err)
		}
		rec.ConceptionDate = d
	}
	if v := cols["DATE_OF_DEATH"]; v != "" {
		d, err := date.Parse(v)
		if err != nil {
			return rec, fmt.Errorf("DATE_OF_DEATH: %w", err)
		}
		rec.DateOfDeath = d
	}
	rec.UnlinkedChildbirths = cols["UNLINKED_CHILDBIRTHS"]

	rec.Histories = make(map[string]string, len(cols))
	for k, v := range cols {
		if fixedPersonColumns[k] || v == "" {
			continue
		}
		rec.Histories[k] = v
	}
	return rec, nil
}

// EncodePersonRecord renders p as a §6.4 column map, using reg to resolve
// registered variable names for the history columns. Children still linked
// to a live Person are omitted from UNLINKED_CHILDBIRTHS — that column only
// ever carries birth events recorded without a live child object.
func EncodePersonRecord(p *actor.Person, reg *registry.Registry) (map[string]string, error) {
	cols := map[string]string{
		"ID":            strconv.FormatUint(uint64(p.ID()), 10),
		"SEX":           p.Sex().String(),
		"ETHNICITY":     strconv.FormatUint(uint64(p.Ethnicity()), 10),
		"DATE_OF_BIRTH": p.DateOfBirth().String(),
	}
	if m := p.Mother(); m != nil {
		cols["MOTHER_ID"] = strconv.FormatUint(uint64(m.ID()), 10)
		cols["CONCEPTION_DATE"] = p.ConceptionDate().String()
	}
	if p.Died() {
		cols["DATE_OF_DEATH"] = p.DateOfDeath().String()
	}

	var unlinked []date.Date
	for i := 0; i < p.NbrChildren(); i++ {
		child, err := p.Child(i)
		if err != nil {
			return nil, fmt.Errorf("codec: reading child %d: %w", i, err)
		}
		if child != nil {
			continue
		}
		d, err := p.ChildBirthDate(i)
		if err != nil {
			return nil, fmt.Errorf("codec: reading child birth date %d: %w", i, err)
		}
		unlinked = append(unlinked, d)
	}
	if lit := EncodeUnlinkedChildbirths(unlinked); lit != "" {
		cols["UNLINKED_CHILDBIRTHS"] = lit
	}

	for i := 0; i < reg.NbrVariables() && i < p.NbrHistories(); i++ {
		h := p.History(i)
		if h == nil || h.Empty() {
			continue
		}
		name, err := reg.VariableName(registry.VarIndex(i))
		if err != nil {
			return nil, err
		}
		cols[name] = EncodeHistory(h)
	}
	return cols, nil
}
