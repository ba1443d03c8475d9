package simcontext

import "fmt"

// EthnicityClassification names the ethnicity grouping a simulation run
// uses: a scheme name plus an index<->name map (§6.6/§6.7 external
// interfaces mention this as part of the immutable, file-exchanged state).
type EthnicityClassification struct {
	Name      string
	indexName map[uint8]string
	nameIndex map[string]uint8
}

// NewEthnicityClassification builds a classification from a name and an
// ordered list of group names (index = position in the list).
func NewEthnicityClassification(name string, groups []string) EthnicityClassification {
	ec := EthnicityClassification{
		Name:      name,
		indexName: make(map[uint8]string, len(groups)),
		nameIndex: make(map[string]uint8, len(groups)),
	}
	for i, g := range groups {
		idx := uint8(i)
		ec.indexName[idx] = g
		ec.nameIndex[g] = idx
	}
	return ec
}

// GroupName returns the name of ethnicity index idx.
func (e EthnicityClassification) GroupName(idx uint8) (string, error) {
	name, ok := e.indexName[idx]
	if !ok {
		return "", fmt.Errorf("simcontext: no ethnicity group at index %d", idx)
	}
	return name, nil
}

// GroupIndex returns the index of a named ethnicity group.
func (e EthnicityClassification) GroupIndex(name string) (uint8, error) {
	idx, ok := e.nameIndex[name]
	if !ok {
		return 0, fmt.Errorf("simcontext: unknown ethnicity group %q", name)
	}
	return idx, nil
}

// Size returns the number of groups in the classification.
func (e EthnicityClassification) Size() int { return len(e.indexName) }
