package codec

import "fmt"

// VariableDeclaration is one §6.5 variable-declaration record: a registered
// variable's name and the history factory it is built with.
type VariableDeclaration struct {
	Name    string
	Factory FactorySpec
}

// DecodeVariableDeclarations parses a sequence of (NAME, HISTORY_FACTORY)
// column maps, e.g. rows read from a declaration file.
func DecodeVariableDeclarations(rows []map[string]string) ([]VariableDeclaration, error) {
	out := make([]VariableDeclaration, 0, len(rows))
	for i, row := range rows {
		name := row["NAME"]
		if name == "" {
			return nil, fmt.Errorf("%w: variable declaration %d missing NAME", ErrInvalidLiteral, i)
		}
		spec, err := ParseFactorySpec(row["HISTORY_FACTORY"])
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		out = append(out, VariableDeclaration{Name: name, Factory: spec})
	}
	return out, nil
}

// EncodeVariableDeclaration renders a single declaration as a §6.5 column map.
func EncodeVariableDeclaration(d VariableDeclaration) map[string]string {
	return map[string]string{
		"NAME":            d.Name,
		"HISTORY_FACTORY": d.Factory.String(),
	}
}
