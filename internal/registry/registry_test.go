package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rilwen/microsimulation-sub000/internal/actor"
	"github.com/rilwen/microsimulation-sub000/internal/date"
	"github.com/rilwen/microsimulation-sub000/internal/history"
	"github.com/rilwen/microsimulation-sub000/internal/registry"
)

func femalePerson(t *testing.T) *actor.Person {
	t.Helper()
	p, err := actor.New(1, actor.Attributes{Sex: actor.Female}, date.MustNew(2000, 1, 1))
	require.NoError(t, err)
	return p
}

func TestRegisterRejectsEmptyAndDuplicateNames(t *testing.T) {
	r := registry.New()
	_, err := r.Register("", history.NewDenseFactory[float64](), nil, nil, nil)
	require.ErrorIs(t, err, registry.ErrEmptyName)

	_, err = r.Register("weight", history.NewDenseFactory[float64](), nil, nil, nil)
	require.NoError(t, err)
	_, err = r.Register("weight", history.NewDenseFactory[float64](), nil, nil, nil)
	require.ErrorIs(t, err, registry.ErrDuplicateName)
}

func TestRegisterRejectsAfterFreeze(t *testing.T) {
	r := registry.New()
	r.Freeze()
	_, err := r.Register("weight", history.NewDenseFactory[float64](), nil, nil, nil)
	require.ErrorIs(t, err, registry.ErrFrozen)
}

func TestVariableLookup(t *testing.T) {
	r := registry.New()
	idx, err := r.RegisterCommon("weight", history.NewDenseFactory[float64](), nil, nil)
	require.NoError(t, err)

	require.True(t, r.HasVariable("weight"))
	got, err := r.VariableIndex("weight")
	require.NoError(t, err)
	require.Equal(t, idx, got)

	name, err := r.VariableName(idx)
	require.NoError(t, err)
	require.Equal(t, "weight", name)

	_, err = r.VariableIndex("missing")
	require.ErrorIs(t, err, registry.ErrUnknownVariable)
}

func TestMakeHistoriesRespectsSelector(t *testing.T) {
	r := registry.New()
	_, err := r.RegisterCommon("height", history.NewDenseFactory[float64](), nil, nil)
	require.NoError(t, err)
	femaleOnly := func(p *actor.Person) bool { return p.Sex() == actor.Female }
	_, err = r.Register("pregnancy_event", history.NewDenseFactory[int8](), femaleOnly, nil, nil)
	require.NoError(t, err)

	male, err := actor.New(2, actor.Attributes{Sex: actor.Male}, date.MustNew(2000, 1, 1))
	require.NoError(t, err)

	hv := r.MakeHistories(male)
	require.NotNil(t, hv[0], "common variable applies to everyone")
	require.Nil(t, hv[1], "female-only variable should not apply to a male")

	female := femalePerson(t)
	r.InstallHistories(female)
	require.NotNil(t, female.History(1))
}
