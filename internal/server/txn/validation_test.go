package txn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emsuite/authcore/internal/common"
)

type record struct {
	name  string
	value int
}

func (r record) String() string { return r.name }

var errBad = errors.New("bad value")

func ruleOK() Rule[record] {
	return Rule[record]{
		Name:  "always ok",
		Check: func(ctx context.Context, r record) error { return nil },
	}
}

func ruleFail(name string, critical bool) Rule[record] {
	return Rule[record]{
		Name:     name,
		Critical: critical,
		Check:    func(ctx context.Context, r record) error { return errBad },
	}
}

func TestValidate_AllPass(t *testing.T) {
	t.Parallel()

	vr := Validate(context.Background(), "record", record{name: "a"}, []Rule[record]{ruleOK(), ruleOK()})
	assert.True(t, vr.Successful())
	assert.NoError(t, vr.Err())
}

func TestValidate_NonCriticalAccumulates(t *testing.T) {
	t.Parallel()

	rules := []Rule[record]{
		ruleFail("first", false),
		ruleFail("second", false),
		ruleOK(),
	}

	vr := Validate(context.Background(), "record", record{}, rules)
	require.False(t, vr.Successful())
	assert.Len(t, vr.Errors(), 2, "non-critical failures must accumulate")
	assert.ErrorIs(t, vr.Err(), common.ErrValidation)
	assert.ErrorIs(t, vr.Err(), errBad)
}

func TestValidate_CriticalShortCircuits(t *testing.T) {
	t.Parallel()

	checkedLater := false
	rules := []Rule[record]{
		ruleFail("critical", true),
		{
			Name: "never reached",
			Check: func(ctx context.Context, r record) error {
				checkedLater = true
				return nil
			},
		},
	}

	vr := Validate(context.Background(), "record", record{}, rules)
	require.False(t, vr.Successful())
	assert.Len(t, vr.Errors(), 1)
	assert.False(t, checkedLater, "critical failure must stop the chain")
}

func TestValidate_DependentsOnlyOnParentPass(t *testing.T) {
	t.Parallel()

	depChecked := false
	dep := Rule[record]{
		Name: "dependent",
		Check: func(ctx context.Context, r record) error {
			depChecked = true
			return errBad
		},
	}

	// Parent fails: dependent must not run.
	parent := ruleFail("parent", false)
	parent.Dependent = []Rule[record]{dep}
	vr := Validate(context.Background(), "record", record{}, []Rule[record]{parent})
	require.Len(t, vr.Errors(), 1)
	assert.False(t, depChecked)

	// Parent passes: dependent runs and its failure is recorded.
	parent = ruleOK()
	parent.Dependent = []Rule[record]{dep}
	vr = Validate(context.Background(), "record", record{}, []Rule[record]{parent})
	require.Len(t, vr.Errors(), 1)
	assert.True(t, depChecked)
}

func TestValidateAll_NamesEveryInvalidEntity(t *testing.T) {
	t.Parallel()

	rules := []Rule[record]{{
		Name:  "value must be positive",
		Check: func(ctx context.Context, r record) error { return requirePositive(r) },
	}}

	batch := []record{
		{name: "r1", value: 1},
		{name: "r2", value: 0},
		{name: "r3", value: 3},
		{name: "r4", value: -2},
		{name: "r5", value: 5},
	}

	vr := ValidateAll(context.Background(), "record", batch, rules)
	require.False(t, vr.Successful())
	assert.Len(t, vr.Errors(), 2, "must report every invalid record, not fail fast")

	msg := vr.Err().Error()
	assert.Contains(t, msg, "r2")
	assert.Contains(t, msg, "r4")
	assert.NotContains(t, msg, "r3")
}

func requirePositive(r record) error {
	if r.value <= 0 {
		return errBad
	}
	return nil
}
