package repository

import (
	"github.com/quantfoundry/universe-data/internal/errs"
)

// Logical table names understood by the resolver.
const (
	TableMembershipIntervals = "membership_intervals"
	TableMembershipEvents    = "membership_events"
	TableCorporateActions    = "corporate_actions"
	TablePriceBars           = "price_bars"
)

var logicalTables = map[string]struct{}{
	TableMembershipIntervals: {},
	TableMembershipEvents:    {},
	TableCorporateActions:    {},
	TablePriceBars:           {},
}

// envPrefixes maps a deployment environment to its table name prefix.
// Production tables carry no prefix.
var envPrefixes = map[string]string{
	"test": "test_",
	"intg": "intg_",
	"prod": "",
}

// TableResolver maps logical table names to physical, environment-prefixed
// ones. Physical names never come from user input, so they are safe to
// splice into SQL.
type TableResolver struct {
	env    string
	prefix string
}

// NewTableResolver creates a resolver for the given environment.
func NewTableResolver(env string) (*TableResolver, error) {
	prefix, ok := envPrefixes[env]
	if !ok {
		return nil, errs.Validationf("unknown table environment %q (must be test, intg, or prod)", env)
	}
	return &TableResolver{env: env, prefix: prefix}, nil
}

// Environment returns the environment this resolver was built for.
func (r *TableResolver) Environment() string {
	return r.env
}

// Resolve maps a logical table name to its physical name.
func (r *TableResolver) Resolve(logical string) (string, error) {
	if _, ok := logicalTables[logical]; !ok {
		return "", errs.Validationf("unknown table %q", logical)
	}
	return r.prefix + logical, nil
}

// mustResolve is Resolve for the package's own compile-time constants.
func (r *TableResolver) mustResolve(logical string) string {
	name, err := r.Resolve(logical)
	if err != nil {
		panic(err)
	}
	return name
}
