package domain

import "time"

// QueryStatus is the execution status of a stored query.
type QueryStatus string

const (
	// StatusPending marks a query whose definition changed since it last ran.
	StatusPending QueryStatus = "Pending Execution"
	// StatusSuccess marks a query whose last run succeeded.
	StatusSuccess QueryStatus = "Execution Successful"
)

// StoredQuery is a persisted query other queries may reference by name.
type StoredQuery struct {
	LogicalQuery `yaml:",inline"`

	// CompiledSQL is the statement the query last compiled to. It is what
	// references to the query resolve to.
	CompiledSQL   string        `json:"compiled_sql,omitempty" yaml:"-"`
	Status        QueryStatus   `json:"status" yaml:"-"`
	ExecutionTime time.Duration `json:"execution_time,omitempty" yaml:"-"`
	LastExecution time.Time     `json:"last_execution,omitempty" yaml:"-"`
	UpdatedAt     time.Time     `json:"updated_at,omitempty" yaml:"-"`
}
