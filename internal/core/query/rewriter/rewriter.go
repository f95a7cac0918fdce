// Package rewriter substitutes references to stored queries with common table
// expressions.
package rewriter

import (
	"context"
	"fmt"
	"strings"

	"github.com/satishbabariya/insights-go/internal/core/query/dialect"
	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/core/query/sqltoken"
	"github.com/satishbabariya/insights-go/internal/debug"
)

// Rewriter replaces table references that name stored queries with CTEs.
type Rewriter struct {
	resolver domain.StoredQueryResolver
}

// New creates a Rewriter resolving names through resolver.
func New(resolver domain.StoredQueryResolver) *Rewriter {
	return &Rewriter{resolver: resolver}
}

// definition is one hoisted CTE.
type definition struct {
	alias string
	sql   string
}

// rewrite holds the state of one Rewrite call.
type rewrite struct {
	r          *Rewriter
	ctx        context.Context
	dataSource string
	defs       []definition
	done       map[string]bool
	path       []string
	// outer holds the CTE names the statement itself defines.
	outer map[string]bool
}

// Rewrite returns sql with every reference to a stored query of the same data
// source defined as a CTE. Referenced queries are resolved recursively and
// their definitions hoisted ahead of the queries that use them. Nothing is
// rewritten unless ec.AllowSubquery is set.
func (r *Rewriter) Rewrite(ctx context.Context, sql string, ec domain.ExecutionContext) (string, error) {
	if !ec.AllowSubquery || r.resolver == nil || strings.TrimSpace(sql) == "" {
		return sql, nil
	}

	rw := &rewrite{
		r:          r,
		ctx:        ctx,
		dataSource: ec.DataSource,
		done:       make(map[string]bool),
	}

	tokens, err := sqltoken.Tokenize(sql)
	if err != nil {
		return "", &domain.CompilationError{Reason: "failed to read statement", Cause: err}
	}
	tokens = sqltoken.TrimTrailing(tokens)
	rw.outer = cteNames(tokens, sqltoken.Significant(tokens), sqltoken.Depths(tokens))

	if err := rw.collect(tokens); err != nil {
		return "", err
	}
	if len(rw.defs) == 0 {
		return sql, nil
	}

	if ec.Dialect != "" {
		d, err := dialect.For(ec.Dialect)
		if err == nil && !d.SupportsCTE(ec.ServerVersion) {
			return "", &domain.CompilationError{
				Reason: fmt.Sprintf("%s %s does not support common table expressions", d.Name(), ec.ServerVersion),
			}
		}
	}

	debug.Debug("Rewrote stored query references", "data_source", ec.DataSource, "ctes", len(rw.defs))
	return merge(tokens, rw.defs), nil
}

// collect resolves every stored query referenced by tokens, depth first.
func (rw *rewrite) collect(tokens []sqltoken.Token) error {
	for _, ref := range references(tokens) {
		key := strings.ToLower(ref.name)
		if rw.done[key] {
			continue
		}

		for i, name := range rw.path {
			if strings.EqualFold(name, ref.name) {
				chain := append(append([]string{}, rw.path[i:]...), ref.name)
				return &domain.CycleError{Chain: chain}
			}
		}

		sql, found, err := rw.r.resolver.ResolveStoredQuery(rw.ctx, rw.dataSource, ref.name)
		if err != nil {
			return fmt.Errorf("failed to resolve query %s: %w", ref.name, err)
		}
		if !found {
			continue
		}
		// Hoisted definitions come first, so a stored query cannot be
		// defined next to a CTE of the same name.
		if rw.outer[key] && len(rw.path) > 0 {
			return &domain.CompilationError{
				Query:  rw.path[len(rw.path)-1],
				Reason: fmt.Sprintf("stored query %s has the same name as a CTE of the statement", ref.name),
			}
		}

		inner, err := sqltoken.Tokenize(sql)
		if err != nil {
			return &domain.CompilationError{Query: ref.name, Reason: "failed to read statement", Cause: err}
		}
		inner = sqltoken.TrimTrailing(inner)

		rw.path = append(rw.path, ref.name)
		if err := rw.collect(inner); err != nil {
			return err
		}
		rw.path = rw.path[:len(rw.path)-1]

		rw.done[key] = true
		rw.defs = append(rw.defs, definition{alias: ref.text, sql: sqltoken.Join(inner)})
	}
	return nil
}

// merge prefixes the definitions to the statement, joining an existing
// leading WITH clause when there is one.
func merge(tokens []sqltoken.Token, defs []definition) string {
	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = fmt.Sprintf("%s AS (%s)", d.alias, strings.TrimSpace(d.sql))
	}
	list := strings.Join(parts, ", ")

	sig := sqltoken.Significant(tokens)
	if len(sig) > 0 && tokens[sig[0]].Is("WITH") {
		at := sig[0]
		if len(sig) > 1 && tokens[sig[1]].Is("RECURSIVE") {
			at = sig[1]
		}
		head := sqltoken.Join(tokens[:at+1])
		tail := strings.TrimLeft(sqltoken.Join(tokens[at+1:]), " \t\r\n")
		return head + " " + list + ", " + tail
	}

	return "WITH " + list + " " + strings.TrimSpace(sqltoken.Join(tokens))
}
