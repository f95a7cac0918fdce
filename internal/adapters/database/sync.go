package database

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
	"github.com/satishbabariya/insights-go/internal/debug"
)

// syncConcurrency bounds the parallel column fetches of a sync.
const syncConcurrency = 8

// Sync introspects tables (every table when empty) through in and records
// them in the catalog.
func (b *Base) Sync(ctx context.Context, in Introspector, tables []string) error {
	if b.catalog == nil {
		return fmt.Errorf("failed to sync tables of %s: no table catalog configured", b.cfg.Name)
	}

	if len(tables) == 0 {
		all, err := in.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}
		tables = all
	}

	records := make([]domain.CatalogTable, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)

	for i, table := range tables {
		g.Go(func() error {
			cols, err := in.ListColumns(gctx, table)
			if err != nil {
				return fmt.Errorf("failed to get columns of %s: %w", table, err)
			}
			records[i] = domain.CatalogTable{
				DataSource: b.cfg.Name,
				Name:       table,
				Label:      TitleCase(table),
				Columns:    cols,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := b.catalog.SaveTables(ctx, b.cfg.Name, records); err != nil {
		return fmt.Errorf("failed to save tables: %w", err)
	}
	debug.Info("Synced tables", "data_source", b.cfg.Name, "tables", len(records))

	return b.syncLinks(ctx, in, tables)
}

// syncLinks records the foreign keys between synced tables as join links,
// when both the introspector and the catalog support it.
func (b *Base) syncLinks(ctx context.Context, in Introspector, tables []string) error {
	lister, ok := in.(ForeignKeyLister)
	if !ok {
		return nil
	}
	links, ok := b.catalog.(LinkCatalog)
	if !ok {
		return nil
	}

	fks, err := lister.ListForeignKeys(ctx)
	if err != nil {
		return fmt.Errorf("failed to list foreign keys: %w", err)
	}
	synced := make(map[string]bool, len(tables))
	for _, t := range tables {
		synced[t] = true
	}
	kept := fks[:0]
	for _, fk := range fks {
		if synced[fk.PrimaryTable] || synced[fk.ForeignTable] {
			kept = append(kept, fk)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if err := links.SaveLinks(ctx, b.cfg.Name, kept); err != nil {
		return fmt.Errorf("failed to save table links: %w", err)
	}
	debug.Info("Synced table links", "data_source", b.cfg.Name, "links", len(kept))
	return nil
}

// TitleCase turns a table or column name into a display label:
// "sales_order_item" becomes "Sales Order Item".
func TitleCase(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
