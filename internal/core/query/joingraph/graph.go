// Package joingraph finds join paths between tables from their recorded links.
package joingraph

import (
	"sort"

	"github.com/satishbabariya/insights-go/internal/core/query/domain"
)

// Graph is an undirected graph of tables; each edge is a TableLink.
type Graph struct {
	edges map[string][]domain.TableLink
}

// New builds a graph from links. Each link is usable in both directions.
func New(links []domain.TableLink) *Graph {
	g := &Graph{edges: map[string][]domain.TableLink{}}
	for _, l := range links {
		g.Add(l)
	}
	return g
}

// Add records l and its reverse. Duplicates are ignored.
func (g *Graph) Add(l domain.TableLink) {
	if l.PrimaryTable == "" || l.ForeignTable == "" || l.PrimaryTable == l.ForeignTable {
		return
	}
	g.addEdge(l)
	g.addEdge(l.Reverse())
}

func (g *Graph) addEdge(l domain.TableLink) {
	for _, e := range g.edges[l.PrimaryTable] {
		if e == l {
			return
		}
	}
	g.edges[l.PrimaryTable] = append(g.edges[l.PrimaryTable], l)
}

// Len returns the number of tables with at least one link.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.edges)
}

// ShortestPath returns the hops from one table to another with the fewest
// joins, each hop oriented from the table already reached. It returns nil
// when the tables are equal or not connected.
func (g *Graph) ShortestPath(from, to string) []domain.TableLink {
	if g == nil || from == to {
		return nil
	}
	if _, ok := g.edges[from]; !ok {
		return nil
	}

	via := map[string]domain.TableLink{}
	visited := map[string]bool{from: true}
	queue := []string{from}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, e := range g.edges[node] {
			if visited[e.ForeignTable] {
				continue
			}
			visited[e.ForeignTable] = true
			via[e.ForeignTable] = e
			if e.ForeignTable == to {
				return walkBack(via, from, to)
			}
			queue = append(queue, e.ForeignTable)
		}
	}
	return nil
}

func walkBack(via map[string]domain.TableLink, from, to string) []domain.TableLink {
	var path []domain.TableLink
	for node := to; node != from; {
		e := via[node]
		path = append(path, e)
		node = e.PrimaryTable
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Reachable lists, sorted, every table connected to from, excluding from.
func (g *Graph) Reachable(from string) []string {
	if g == nil {
		return nil
	}
	visited := map[string]bool{from: true}
	queue := []string{from}
	var out []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, e := range g.edges[node] {
			if !visited[e.ForeignTable] {
				visited[e.ForeignTable] = true
				out = append(out, e.ForeignTable)
				queue = append(queue, e.ForeignTable)
			}
		}
	}
	sort.Strings(out)
	return out
}
