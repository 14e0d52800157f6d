// Command scmemctl is a small command-line harness over a graph.Store:
// create and connect elements, walk the triple iterators, and
// save/load snapshots against a local directory.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/element"
	scfs "github.com/sc-machine-go/scmem/fsmem/fs"
	"github.com/sc-machine-go/scmem/graph"
	"github.com/sc-machine-go/scmem/internal/metrics"
	"github.com/sc-machine-go/scmem/iterator"
)

// nolint:gochecknoglobals
var (
	errColor = color.New(color.FgHiRed)
	okColor  = color.New(color.FgHiGreen)
	stdout   = colorable.NewColorableStdout()
)

type app struct {
	dir string
}

func main() {
	a := &app{}

	k := kingpin.New("scmemctl", "Inspect and drive a scmem graph store from the command line.")
	k.Flag("dir", "Snapshot directory (omit for an in-memory store).").StringVar(&a.dir)

	k.Command("stat", "Print segment/free-slot occupancy.")
	k.Command("dump-stats", "Print segment, free-slot and per-category live element counts.")
	k.Command("create-node", "Create a node.")
	k.Command("create-link", "Create a link.")
	k.Command("save", "Snapshot the store to --dir.")
	k.Command("load", "Restore the snapshot at --dir into the store's pool (fails if the pool already holds segments).")

	connect := k.Command("connect", "Create a connector between two addresses.")
	beginArg := connect.Arg("begin", "Begin address (seg:off).").Required().String()
	endArg := connect.Arg("end", "End address (seg:off).").Required().String()
	edgeFlag := connect.Flag("edge", "Create an undirected edge instead of a directed arc.").Bool()

	erase := k.Command("erase", "Cascade-erase an element.")
	eraseAddr := erase.Arg("addr", "Address to erase (seg:off).").Required().String()

	iterate := k.Command("iterate", "Walk one of the seven fixed-pattern triple iterators.")
	patternArg := iterate.Flag("pattern", "faa, aaf, faf, afa, ffa, aff or fff.").Default("faa").String()
	connFilterArg := iterate.Flag("conn-filter", "Connector type filter bits (0 matches any connector).").Default("0").Uint32()
	firstFilterArg := iterate.Flag("first-filter", "First-slot type filter bits (0 matches any).").Default("0").Uint32()
	thirdFilterArg := iterate.Flag("third-filter", "Third-slot type filter bits (0 matches any).").Default("0").Uint32()
	iterateAddrs := iterate.Arg("addr", "Fixed addresses required by --pattern, in pattern order (seg:off).").Strings()

	cmd := kingpin.MustParse(k.Parse(os.Args[1:]))

	ctx := context.Background()

	store, err := a.open(ctx)
	if err != nil {
		fatal(err)
	}
	defer store.Close() //nolint:errcheck

	switch cmd {
	case "create-node":
		runCreateNode(ctx, store)
	case "create-link":
		runCreateLink(ctx, store)
	case "connect":
		runConnect(ctx, store, *beginArg, *endArg, *edgeFlag)
	case "erase":
		runErase(ctx, store, *eraseAddr)
	case "save":
		if err := store.Save(ctx); err != nil {
			fatal(err)
		}

		printOK("saved")
	case "load":
		if err := store.Load(ctx); err != nil {
			fatal(err)
		}

		printOK("loaded")
	case "stat":
		runStat(store)
	case "dump-stats":
		runDumpStats(store)
	case "iterate":
		runIterate(
			ctx, store, *patternArg,
			element.Type(*connFilterArg), element.Type(*firstFilterArg), element.Type(*thirdFilterArg),
			*iterateAddrs,
		)
	}
}

func (a *app) open(ctx context.Context) (*graph.Store, error) {
	opts := graph.Options{Metrics: metrics.New(prometheus.NewRegistry())}

	if a.dir == "" {
		opts.Clear = true
	} else {
		collab, err := scfs.New(a.dir)
		if err != nil {
			return nil, err
		}

		opts.Collaborator = collab
	}

	return graph.New(ctx, opts)
}

func runStat(s *graph.Store) {
	st := s.GetElementsStat()
	printOK(fmt.Sprintf("segments=%d free_slots=%d", st.SegmentsCount, st.FreeSlotsTotal))
}

func runDumpStats(s *graph.Store) {
	st := s.GetElementsStat()
	printOK(fmt.Sprintf(
		"segments=%d free_slots=%d nodes=%d links=%d arcs=%d edges=%d",
		st.SegmentsCount, st.FreeSlotsTotal, st.NodesCount, st.LinksCount, st.ArcsCount, st.EdgesCount,
	))
}

func runIterate(ctx context.Context, s *graph.Store, pattern string, connFilter, firstFilter, thirdFilter element.Type, addrArgs []string) {
	addrs := make([]address.Addr, len(addrArgs))

	for i, a := range addrArgs {
		addr, err := parseAddr(a)
		if err != nil {
			fatal(err)
		}

		addrs[i] = addr
	}

	it := newPatternIterator(s, pattern, connFilter, firstFilter, thirdFilter, addrs)
	defer it.Close()

	n := 0

	for it.Next(ctx) {
		printOK(fmt.Sprintf("%s %s %s", it.Value(0), it.Value(1), it.Value(2)))
		n++
	}

	printOK(fmt.Sprintf("%d triples", n))
}

func newPatternIterator(s *graph.Store, pattern string, connFilter, firstFilter, thirdFilter element.Type, addrs []address.Addr) *iterator.Iterator {
	m := s.Metrics()

	switch pattern {
	case "faa":
		requireAddrs(pattern, addrs, 1)
		return iterator.NewFAA(s, m, addrs[0], connFilter, thirdFilter)
	case "aaf":
		requireAddrs(pattern, addrs, 1)
		return iterator.NewAAF(s, m, addrs[0], connFilter, firstFilter)
	case "faf":
		requireAddrs(pattern, addrs, 2)
		return iterator.NewFAF(s, m, addrs[0], addrs[1], connFilter)
	case "afa":
		requireAddrs(pattern, addrs, 1)
		return iterator.NewAFA(s, m, addrs[0], firstFilter, thirdFilter)
	case "ffa":
		requireAddrs(pattern, addrs, 2)
		return iterator.NewFFA(s, m, addrs[0], addrs[1], thirdFilter)
	case "aff":
		requireAddrs(pattern, addrs, 2)
		return iterator.NewAFF(s, m, addrs[0], addrs[1], firstFilter)
	case "fff":
		requireAddrs(pattern, addrs, 3)
		return iterator.NewFFF(s, m, addrs[0], addrs[1], addrs[2])
	default:
		fatal(fmt.Errorf("unknown pattern %q", pattern))
		return nil
	}
}

func requireAddrs(pattern string, addrs []address.Addr, want int) {
	if len(addrs) != want {
		fatal(fmt.Errorf("pattern %q requires %d address argument(s), got %d", pattern, want, len(addrs)))
	}
}

func runCreateNode(ctx context.Context, s *graph.Store) {
	addr, err := s.CreateNode(ctx, element.Const|element.Perm)
	if err != nil {
		fatal(err)
	}

	printOK(addr.String())
}

func runCreateLink(ctx context.Context, s *graph.Store) {
	addr, err := s.CreateLink(ctx, element.Const|element.Perm)
	if err != nil {
		fatal(err)
	}

	printOK(addr.String())
}

func runConnect(ctx context.Context, s *graph.Store, beginStr, endStr string, edge bool) {
	begin, err := parseAddr(beginStr)
	if err != nil {
		fatal(err)
	}

	end, err := parseAddr(endStr)
	if err != nil {
		fatal(err)
	}

	subtype := element.Arc | element.ArcDirected
	if edge {
		subtype = element.Arc | element.EdgeCommon
	}

	addr, err := s.CreateConnector(ctx, subtype, begin, end)
	if err != nil {
		fatal(err)
	}

	printOK(addr.String())
}

func runErase(ctx context.Context, s *graph.Store, addrStr string) {
	addr, err := parseAddr(addrStr)
	if err != nil {
		fatal(err)
	}

	if err := s.EraseElement(ctx, addr); err != nil {
		fatal(err)
	}

	printOK("erased " + addr.String())
}

func parseAddr(s string) (address.Addr, error) {
	var seg, off uint32

	if _, err := fmt.Sscanf(s, "%d:%d", &seg, &off); err != nil {
		return address.Empty, fmt.Errorf("invalid address %q: %w", s, err)
	}

	return address.Addr{Seg: seg, Off: off}, nil
}

func printOK(msg string) {
	okColor.Fprintln(stdout, msg)
}

func fatal(err error) {
	errColor.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
