package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/robert-malhotra/cci-stac-tools/internal/archive"
	"github.com/robert-malhotra/cci-stac-tools/internal/batch"
	"github.com/robert-malhotra/cci-stac-tools/internal/collection"
	"github.com/robert-malhotra/cci-stac-tools/internal/extent"
	"github.com/robert-malhotra/cci-stac-tools/internal/opensearch"
	"github.com/robert-malhotra/cci-stac-tools/internal/sweep"
)

func status(s string) string {
	return StatusStyle(s).Render(s)
}

// Reconciliation prints the persisted and skipped nodes of a reconciliation.
func Reconciliation(w io.Writer, res *collection.Result) {
	t := newTable("COLLECTION", "STATUS", "DETAIL")
	for _, o := range res.Persisted {
		t.Row(StyleNoun.Render(o.Node), status(string(o.Action)), "")
	}
	for _, f := range res.Skipped {
		t.Row(StyleNoun.Render(f.Node), status("failed"), f.Err.Error())
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintln(w, StyleSummary.Render(fmt.Sprintf("%d persisted, %d skipped", len(res.Persisted), len(res.Skipped))))
}

// Tree prints walked nodes indented by depth, with item counts when they
// were taken.
func Tree(w io.Writer, nodes []collection.Node) {
	for _, n := range nodes {
		line := strings.Repeat("  ", n.Depth) + StyleNoun.Render(n.ID)
		switch {
		case n.Missing:
			line += "  " + status("missing")
		case n.Counted:
			line += "  " + StyleDim.Render("items:") + " " + n.Items.String()
		}
		fmt.Fprintln(w, line)
	}
}

// Check prints whether each counted node holds any items.
func Check(w io.Writer, nodes []collection.Node) {
	for _, n := range nodes {
		switch {
		case n.Missing:
			fmt.Fprintf(w, "%s %s\n", StyleNoun.Render(n.ID), status("missing"))
		case !n.Counted:
		case n.Items.Value > 0:
			fmt.Fprintf(w, "%s %s\n", StyleNoun.Render(n.ID), status("filled"))
		default:
			fmt.Fprintf(w, "%s %s\n", StyleNoun.Render(n.ID), status("empty"))
		}
	}
}

// Holes prints the child links that point at missing collections.
func Holes(w io.Writer, holes []collection.Node) {
	if len(holes) == 0 {
		fmt.Fprintln(w, StyleSummary.Render("no holes found"))
		return
	}
	t := newTable("COLLECTION", "LEVEL", "HREF")
	for _, h := range holes {
		t.Row(StyleNoun.Render(h.ID), collection.DepthName(h.Depth), h.Href)
	}
	fmt.Fprintln(w, t.String())
}

// Summary prints the filled and empty counts of a DRS summary.
func Summary(w io.Writer, s *collection.Summary) {
	fmt.Fprintf(w, "%s %d  %s %d\n", status("filled"), len(s.Filled), status("empty"), len(s.Empty))
}

// Deletion prints what a delete run removed, or would remove.
func Deletion(w io.Writer, r *collection.DeleteReport, executed bool) {
	verb := "dryrun"
	if executed {
		verb = "deleted"
	}
	for _, href := range r.Items {
		fmt.Fprintf(w, "%s %s %s\n", StyleDim.Render("item"), href, status(verb))
	}
	for _, id := range r.Collections {
		fmt.Fprintf(w, "%s %s %s\n", StyleDim.Render("collection"), StyleNoun.Render(id), status(verb))
	}
	if r.Unlinked != "" {
		fmt.Fprintf(w, "%s unlinked from %s\n", StyleDim.Render("link"), StyleNoun.Render(r.Unlinked))
	}
	fmt.Fprintln(w, StyleSummary.Render(fmt.Sprintf("%d items, %d collections, %d aggregations kept",
		len(r.Items), len(r.Collections), r.KeptAggregations)))
}

// Outcomes prints a list of persisted documents.
func Outcomes(w io.Writer, outcomes []collection.Outcome) {
	t := newTable("COLLECTION", "STATUS")
	for _, o := range outcomes {
		t.Row(StyleNoun.Render(o.Node), status(string(o.Action)))
	}
	fmt.Fprintln(w, t.String())
}

// CreateStats prints one row per batch entry of a create run.
func CreateStats(w io.Writer, stats []batch.Stats) {
	t := newTable("TARGET", "CREATED", "FAILED", "INCOMPLETE", "EXCLUDED", "MISSING", "FAILURES")
	for _, s := range stats {
		t.Row(StyleNoun.Render(s.Target),
			strconv.Itoa(s.Succeeded),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Incomplete),
			strconv.Itoa(s.Excluded),
			strconv.Itoa(s.Missing),
			s.FailureFile,
		)
	}
	fmt.Fprintln(w, t.String())
}

// PostStats prints the totals of a post run.
func PostStats(w io.Writer, s batch.PostStats) {
	fmt.Fprintf(w, "%s %d  %s %d  %s %d\n",
		status("created"), s.Created, status("updated"), s.Updated, status("failed"), s.Failed)
	for _, id := range s.Summarised {
		fmt.Fprintf(w, "%s %s\n", StyleDim.Render("eo:bands"), StyleNoun.Render(id))
	}
}

// Confinement prints a confined extent and its anomalies.
func Confinement(w io.Writer, r *extent.Result) {
	fmt.Fprintf(w, "%s %s\n", StyleDim.Render("collection"), StyleNoun.Render(r.Collection))
	fmt.Fprintf(w, "%s %s / %s\n", StyleDim.Render("interval"), r.Extent.Start, r.Extent.End)
	b := r.Extent.BBox
	fmt.Fprintf(w, "%s [%g, %g, %g, %g]\n", StyleDim.Render("bbox"), b[0], b[1], b[2], b[3])
	fmt.Fprintf(w, "%s %d items, %d children\n", StyleDim.Render("from"), r.Items, r.Children)
	for _, a := range r.Anomalies {
		fmt.Fprintf(w, "%s %s\n", status("failed"), a.String())
	}
}

// Sweep prints the status of each checked service.
func Sweep(w io.Writer, statuses []sweep.Status) {
	t := newTable("SERVICE", "STATUS", "CODE", "URL")
	for _, st := range statuses {
		word := "down"
		if st.Up() {
			word = "up"
		}
		code := strconv.Itoa(st.Code)
		if st.Err != nil {
			code = st.Err.Error()
		}
		t.Row(StyleNoun.Render(st.Service.Name), status(word), code, st.Service.URL)
	}
	fmt.Fprintln(w, t.String())
}

// Latest prints the newest version directories.
func Latest(w io.Writer, latest []archive.Latest) {
	for _, l := range latest {
		fmt.Fprintln(w, StyleNoun.Render(l.Path))
	}
}

// Description prints the temporal bounds and search parameters of an
// OpenSearch description document.
func Description(w io.Writer, d *opensearch.Description) {
	fmt.Fprintf(w, "%s %s\n", StyleDim.Render("template"), d.Template)
	start, end := d.Start, d.End
	if start == "" {
		start = ".."
	}
	if end == "" {
		end = ".."
	}
	fmt.Fprintf(w, "%s %s / %s\n", StyleDim.Render("interval"), start, end)

	t := newTable("PARAMETER", "VALUE", "RANGE", "OPTIONS")
	for _, p := range d.Parameters {
		bounds := ""
		if p.MinInclusive != "" || p.MaxInclusive != "" {
			bounds = p.MinInclusive + " / " + p.MaxInclusive
		}
		opts := make([]string, 0, len(p.Options))
		for _, o := range p.Options {
			opts = append(opts, o.Value)
		}
		t.Row(StyleNoun.Render(p.Name), p.Value, bounds, strings.Join(opts, ", "))
	}
	fmt.Fprintln(w, t.String())
}
