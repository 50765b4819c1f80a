package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/goscope/internal/harness"
	"github.com/roach88/goscope/internal/variant"
)

// BrowseOptions holds the flags shared by commands that search a scope.
type BrowseOptions struct {
	*RootOptions
	Scope      string
	Query      string
	Department string
}

func (o *BrowseOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Scope, "scope", "", "scope to search (default: first registered)")
	cmd.Flags().StringVarP(&o.Query, "query", "q", "", "search query")
	cmd.Flags().StringVar(&o.Department, "department", "", "department to browse")
}

// openHarness builds a harness for the scope .ini files in args using the
// loaded settings. The caller must Close it.
func openHarness(ctx context.Context, opts *RootOptions, cmd *cobra.Command, args []string) (*harness.ScopeHarness, error) {
	for _, p := range args {
		if _, err := os.Stat(p); err != nil {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("scope file not found: %s", p))
		}
	}
	s, err := opts.Settings(cmd.Flags())
	if err != nil {
		return nil, err
	}
	h, err := harness.NewFromScopeList(ctx, harness.Parameters{
		ScopeList:     args,
		RuntimeConfig: s.Runtime,
		Timeout:       s.Timeout,
		Trace:         s.TraceDB,
		Cardinality:   s.Cardinality,
		Locale:        s.Locale,
		FormFactor:    s.FormFactor,
		Launcher:      opts.Launcher,
		Logger:        opts.Logger(cmd.ErrOrStderr()),
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create harness", err)
	}
	if s.TraceDB != "" {
		opts.sessionID = h.SessionID()
	}
	return h, nil
}

// search activates the selected scope and runs the query, then browses the
// department if one was given.
func (o *BrowseOptions) search(ctx context.Context, h *harness.ScopeHarness) (*harness.ResultsView, error) {
	id := o.Scope
	if id == "" {
		id = h.Registry().IDs()[0]
	}
	view := h.ResultsView()
	if err := view.SetActiveScope(id); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to select scope", err)
	}
	if err := view.SetSearchQuery(ctx, o.Query); err != nil {
		return nil, WrapExitError(ExitFailure, "search failed", err)
	}
	if o.Department != "" {
		if _, err := view.BrowseDepartment(ctx, o.Department); err != nil {
			return nil, WrapExitError(ExitFailure, "failed to browse department", err)
		}
	}
	return view, nil
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BrowseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search <scope.ini>...",
		Short: "Search a scope and print its results",
		Long: `Search a scope and print the categories and results it pushed.

Examples:
  scopeharness search ./goscope.ini --query test
  scopeharness search ./goscope.ini ./other.ini --scope other
  scopeharness search ./goscope.ini --department Rock --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.report(cmd, runSearch(cmd, opts, args))
		},
	}
	opts.bind(cmd)
	return cmd
}

func runSearch(cmd *cobra.Command, opts *BrowseOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	h, err := openHarness(ctx, opts.RootOptions, cmd, args)
	if err != nil {
		return err
	}
	defer h.Close()

	view, err := opts.search(ctx, h)
	if err != nil {
		return err
	}

	return opts.formatter(cmd).Render(harness.SnapshotView(view), func(w io.Writer) error {
		printResults(w, view, opts.Verbose)
		return nil
	})
}

func printResults(w io.Writer, view *harness.ResultsView, verbose bool) {
	fmt.Fprintf(w, "Scope: %s  Query: %q\n", view.ScopeID(), view.SearchQuery())
	cats := view.Categories()
	if len(cats) == 0 {
		fmt.Fprintln(w, "(no categories)")
		return
	}
	for _, cat := range cats {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Category %s (%s)\n", cat.ID(), cat.Title())
		t := newTable(w)
		t.AppendHeader(table.Row{"#", "URI", "Title", "Art"})
		for i, r := range cat.Results() {
			t.AppendRow(table.Row{i, r.URI(), r.Title(), r.Art()})
			if verbose {
				t.AppendRow(table.Row{"", formatProperties(r.Properties()), "", ""})
			}
		}
		t.Render()
	}
}

// NewDepartmentsCommand creates the departments command.
func NewDepartmentsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BrowseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "departments <scope.ini>...",
		Short: "Print the department list of a scope",
		Long: `Search a scope and print the department it is showing and its
children. Use --department to browse into a child.

Examples:
  scopeharness departments ./goscope.ini
  scopeharness departments ./goscope.ini --department Rock`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.report(cmd, runDepartments(cmd, opts, args))
		},
	}
	opts.bind(cmd)
	return cmd
}

func runDepartments(cmd *cobra.Command, opts *BrowseOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	h, err := openHarness(ctx, opts.RootOptions, cmd, args)
	if err != nil {
		return err
	}
	defer h.Close()

	view, err := opts.search(ctx, h)
	if err != nil {
		return err
	}
	d, err := view.Departments()
	if err != nil {
		return WrapExitError(ExitFailure, "no departments", err)
	}

	return opts.formatter(cmd).Render(harness.SnapshotView(view)["departments"], func(w io.Writer) error {
		printDepartments(w, d)
		return nil
	})
}

func printDepartments(w io.Writer, d *harness.DepartmentList) {
	fmt.Fprintf(w, "Department: %q (%s)\n", d.ID(), d.Label())
	if d.IsRoot() {
		fmt.Fprintln(w, "Parent: (root)")
	} else {
		fmt.Fprintf(w, "Parent: %q (%s)\n", d.ParentID(), d.ParentLabel())
	}
	if d.Len() == 0 {
		fmt.Fprintln(w, "(no children)")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Label", "All Label", "Children", "Active"})
	for _, c := range d.Children() {
		t.AppendRow(table.Row{c.ID(), c.Label(), c.AllLabel(), yesNo(c.HasChildren()), yesNo(c.IsActive())})
	}
	t.Render()
}

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	BrowseOptions
	Category int
	Result   int
	Columns  int
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{BrowseOptions: BrowseOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "preview <scope.ini>...",
		Short: "Preview a search result",
		Long: `Search a scope, tap one of its results and print the preview widgets
laid out for the requested number of columns.

Examples:
  scopeharness preview ./goscope.ini --category 0 --result 1
  scopeharness preview ./goscope.ini --columns 2 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.report(cmd, runPreview(cmd, opts, args))
		},
	}
	opts.bind(cmd)
	cmd.Flags().IntVar(&opts.Category, "category", 0, "category index")
	cmd.Flags().IntVar(&opts.Result, "result", 0, "result index within the category")
	cmd.Flags().IntVar(&opts.Columns, "columns", 1, "number of preview columns")
	return cmd
}

func runPreview(cmd *cobra.Command, opts *PreviewOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	h, err := openHarness(ctx, opts.RootOptions, cmd, args)
	if err != nil {
		return err
	}
	defer h.Close()

	view, err := opts.search(ctx, h)
	if err != nil {
		return err
	}
	cats := view.Categories()
	if opts.Category < 0 || opts.Category >= len(cats) {
		return NewExitError(ExitCommandError, fmt.Sprintf("category %d out of range (%d categories)", opts.Category, len(cats)))
	}
	cat := cats[opts.Category]
	if opts.Result < 0 || opts.Result >= cat.Len() {
		return NewExitError(ExitCommandError, fmt.Sprintf("result %d out of range (%d results in %s)", opts.Result, cat.Len(), cat.ID()))
	}

	preview, err := cat.Result(opts.Result).Tap(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "preview failed", err)
	}
	if err := preview.SetColumnCount(opts.Columns); err != nil {
		return WrapExitError(ExitCommandError, "invalid column count", err)
	}

	return opts.formatter(cmd).Render(harness.SnapshotView(preview), func(w io.Writer) error {
		printPreview(w, preview)
		return nil
	})
}

func printPreview(w io.Writer, preview *harness.PreviewView) {
	fmt.Fprintf(w, "Preview of %s (%d columns)\n", preview.Result().URI(), preview.ColumnCount())
	t := newTable(w)
	t.AppendHeader(table.Row{"Column", "Widget", "Type", "Data"})
	for i, col := range preview.Widgets() {
		if len(col) == 0 {
			t.AppendRow(table.Row{i, "", "", ""})
			continue
		}
		for _, wgt := range col {
			t.AppendRow(table.Row{i, wgt.ID(), wgt.Type(), formatProperties(wgt.Data())})
		}
	}
	t.Render()
}

// NewScopesCommand creates the scopes command.
func NewScopesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scopes <scope.ini>...",
		Short: "List registered scopes",
		Long: `Register scopes from their .ini files and print their metadata.
No scope is started.

Examples:
  scopeharness scopes ./goscope.ini ./other.ini`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.report(cmd, runScopes(cmd, rootOpts, args))
		},
	}
	return cmd
}

func runScopes(cmd *cobra.Command, opts *RootOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	h, err := openHarness(ctx, opts, cmd, args)
	if err != nil {
		return err
	}
	defer h.Close()

	metadata := h.Registry().Metadata()
	return opts.formatter(cmd).Render(metadata, func(w io.Writer) error {
		t := newTable(w)
		t.AppendHeader(table.Row{"ID", "Display Name", "Description", "Icon", "Search Hint", "Hot Key"})
		for _, md := range metadata {
			t.AppendRow(table.Row{md.ScopeID, md.DisplayName, md.Description, md.Icon, md.SearchHint, md.HotKey})
		}
		t.Render()
		return nil
	})
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// formatProperties renders a map as key=value pairs in key order.
func formatProperties(m variant.Map) string {
	if len(m) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(m))
	for _, k := range m.SortedKeys() {
		data, err := variant.Marshal(m[k])
		if err != nil {
			data = []byte("?")
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, data))
	}
	return strings.Join(parts, " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
