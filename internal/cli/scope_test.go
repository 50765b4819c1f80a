package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/roach88/goscope/internal/harness"
	"github.com/roach88/goscope/internal/scopes"
)

// shopScope answers every query with one item and a single Books
// department.
type shopScope struct{}

func (shopScope) SetScopeBase(*scopes.ScopeBase) {}

func (shopScope) Search(ctx context.Context, query *scopes.CannedQuery, metadata *scopes.SearchMetadata, reply *scopes.SearchReply) error {
	root, err := scopes.NewDepartment("", query, "All")
	if err != nil {
		return err
	}
	books, err := scopes.NewDepartment("books", query, "Books")
	if err != nil {
		return err
	}
	root.AddSubdepartment(books)
	if err := reply.RegisterDepartments(root); err != nil {
		return err
	}

	cat := reply.RegisterCategory("items", "Items", "", "")
	r := scopes.NewCategorisedResult(cat)
	r.SetURI("shop://item/" + query.QueryString())
	r.SetTitle("Item " + query.QueryString())
	r.Set("price", 12)
	return reply.Push(r)
}

func (shopScope) Preview(ctx context.Context, result *scopes.Result, metadata *scopes.ActionMetadata, reply *scopes.PreviewReply) error {
	one := scopes.NewColumnLayout(1)
	one.AddColumn("header", "buy")
	two := scopes.NewColumnLayout(2)
	two.AddColumn("header")
	two.AddColumn("buy")
	if err := reply.RegisterLayout(one, two); err != nil {
		return err
	}

	header := scopes.NewPreviewWidget("header", "header")
	header.AddAttributeMapping("title", "title")
	buy := scopes.NewPreviewWidget("buy", "actions")
	buy.AddAttributeValue("actions", []any{map[string]any{"id": "buy", "label": "Buy"}})
	return reply.PushWidgets(header, buy)
}

// brokenScope fails every search.
type brokenScope struct{}

func (brokenScope) SetScopeBase(*scopes.ScopeBase) {}

func (brokenScope) Search(ctx context.Context, query *scopes.CannedQuery, metadata *scopes.SearchMetadata, reply *scopes.SearchReply) error {
	return errors.New("out of stock")
}

func (brokenScope) Preview(ctx context.Context, result *scopes.Result, metadata *scopes.ActionMetadata, reply *scopes.PreviewReply) error {
	return errors.New("out of stock")
}

func testLauncher() harness.InProcessLauncher {
	return harness.InProcessLauncher{
		"shop":   shopScope{},
		"broken": brokenScope{},
	}
}

func shopINI(t *testing.T) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("testdata", "shop.ini"))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func brokenINI(t *testing.T) string {
	t.Helper()
	p, err := filepath.Abs(filepath.Join("testdata", "broken.ini"))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// executeRoot runs the full command tree with in-process scopes and
// returns stdout.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{Launcher: testLauncher()})
	return execute(cmd, args...)
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
